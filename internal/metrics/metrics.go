package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recommendation outcomes.
const (
	OutcomeGenerated        = "generated"
	OutcomeGenerationFailed = "generation_failed"
	OutcomeNoGenerator      = "no_generator"
	OutcomeEmpty            = "empty"
)

// Metrics holds the application collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ingestBatches      *prometheus.CounterVec
	ingestRetries      prometheus.Counter
	ingestChunks       prometheus.Counter
	retrievalDuration  prometheus.Histogram
	recommendations    *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ingestBatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalograg_ingest_batches_total",
			Help: "Embedding batches by final status",
		}, []string{"status"}),
		ingestRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "catalograg_ingest_retries_total",
			Help: "Embedding batch retries after transient failures",
		}),
		ingestChunks: f.NewCounter(prometheus.CounterOpts{
			Name: "catalograg_ingest_chunks_total",
			Help: "Chunks committed to the index",
		}),
		retrievalDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalograg_retrieval_duration_seconds",
			Help:    "Time spent embedding a query and searching the index",
			Buckets: prometheus.DefBuckets,
		}),
		recommendations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalograg_recommendations_total",
			Help: "Recommendations by outcome",
		}, []string{"outcome"}),
		httpRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalograg_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) BatchCommitted(chunks int) {
	if m == nil {
		return
	}
	m.ingestBatches.WithLabelValues("committed").Inc()
	m.ingestChunks.Add(float64(chunks))
}

func (m *Metrics) BatchAborted() {
	if m == nil {
		return
	}
	m.ingestBatches.WithLabelValues("aborted").Inc()
}

func (m *Metrics) BatchRetried() {
	if m == nil {
		return
	}
	m.ingestRetries.Inc()
}

func (m *Metrics) ObserveRetrieval(d time.Duration) {
	if m == nil {
		return
	}
	m.retrievalDuration.Observe(d.Seconds())
}

func (m *Metrics) Recommendation(outcome string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestLatency.WithLabelValues(route, status).Observe(d.Seconds())
}
