package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"catalograg/internal/catalog"
	"catalograg/internal/domain"
	"catalograg/internal/ingest"
	"catalograg/internal/metrics"
	"catalograg/internal/vectorstore"
	"catalograg/internal/vectorstore/memory"
)

// Indexer turns catalog records into a persisted index bundle.
type Indexer struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	opts     ingest.Options
	metric   vectorstore.Metric
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewIndexer(chunker domain.Chunker, embedder domain.Embedder, opts ingest.Options, metric vectorstore.Metric, log *zap.Logger, m *metrics.Metrics) (*Indexer, error) {
	if chunker == nil || embedder == nil {
		return nil, errors.New("indexer: chunker and embedder are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{chunker: chunker, embedder: embedder, opts: opts, metric: metric, log: log, metrics: m}, nil
}

// Index chunks records, embeds them in paced batches and writes the bundle to dir.
// Extra options are passed to the ingestor.
func (x *Indexer) Index(ctx context.Context, records []domain.CatalogRecord, dir string, options ...ingest.Option) (*ingest.Report, error) {
	chunks, err := catalog.ChunkAll(x.chunker, records)
	if err != nil {
		return nil, err
	}
	x.log.Info("catalog chunked", zap.Int("records", len(records)), zap.Int("chunks", len(chunks)))

	store := memory.NewStorage(x.metric, x.embedder.ModelID())
	base := []ingest.Option{ingest.WithLogger(x.log), ingest.WithMetrics(x.metrics)}
	in, err := ingest.New(x.embedder, store, x.opts, append(base, options...)...)
	if err != nil {
		return nil, err
	}
	report, err := in.Run(ctx, chunks, dir)
	if err != nil {
		return report, fmt.Errorf("index catalog: %w", err)
	}
	return report, nil
}
