package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"catalograg/internal/domain"
	"catalograg/internal/metrics"
	"catalograg/internal/service"
)

// maxSearchK bounds the number of cards a single search may request.
const maxSearchK = 50

// Engine is the HTTP-facing subset of service.Engine.
type Engine interface {
	Recommend(ctx context.Context, query string) (string, error)
	Search(ctx context.Context, query string, k int) ([]service.Match, error)
}

type RecommendRequest struct {
	Query string `json:"query"`
}

type RecommendResponse struct {
	Recommendation string `json:"recommendation"`
}

type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type SearchResponse struct {
	Results []service.Match `json:"results"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type handlers struct {
	engine Engine
	log    *zap.Logger
}

// NewRouter mounts the API routes. m may be nil, in which case /metrics is not served.
func NewRouter(engine Engine, log *zap.Logger, m *metrics.Metrics) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handlers{engine: engine, log: log}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogging(log, m))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Post("/recommend", h.recommend)
	r.Post("/search", h.search)
	if reg := m.Registry(); reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handlers) recommend(w http.ResponseWriter, r *http.Request) {
	var body RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	text, err := h.engine.Recommend(r.Context(), body.Query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecommendResponse{Recommendation: text})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	if body.K < 0 || body.K > maxSearchK {
		writeError(w, http.StatusBadRequest, "k must be between 0 and 50")
		return
	}
	matches, err := h.engine.Search(r.Context(), body.Query, body.K)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: matches})
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error("request failed",
		zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
