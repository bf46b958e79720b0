package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"catalograg/internal/assessment"
	"catalograg/internal/domain"
	"catalograg/internal/metrics"
	"catalograg/internal/recommend"
	"catalograg/internal/retriever"
	"catalograg/internal/vectorstore"
	"catalograg/internal/vectorstore/memory"
)

// EngineConfig locates the bundle and sets result counts.
type EngineConfig struct {
	IndexPath  string
	Metric     vectorstore.Metric
	RecommendK int
	SearchK    int
	Links      assessment.Links
}

// Match is one search result with parsed card details.
type Match struct {
	Rank    int                `json:"rank"`
	Score   float64            `json:"score"`
	Chunk   domain.Chunk       `json:"chunk"`
	Details assessment.Details `json:"details"`
}

// Engine serves recommendations and searches from a loaded bundle. It is built
// once per process and shared by every frontend.
type Engine struct {
	store     *memory.Storage
	retriever *retriever.Retriever
	composer  *recommend.Composer
	links     assessment.Links
	searchK   int
	log       *zap.Logger
}

type dimensioned interface {
	Dimension() int
}

// dimensionCheckText is embedded at startup when the embedder cannot report its
// dimension up front.
const dimensionCheckText = "dimension check"

// NewEngine loads the bundle at cfg.IndexPath. A load failure, including a
// vector dimension that differs from the embedder's, is a *domain.IndexLoadError.
// generator may be nil.
func NewEngine(ctx context.Context, cfg EngineConfig, embedder domain.Embedder, generator domain.Generator, log *zap.Logger, m *metrics.Metrics) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := memory.LoadOptions{Metric: cfg.Metric}
	if d, ok := embedder.(dimensioned); ok {
		opts.Dimension = d.Dimension()
	}
	store, err := memory.Load(cfg.IndexPath, opts)
	if err != nil {
		return nil, err
	}
	if opts.Dimension == 0 {
		if err := checkDimension(ctx, cfg.IndexPath, embedder, store.Dimension()); err != nil {
			return nil, err
		}
	}
	if store.ModelID() != embedder.ModelID() {
		log.Warn("index was built with a different embedding model",
			zap.String("index_model", store.ModelID()),
			zap.String("embedder_model", embedder.ModelID()))
	}

	r, err := retriever.New(embedder, store, m)
	if err != nil {
		return nil, err
	}
	composer, err := recommend.NewComposer(r, generator,
		recommend.WithTopK(cfg.RecommendK),
		recommend.WithLogger(log),
		recommend.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	searchK := cfg.SearchK
	if searchK <= 0 {
		searchK = 5
	}
	links := cfg.Links
	if links == nil {
		links = assessment.Links{}
	}

	fields := []zap.Field{
		zap.String("index", cfg.IndexPath),
		zap.Int("entries", store.Len()),
		zap.Int("dimension", store.Dimension()),
		zap.Bool("generation", generator != nil),
	}
	if generator != nil {
		fields = append(fields, zap.String("generator", generator.ModelID()))
	}
	log.Info("engine ready", fields...)

	return &Engine{store: store, retriever: r, composer: composer, links: links, searchK: searchK, log: log}, nil
}

// Recommend returns recommendation text for a query.
func (e *Engine) Recommend(ctx context.Context, query string) (string, error) {
	return e.composer.Recommend(ctx, query)
}

// Compose is Recommend with outcome and sources.
func (e *Engine) Compose(ctx context.Context, query string) (*recommend.Result, error) {
	return e.composer.Compose(ctx, query)
}

// Search returns up to k matches with card details; k <= 0 uses the configured default.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		k = e.searchK
	}
	results, err := e.retriever.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			Rank:    i + 1,
			Score:   r.Score,
			Chunk:   r.Chunk,
			Details: assessment.Parse(r.Chunk.Text, r.Chunk.Metadata.URLSlug, r.Chunk.Metadata.Title, e.links),
		}
	}
	return matches, nil
}

// IndexSize is the number of entries in the loaded index.
func (e *Engine) IndexSize() int { return e.store.Len() }

func checkDimension(ctx context.Context, path string, embedder domain.Embedder, want int) error {
	vectors, err := embedder.Embed(ctx, []string{dimensionCheckText})
	if err != nil {
		return fmt.Errorf("check embedding dimension: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != want {
		got := 0
		if len(vectors) > 0 {
			got = len(vectors[0])
		}
		return &domain.IndexLoadError{
			Path:   path,
			Reason: "embedder dimension mismatch",
			Err:    fmt.Errorf("%w: index has %d, embedder returns %d", domain.ErrDimension, want, got),
		}
	}
	return nil
}
