package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalograg/internal/domain"
	"catalograg/internal/metrics"
)

// Index is the read side of a vector store.
type Index interface {
	Search(vector []float32, topK int) ([]domain.SearchResult, error)
}

// Retriever embeds queries and looks them up in an index. It never mutates the index.
type Retriever struct {
	embedder domain.Embedder
	index    Index
	metrics  *metrics.Metrics
}

func New(embedder domain.Embedder, index Index, m *metrics.Metrics) (*Retriever, error) {
	if embedder == nil || index == nil {
		return nil, errors.New("retriever: embedder and index are required")
	}
	return &Retriever{embedder: embedder, index: index, metrics: m}, nil
}

// Search returns at most k results ordered by descending relevance.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	start := time.Now()
	defer func() { r.metrics.ObserveRetrieval(time.Since(start)) }()

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	results, err := r.index.Search(vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

var _ domain.Retriever = (*Retriever)(nil)
