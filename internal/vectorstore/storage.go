package vectorstore

import (
	"fmt"

	"catalograg/internal/domain"
)

// Storage owns index entries and supports similarity search.
type Storage interface {
	// Build creates the index from a non-empty first batch.
	Build(entries []domain.IndexEntry) error
	// Append adds entries to a built index without touching existing ones.
	Append(entries []domain.IndexEntry) error
	Search(vector []float32, topK int) ([]domain.SearchResult, error)
	// Save writes the index to dir as a self-contained bundle.
	Save(dir string) error
	Len() int
}

// Metric is the distance function used for search.
type Metric string

const (
	MetricL2     Metric = "l2"
	MetricCosine Metric = "cosine"
)

// ParseMetric accepts "l2" and "cosine"; the empty string means l2.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricL2:
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// Bundle layout.
const (
	FormatVersion = 1
	ManifestFile  = "manifest.json"
	VectorsFile   = "vectors.gob"
	DocstoreFile  = "docstore.json"
)

// Manifest describes a persisted bundle.
type Manifest struct {
	FormatVersion  int    `json:"format_version"`
	Dimension      int    `json:"dimension"`
	Metric         Metric `json:"metric"`
	Count          int    `json:"count"`
	EmbeddingModel string `json:"embedding_model"`
}
