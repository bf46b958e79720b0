package domain

import "context"

// CatalogRecord is one normalized catalog item as produced by the external normalizer.
type CatalogRecord struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	URLSlug  string `json:"url_slug"`
}

// ChunkMetadata carries every CatalogRecord field except the content, plus the
// chunk's position within its record.
type ChunkMetadata struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	URLSlug  string `json:"url_slug"`
	Index    int    `json:"index"`
}

// Chunk is a bounded segment of a record's content used for embedding and retrieval.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// IndexEntry pairs an embedding vector with the chunk it was computed from.
type IndexEntry struct {
	Vector []float32
	Chunk  Chunk
}

// SearchResult represents a matching chunk with a relevance score (higher is better).
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Embedder converts text into fixed-dimension vectors.
// Failures must be reported as *ProviderError so callers can tell transient from
// permanent conditions.
type Embedder interface {
	ModelID() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces free text for a prompt.
type Generator interface {
	ModelID() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chunker splits records into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(record CatalogRecord) ([]Chunk, error)
}

// Retriever returns the chunks most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)
}
