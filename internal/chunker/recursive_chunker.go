package chunker

import (
	"fmt"
	"strings"

	"catalograg/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators are tried in order when looking for a cut point.
var separators = [][]rune{[]rune("\n\n"), []rune("\n"), []rune(" ")}

// RecursiveChunker splits text into windows of at most size characters where
// consecutive windows share exactly overlap characters. Cuts prefer paragraph,
// then line, then word boundaries, and fall back to a raw cut.
type RecursiveChunker struct {
	size    int
	overlap int
}

// NewRecursiveChunker validates the window parameters.
func NewRecursiveChunker(size, overlap int) (*RecursiveChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be in [0, %d)", overlap, size)
	}
	return &RecursiveChunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in characters.
func (c *RecursiveChunker) Size() int { return c.size }

// Overlap returns the shared character count between adjacent chunks.
func (c *RecursiveChunker) Overlap() int { return c.overlap }

// Chunk splits a record's content and attaches the record metadata to every chunk.
func (c *RecursiveChunker) Chunk(record domain.CatalogRecord) ([]domain.Chunk, error) {
	if strings.TrimSpace(record.Content) == "" {
		return nil, nil
	}
	texts := c.Split(record.Content)
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			Text: text,
			Metadata: domain.ChunkMetadata{
				Filename: record.Filename,
				Title:    record.Title,
				URLSlug:  record.URLSlug,
				Index:    i,
			},
		}
	}
	return chunks, nil
}

// Split returns the chunk texts for text. Empty input yields no chunks.
func (c *RecursiveChunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	var out []string
	start := 0
	for n-start > c.size {
		cut := c.cutPoint(runes, start)
		out = append(out, string(runes[start:cut]))
		start = cut - c.overlap
	}
	return append(out, string(runes[start:]))
}

// cutPoint picks the end of the window starting at start. The cut is always in
// (start+overlap, start+size] so the next window starts strictly later.
func (c *RecursiveChunker) cutPoint(runes []rune, start int) int {
	limit := start + c.size
	floor := start + c.overlap
	for _, sep := range separators {
		if cut := lastBoundary(runes, sep, floor, limit); cut > 0 {
			return cut
		}
	}
	return limit
}

// lastBoundary returns the largest end in (floor, limit] such that runes[end-len(sep):end]
// equals sep, or -1.
func lastBoundary(runes, sep []rune, floor, limit int) int {
	for end := limit; end > floor && end-len(sep) >= 0; end-- {
		if hasSuffixAt(runes, sep, end) {
			return end
		}
	}
	return -1
}

func hasSuffixAt(runes, sep []rune, end int) bool {
	base := end - len(sep)
	for i, r := range sep {
		if runes[base+i] != r {
			return false
		}
	}
	return true
}
