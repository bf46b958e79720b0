package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"catalograg/internal/domain"
)

// LoadRecords reads a JSON array of catalog records. Records without content
// are dropped since they produce no chunks.
func LoadRecords(path string) ([]domain.CatalogRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseRecords(data)
}

func ParseRecords(data []byte) ([]domain.CatalogRecord, error) {
	var records []domain.CatalogRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	out := records[:0]
	for _, r := range records {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ChunkAll chunks every record in order, preserving record order in the output.
func ChunkAll(c domain.Chunker, records []domain.CatalogRecord) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, r := range records {
		cs, err := c.Chunk(r)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", r.Filename, err)
		}
		chunks = append(chunks, cs...)
	}
	return chunks, nil
}
