package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/chunker"
	"catalograg/internal/domain"
)

const sample = `[
  {"filename": "java-8.html", "title": "Java 8 | SHL", "content": "Java coding test", "url_slug": "java-8"},
  {"filename": "empty.html", "title": "Empty", "content": "   ", "url_slug": "empty"},
  {"filename": "sales.html", "title": "Sales", "content": "Sales questionnaire", "url_slug": "sales"}
]`

func TestLoadRecordsDropsEmptyContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.CatalogRecord{
		Filename: "java-8.html", Title: "Java 8 | SHL", Content: "Java coding test", URLSlug: "java-8",
	}, records[0])
	assert.Equal(t, "sales", records[1].URLSlug)
}

func TestLoadRecordsErrors(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = ParseRecords([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestChunkAllKeepsOrder(t *testing.T) {
	records, err := ParseRecords([]byte(sample))
	require.NoError(t, err)
	c, err := chunker.NewRecursiveChunker(10, 2)
	require.NoError(t, err)

	chunks, err := ChunkAll(c, records)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "java-8.html", chunks[0].Metadata.Filename)
	assert.Equal(t, "sales.html", chunks[len(chunks)-1].Metadata.Filename)
}
