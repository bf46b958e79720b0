package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/domain"
	"catalograg/internal/metrics"
)

type fakeRetriever struct {
	results []domain.SearchResult
	err     error
	gotK    int
}

func (f *fakeRetriever) Search(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	f.gotK = k
	return f.results, f.err
}

type fakeGenerator struct {
	out    string
	err    error
	prompt string
}

func (f *fakeGenerator) ModelID() string { return "fake" }

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func result(title, text string) domain.SearchResult {
	return domain.SearchResult{Chunk: domain.Chunk{Text: text, Metadata: domain.ChunkMetadata{Title: title}}}
}

func TestComposeEmpty(t *testing.T) {
	gen := &fakeGenerator{out: "should not be called"}
	c, err := NewComposer(&fakeRetriever{}, gen)
	require.NoError(t, err)

	res, err := c.Compose(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, NoResultsMessage, res.Text)
	assert.Equal(t, metrics.OutcomeEmpty, res.Outcome)
	assert.Empty(t, gen.prompt)
}

func TestComposeGenerated(t *testing.T) {
	r := &fakeRetriever{results: []domain.SearchResult{result("A", "first text"), result("B", "second text")}}
	gen := &fakeGenerator{out: "Use assessment A."}
	c, err := NewComposer(r, gen)
	require.NoError(t, err)

	res, err := c.Compose(context.Background(), "coding test")
	require.NoError(t, err)
	assert.Equal(t, "Use assessment A.", res.Text)
	assert.Equal(t, metrics.OutcomeGenerated, res.Outcome)
	assert.Equal(t, DefaultTopK, r.gotK)

	assert.Contains(t, gen.prompt, "Context:\nfirst text\n\nsecond text\n")
	assert.Contains(t, gen.prompt, "User Request: coding test\n")
	assert.Contains(t, gen.prompt, "say you don't have enough information")
}

func TestComposeGenerationFailedListing(t *testing.T) {
	long := strings.Repeat("x", 350)
	r := &fakeRetriever{results: []domain.SearchResult{result("A", long), result("", "short")}}
	gen := &fakeGenerator{err: domain.NewTransientError("generate", 429, errors.New("quota"))}
	c, err := NewComposer(r, gen)
	require.NoError(t, err)

	text, err := c.Recommend(context.Background(), "q")
	require.NoError(t, err)
	want := GenerationFailedHeader +
		"**1. A**\n" + strings.Repeat("x", 300) + "...\n\n" +
		"**2. Unknown Title**\nshort...\n\n"
	assert.Equal(t, want, text)
}

func TestComposeNoGeneratorListing(t *testing.T) {
	long := strings.Repeat("y", 350)
	r := &fakeRetriever{results: []domain.SearchResult{result("A", long), result("B", "tiny")}}
	c, err := NewComposer(r, nil)
	require.NoError(t, err)

	res, err := c.Compose(context.Background(), "q")
	require.NoError(t, err)
	want := NoGeneratorHeader +
		"1. A\n   " + strings.Repeat("y", 200) + "...\n\n" +
		"2. B\n   tiny...\n\n"
	assert.Equal(t, want, res.Text)
	assert.Equal(t, metrics.OutcomeNoGenerator, res.Outcome)
	assert.Len(t, res.Sources, 2)
}

func TestComposeRetrievalErrorIsReturned(t *testing.T) {
	r := &fakeRetriever{err: domain.NewPermanentError("embed", 500, errors.New("down"))}
	c, err := NewComposer(r, &fakeGenerator{})
	require.NoError(t, err)

	_, err = c.Recommend(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, domain.IsPermanent(err))
}

func TestComposeCountsOutcomes(t *testing.T) {
	m := metrics.New()
	r := &fakeRetriever{results: []domain.SearchResult{result("A", "text")}}
	c, err := NewComposer(r, &fakeGenerator{err: errors.New("boom")}, WithMetrics(m), WithTopK(2))
	require.NoError(t, err)

	_, err = c.Recommend(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, r.gotK)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "catalograg_recommendations_total" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestExcerptCountsRunes(t *testing.T) {
	assert.Equal(t, "héllo", Excerpt("héllo wörld", 5))
	assert.Equal(t, "ab", Excerpt("ab", 5))
}
