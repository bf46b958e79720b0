package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"catalograg/internal/domain"
	"catalograg/internal/metrics"
)

const (
	// DefaultTopK is how many chunks ground a recommendation.
	DefaultTopK = 4

	NoResultsMessage       = "I couldn't find any relevant assessments for your request."
	GenerationFailedHeader = "I couldn't generate a summarized recommendation due to high server load, but here are the most relevant assessments I found:\n\n"
	NoGeneratorHeader      = "Based on your query, here are some relevant assessments:\n"
	UnknownTitle           = "Unknown Title"

	generationFailedExcerpt = 300
	noGeneratorExcerpt      = 200
)

const promptTemplate = `You are an expert consultant for SHL, a global leader in talent acquisition and management.
Your goal is to recommend the best assessments based on the user's needs.

Use the following context (details about SHL assessments) to answer the user's request.
If the answer is not in the context, say you don't have enough information.

Context:
%s

User Request: %s

Recommendation:
`

// Result is a recommendation together with how it was produced.
type Result struct {
	Text    string
	Outcome string
	Sources []domain.SearchResult
}

// Composer turns a query into recommendation text, degrading to plain listings
// when no generator is configured or generation fails.
type Composer struct {
	retriever domain.Retriever
	generator domain.Generator
	topK      int
	log       *zap.Logger
	metrics   *metrics.Metrics
}

type Option func(*Composer)

func WithTopK(k int) Option { return func(c *Composer) { c.topK = k } }

func WithLogger(log *zap.Logger) Option { return func(c *Composer) { c.log = log } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Composer) { c.metrics = m } }

// NewComposer creates a Composer. generator may be nil.
func NewComposer(retriever domain.Retriever, generator domain.Generator, opts ...Option) (*Composer, error) {
	if retriever == nil {
		return nil, errors.New("recommend: retriever is required")
	}
	c := &Composer{
		retriever: retriever,
		generator: generator,
		topK:      DefaultTopK,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.topK <= 0 {
		c.topK = DefaultTopK
	}
	return c, nil
}

// Recommend returns the recommendation text. Only retrieval failures are errors.
func (c *Composer) Recommend(ctx context.Context, query string) (string, error) {
	res, err := c.Compose(ctx, query)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (c *Composer) Compose(ctx context.Context, query string) (*Result, error) {
	results, err := c.retriever.Search(ctx, query, c.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(results) == 0 {
		return c.done(&Result{Text: NoResultsMessage, Outcome: metrics.OutcomeEmpty}), nil
	}

	if c.generator == nil {
		return c.done(&Result{
			Text:    listing(NoGeneratorHeader, results, noGeneratorExcerpt, "%d. %s\n   %s...\n\n"),
			Outcome: metrics.OutcomeNoGenerator,
			Sources: results,
		}), nil
	}

	out, err := c.generator.Generate(ctx, BuildPrompt(contextBlock(results), query))
	if err != nil {
		c.log.Warn("generation failed, falling back to raw results",
			zap.String("model", c.generator.ModelID()),
			zap.Bool("transient", domain.IsTransient(err)),
			zap.Error(err))
		return c.done(&Result{
			Text:    listing(GenerationFailedHeader, results, generationFailedExcerpt, "**%d. %s**\n%s...\n\n"),
			Outcome: metrics.OutcomeGenerationFailed,
			Sources: results,
		}), nil
	}
	return c.done(&Result{Text: out, Outcome: metrics.OutcomeGenerated, Sources: results}), nil
}

func (c *Composer) done(r *Result) *Result {
	c.metrics.Recommendation(r.Outcome)
	c.log.Debug("recommendation composed", zap.String("outcome", r.Outcome), zap.Int("sources", len(r.Sources)))
	return r
}

// BuildPrompt fills the grounded recommendation prompt.
func BuildPrompt(contextText, query string) string {
	return fmt.Sprintf(promptTemplate, contextText, query)
}

func contextBlock(results []domain.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}

func listing(header string, results []domain.SearchResult, excerptLen int, format string) string {
	var b strings.Builder
	b.WriteString(header)
	for i, r := range results {
		fmt.Fprintf(&b, format, i+1, Title(r.Chunk), Excerpt(r.Chunk.Text, excerptLen))
	}
	return b.String()
}

// Title returns the chunk's title or UnknownTitle.
func Title(ch domain.Chunk) string {
	if strings.TrimSpace(ch.Metadata.Title) == "" {
		return UnknownTitle
	}
	return ch.Metadata.Title
}

// Excerpt returns at most n runes of text.
func Excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
