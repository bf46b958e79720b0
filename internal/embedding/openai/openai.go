package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"catalograg/internal/domain"
)

const (
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 30 * time.Second
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
// It never retries: callers decide based on the returned error classification.
type Client struct {
	client *goopenai.Client
	model  string
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{client: goopenai.NewClientWithConfig(oc), model: cfg.Model}, nil
}

// ModelID returns the embedding model name.
func (c *Client) ModelID() string { return c.model }

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := c.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(c.model),
		Input: texts,
	})
	if err != nil {
		return nil, Classify("embedding", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.NewPermanentError("embedding", 0,
			fmt.Errorf("got %d vectors for %d texts", len(resp.Data), len(texts)))
	}
	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = i
		}
		out[idx] = d.Embedding
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, domain.NewPermanentError("embedding", 0, fmt.Errorf("empty vector for text %d", i))
		}
	}
	return out, nil
}

// exhaustedCodes are provider error codes that signal quota or throughput limits.
var exhaustedCodes = map[string]struct{}{
	"rate_limit_exceeded": {},
	"RESOURCE_EXHAUSTED":  {},
	"resource_exhausted":  {},
}

// Classify converts a go-openai error into a *domain.ProviderError. HTTP 429 and
// resource-exhausted codes are transient; everything else is permanent.
func Classify(op string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || isExhaustedCode(apiErr.Code) {
			return domain.NewTransientError(op, apiErr.HTTPStatusCode, err)
		}
		return domain.NewPermanentError(op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return domain.NewTransientError(op, reqErr.HTTPStatusCode, err)
		}
		return domain.NewPermanentError(op, reqErr.HTTPStatusCode, err)
	}
	return domain.NewPermanentError(op, 0, err)
}

func isExhaustedCode(code any) bool {
	s, ok := code.(string)
	if !ok {
		return false
	}
	_, hit := exhaustedCodes[s]
	return hit
}
