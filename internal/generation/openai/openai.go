package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"catalograg/internal/domain"
	embedopenai "catalograg/internal/embedding/openai"
)

// DefaultTemperature keeps recommendations close to the retrieved context.
const DefaultTemperature = 0.3

// Client generates text through an OpenAI-compatible chat completion endpoint.
type Client struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

// Config configures the chat completion client. A zero Timeout leaves the
// HTTP client without a deadline.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// NewClient creates a chat completion client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai generator: missing API key")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai generator: missing model")
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		client:      goopenai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// ModelID returns the chat model name.
func (c *Client) ModelID() string { return c.model }

// Generate sends prompt as a single user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", embedopenai.Classify("chat_completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewPermanentError("chat_completion", 0, errors.New("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}
