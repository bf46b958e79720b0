package embedding

import (
	"fmt"
	"time"

	"catalograg/internal/config"
	"catalograg/internal/domain"
	"catalograg/internal/embedding/hashing"
	"catalograg/internal/embedding/openai"
)

// New builds the embedder selected by cfg.Type.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Hashing.Dimension)
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			Timeout: time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
