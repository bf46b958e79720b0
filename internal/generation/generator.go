package generation

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalograg/internal/config"
	"catalograg/internal/domain"
	"catalograg/internal/generation/openai"
)

// New builds the configured generator. It returns a nil Generator, not an error,
// when generation is disabled or no API key is available.
func New(cfg config.GeneratorConfig, log *zap.Logger) (domain.Generator, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "openai", "":
		if cfg.APIKey == "" {
			log.Warn("no API key for generator, recommendations will list raw results",
				zap.String("api_key_env", cfg.APIKeyEnv))
			return nil, nil
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}
