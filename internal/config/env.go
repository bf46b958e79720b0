package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvOverrides holds environment-based overrides of the file configuration.
// Unset variables leave the file value untouched. Tags carry the full variable
// name so envconfig never falls back to unprefixed names like PORT.
type EnvOverrides struct {
	EmbedderType           string   `envconfig:"CATALOGRAG_EMBEDDER_TYPE"`
	EmbeddingModel         string   `envconfig:"CATALOGRAG_EMBEDDING_MODEL"`
	GenerationModel        string   `envconfig:"CATALOGRAG_GENERATION_MODEL"`
	APIKey                 string   `envconfig:"CATALOGRAG_API_KEY"`
	BatchSize              *int     `envconfig:"CATALOGRAG_BATCH_SIZE"`
	BaseBackoffSeconds     *float64 `envconfig:"CATALOGRAG_BASE_BACKOFF_SECONDS"`
	MaxRetries             *int     `envconfig:"CATALOGRAG_MAX_RETRIES"`
	InterBatchDelaySeconds *float64 `envconfig:"CATALOGRAG_INTER_BATCH_DELAY_SECONDS"`
	IndexPath              string   `envconfig:"CATALOGRAG_INDEX_PATH"`
	LogLevel               string   `envconfig:"CATALOGRAG_LOG_LEVEL"`
	LogFormat              string   `envconfig:"CATALOGRAG_LOG_FORMAT"`
	Host                   string   `envconfig:"CATALOGRAG_HOST"`
	Port                   int      `envconfig:"CATALOGRAG_PORT"`
}

// LoadEnvOverrides reads CATALOGRAG_* variables.
func LoadEnvOverrides() (EnvOverrides, error) {
	var env EnvOverrides
	if err := envconfig.Process("", &env); err != nil {
		return EnvOverrides{}, err
	}
	return env, nil
}

// LoadDotEnv loads variables from a .env file without overriding the existing
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func applyEnv(cfg *AppConfig) error {
	env, err := LoadEnvOverrides()
	if err != nil {
		return err
	}
	env.apply(cfg)
	cfg.Embedder.OpenAI.APIKey = resolveAPIKey(env.APIKey, cfg.Embedder.OpenAI.APIKeyEnv)
	cfg.Generator.APIKey = resolveAPIKey(env.APIKey, cfg.Generator.APIKeyEnv)
	return nil
}

func (e EnvOverrides) apply(cfg *AppConfig) {
	if e.EmbedderType != "" {
		cfg.Embedder.Type = e.EmbedderType
	}
	if e.EmbeddingModel != "" {
		cfg.Embedder.OpenAI.Model = e.EmbeddingModel
	}
	if e.GenerationModel != "" {
		cfg.Generator.Model = e.GenerationModel
	}
	if e.BatchSize != nil {
		cfg.Ingest.BatchSize = *e.BatchSize
	}
	if e.BaseBackoffSeconds != nil {
		cfg.Ingest.BaseBackoffSeconds = *e.BaseBackoffSeconds
	}
	if e.MaxRetries != nil {
		cfg.Ingest.MaxRetries = *e.MaxRetries
	}
	if e.InterBatchDelaySeconds != nil {
		cfg.Ingest.InterBatchDelaySeconds = *e.InterBatchDelaySeconds
	}
	if e.IndexPath != "" {
		cfg.Index.Path = e.IndexPath
	}
	if e.LogLevel != "" {
		cfg.Log.Level = e.LogLevel
	}
	if e.LogFormat != "" {
		cfg.Log.Format = e.LogFormat
	}
	if e.Host != "" {
		cfg.Server.Host = e.Host
	}
	if e.Port != 0 {
		cfg.Server.Port = e.Port
	}
}

// resolveAPIKey prefers the explicit CATALOGRAG_API_KEY over the provider variable.
func resolveAPIKey(explicit, keyEnv string) string {
	if explicit != "" {
		return explicit
	}
	if keyEnv == "" {
		return ""
	}
	return os.Getenv(keyEnv)
}
