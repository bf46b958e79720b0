package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"catalograg/internal/vectorstore"
)

// HashingEmbedderConfig configures the local feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	// APIKey is resolved from the environment, never stored in the file.
	APIKey string `yaml:"-"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                `yaml:"type"`
	Hashing HashingEmbedderConfig `yaml:"hashing"`
	OpenAI  OpenAIEmbedderConfig  `yaml:"openai"`
}

// GeneratorConfig configures the optional chat model. Type "none" disables it.
type GeneratorConfig struct {
	Type        string  `yaml:"type"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	// TimeoutSecs of 0 means no client timeout.
	TimeoutSecs int    `yaml:"timeout_secs"`
	APIKey      string `yaml:"-"`
}

// ChunkerConfig configures how records are split into chunks.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// IngestConfig controls embedding batches and pacing.
type IngestConfig struct {
	BatchSize              int     `yaml:"batch_size"`
	BaseBackoffSeconds     float64 `yaml:"base_backoff_seconds"`
	MaxRetries             int     `yaml:"max_retries"`
	InterBatchDelaySeconds float64 `yaml:"inter_batch_delay_seconds"`
}

func (c IngestConfig) BaseBackoff() time.Duration { return seconds(c.BaseBackoffSeconds) }

func (c IngestConfig) InterBatchDelay() time.Duration { return seconds(c.InterBatchDelaySeconds) }

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// IndexConfig locates the persisted bundle.
type IndexConfig struct {
	Path   string `yaml:"path"`
	Metric string `yaml:"metric"`
}

// RetrievalConfig sets result counts for recommendations and card search.
type RetrievalConfig struct {
	RecommendK int `yaml:"recommend_k"`
	SearchK    int `yaml:"search_k"`
}

// CatalogConfig points at ingestion input and the optional curated links file.
type CatalogConfig struct {
	Input string `yaml:"input"`
	Links string `yaml:"links"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from path, applies defaults and environment overrides, and
// validates the result. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyConfigDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/catalograg/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); errors.Is(err, os.ErrNotExist) {
		if err := Save(userPath, defaultConfig()); err != nil {
			return nil, "", err
		}
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "catalograg", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "hashing"},
		Generator: GeneratorConfig{
			Type:        "openai",
			Temperature: 0.3,
		},
		Chunker: ChunkerConfig{ChunkSize: 1000, ChunkOverlap: 200},
		Ingest: IngestConfig{
			BatchSize:              2,
			BaseBackoffSeconds:     5,
			MaxRetries:             5,
			InterBatchDelaySeconds: 10,
		},
		Index:     IndexConfig{Path: "data/index", Metric: string(vectorstore.MetricL2)},
		Retrieval: RetrievalConfig{RecommendK: 4, SearchK: 5},
		Catalog:   CatalogConfig{Input: "data/catalog.json", Links: "data/links.json"},
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8000},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Hashing.Dimension == 0 {
		cfg.Embedder.Hashing.Dimension = 384
	}
	oa := &cfg.Embedder.OpenAI
	if oa.BaseURL == "" {
		oa.BaseURL = "https://api.openai.com/v1"
	}
	if oa.APIKeyEnv == "" {
		oa.APIKeyEnv = "OPENAI_API_KEY"
	}
	if oa.Model == "" {
		oa.Model = "text-embedding-3-small"
	}
	if oa.TimeoutSecs == 0 {
		oa.TimeoutSecs = 30
	}

	gen := &cfg.Generator
	if gen.Type == "" {
		gen.Type = "openai"
	}
	if gen.BaseURL == "" {
		gen.BaseURL = "https://api.openai.com/v1"
	}
	if gen.APIKeyEnv == "" {
		gen.APIKeyEnv = "OPENAI_API_KEY"
	}
	if gen.Model == "" {
		gen.Model = "gpt-4o-mini"
	}

	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 2
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "data/index"
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = string(vectorstore.MetricL2)
	}
	if cfg.Retrieval.RecommendK == 0 {
		cfg.Retrieval.RecommendK = 4
	}
	if cfg.Retrieval.SearchK == 0 {
		cfg.Retrieval.SearchK = 5
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// Validate rejects settings no component can run with.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Embedder.Type {
	case "hashing", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedder.type: unknown %q", c.Embedder.Type))
	}
	switch c.Generator.Type {
	case "none", "openai":
	default:
		errs = append(errs, fmt.Errorf("generator.type: unknown %q", c.Generator.Type))
	}
	if c.Embedder.Hashing.Dimension <= 0 {
		errs = append(errs, errors.New("embedder.hashing.dimension must be positive"))
	}
	if c.Chunker.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunker.chunk_size must be positive"))
	}
	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errs = append(errs, fmt.Errorf("chunker.chunk_overlap must be in [0, %d)", c.Chunker.ChunkSize))
	}
	if c.Ingest.BatchSize <= 0 {
		errs = append(errs, errors.New("ingest.batch_size must be positive"))
	}
	if c.Ingest.MaxRetries < 0 {
		errs = append(errs, errors.New("ingest.max_retries must not be negative"))
	}
	if c.Ingest.BaseBackoffSeconds < 0 || c.Ingest.InterBatchDelaySeconds < 0 {
		errs = append(errs, errors.New("ingest delays must not be negative"))
	}
	if _, err := vectorstore.ParseMetric(c.Index.Metric); err != nil {
		errs = append(errs, fmt.Errorf("index.metric: %w", err))
	}
	if c.Retrieval.RecommendK <= 0 || c.Retrieval.SearchK <= 0 {
		errs = append(errs, errors.New("retrieval counts must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
