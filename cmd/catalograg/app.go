package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"catalograg/internal/assessment"
	"catalograg/internal/config"
	"catalograg/internal/embedding"
	"catalograg/internal/generation"
	"catalograg/internal/logger"
	"catalograg/internal/metrics"
	"catalograg/internal/service"
	"catalograg/internal/vectorstore"
)

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg        *config.AppConfig
	configPath string
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func loadApp(flags *globalFlags) (*app, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	var (
		cfg  *config.AppConfig
		path = flags.configPath
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	log.Debug("configuration loaded", zap.String("path", path))
	return &app{cfg: cfg, configPath: path, log: log, metrics: metrics.New()}, nil
}

func (a *app) close() { _ = a.log.Sync() }

// engine loads the index bundle. Any load failure is fatal for the caller.
func (a *app) engine(ctx context.Context) (*service.Engine, error) {
	emb, err := embedding.New(a.cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	gen, err := generation.New(a.cfg.Generator, a.log)
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}
	links, err := assessment.LoadLinks(a.cfg.Catalog.Links)
	if err != nil {
		a.log.Warn("ignoring links file", zap.String("path", a.cfg.Catalog.Links), zap.Error(err))
		links = assessment.Links{}
	}
	metric, err := vectorstore.ParseMetric(a.cfg.Index.Metric)
	if err != nil {
		return nil, err
	}
	return service.NewEngine(ctx, service.EngineConfig{
		IndexPath:  a.cfg.Index.Path,
		Metric:     metric,
		RecommendK: a.cfg.Retrieval.RecommendK,
		SearchK:    a.cfg.Retrieval.SearchK,
		Links:      links,
	}, emb, gen, a.log, a.metrics)
}
