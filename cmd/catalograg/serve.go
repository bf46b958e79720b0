package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"catalograg/internal/api"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Routes:
  POST /recommend   {"query": "..."}          -> {"recommendation": "..."}
  POST /search      {"query": "...", "k": 5}  -> {"results": [...]}
  GET  /health                                -> {"status": "healthy"}
  GET  /metrics                               Prometheus metrics

The index bundle must load cleanly; otherwise the server does not start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer a.close()
			if host != "" {
				a.cfg.Server.Host = host
			}
			if port != 0 {
				a.cfg.Server.Port = port
			}
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default from config)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	engine, err := a.engine(ctx)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	server := api.NewServer(addr, api.NewRouter(engine, a.log, a.metrics), a.log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
