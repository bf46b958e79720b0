package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catalograg/internal/catalog"
	"catalograg/internal/chunker"
	"catalograg/internal/embedding"
	"catalograg/internal/ingest"
	"catalograg/internal/service"
	"catalograg/internal/vectorstore"
)

func ingestCmd(flags *globalFlags) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk, embed and index the catalog",
		Long: `Read catalog records (a JSON array of {filename, title, content, url_slug}),
split them into overlapping chunks, embed them in paced batches and write the
index bundle. Transient provider failures are retried with exponential backoff;
an aborted run leaves any previous bundle untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer a.close()
			if input != "" {
				a.cfg.Catalog.Input = input
			}
			if output != "" {
				a.cfg.Index.Path = output
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, cmd, a)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Catalog JSON file (default from config)")
	cmd.Flags().StringVar(&output, "output", "", "Index bundle directory (default from config)")
	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, a *app) error {
	records, err := catalog.LoadRecords(a.cfg.Catalog.Input)
	if err != nil {
		return err
	}
	ch, err := chunker.NewRecursiveChunker(a.cfg.Chunker.ChunkSize, a.cfg.Chunker.ChunkOverlap)
	if err != nil {
		return err
	}
	emb, err := embedding.New(a.cfg.Embedder)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}
	metric, err := vectorstore.ParseMetric(a.cfg.Index.Metric)
	if err != nil {
		return err
	}
	opts := ingest.Options{
		BatchSize:       a.cfg.Ingest.BatchSize,
		BaseBackoff:     a.cfg.Ingest.BaseBackoff(),
		MaxRetries:      a.cfg.Ingest.MaxRetries,
		InterBatchDelay: a.cfg.Ingest.InterBatchDelay(),
	}
	x, err := service.NewIndexer(ch, emb, opts, metric, a.log, a.metrics)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	progress := ingest.WithProgress(func(p ingest.Progress) {
		fmt.Fprintf(out, "batch %d/%d committed (%d chunks)\n", p.Batch, p.Batches, p.Chunks)
	})
	report, err := x.Index(ctx, records, a.cfg.Index.Path, progress)
	if err != nil {
		return err
	}
	a.log.Info("index written", zap.String("path", a.cfg.Index.Path), zap.String("run_id", report.RunID))
	fmt.Fprintf(out, "indexed %d chunks from %d records into %s (%d retries, %s)\n",
		report.ChunksCommitted, len(records), a.cfg.Index.Path, report.Retries, report.Elapsed.Round(time.Millisecond))
	return nil
}
