package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalograg/internal/domain"
	"catalograg/internal/metrics"
	"catalograg/internal/vectorstore"
)

// State of an ingestion run.
type State int

const (
	StatePending State = iota
	StateEmbedding
	StateRetryWait
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateEmbedding:
		return "embedding"
	case StateRetryWait:
		return "retry_wait"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	DefaultBatchSize       = 2
	DefaultBaseBackoff     = 5 * time.Second
	DefaultMaxRetries      = 5
	DefaultInterBatchDelay = 10 * time.Second

	// MaxBackoff bounds a single retry wait.
	MaxBackoff = 10 * time.Minute
)

// Options controls batching, backoff and pacing.
type Options struct {
	BatchSize   int
	BaseBackoff time.Duration
	// MaxRetries is the number of retries per batch after its first attempt.
	MaxRetries      int
	InterBatchDelay time.Duration
}

// DefaultOptions returns the production pacing.
func DefaultOptions() Options {
	return Options{
		BatchSize:       DefaultBatchSize,
		BaseBackoff:     DefaultBaseBackoff,
		MaxRetries:      DefaultMaxRetries,
		InterBatchDelay: DefaultInterBatchDelay,
	}
}

func (o Options) validate() error {
	switch {
	case o.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive, got %d", o.BatchSize)
	case o.MaxRetries < 0:
		return fmt.Errorf("max retries must not be negative, got %d", o.MaxRetries)
	case o.BaseBackoff < 0 || o.InterBatchDelay < 0:
		return errors.New("delays must not be negative")
	}
	return nil
}

// backoff returns base doubled retry times, capped at MaxBackoff.
func backoff(base time.Duration, retry int) time.Duration {
	if base <= 0 {
		return 0
	}
	if retry >= 63 || base > MaxBackoff>>uint(retry) {
		return MaxBackoff
	}
	return base << uint(retry)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Progress is reported after every committed batch.
type Progress struct {
	Batch   int
	Batches int
	Chunks  int
}

// Report summarizes a run.
type Report struct {
	RunID            string
	BatchesTotal     int
	BatchesCommitted int
	ChunksCommitted  int
	Retries          int
	State            State
	Elapsed          time.Duration
}

// Ingestor embeds chunks in paced batches and persists the resulting index once.
type Ingestor struct {
	embedder   domain.Embedder
	store      vectorstore.Storage
	opts       Options
	sleep      SleepFunc
	log        *zap.Logger
	metrics    *metrics.Metrics
	onProgress func(Progress)
	now        func() time.Time
}

// Option customizes an Ingestor.
type Option func(*Ingestor)

func WithSleep(fn SleepFunc) Option { return func(in *Ingestor) { in.sleep = fn } }

func WithLogger(log *zap.Logger) Option { return func(in *Ingestor) { in.log = log } }

func WithMetrics(m *metrics.Metrics) Option { return func(in *Ingestor) { in.metrics = m } }

func WithProgress(fn func(Progress)) Option { return func(in *Ingestor) { in.onProgress = fn } }

// New creates an Ingestor writing into store, which must not have been built yet.
func New(embedder domain.Embedder, store vectorstore.Storage, opts Options, options ...Option) (*Ingestor, error) {
	if embedder == nil || store == nil {
		return nil, errors.New("ingest: embedder and store are required")
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	in := &Ingestor{
		embedder: embedder,
		store:    store,
		opts:     opts,
		sleep:    sleepContext,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range options {
		o(in)
	}
	return in, nil
}

// Run embeds every chunk, commits batch by batch and saves the store to bundleDir.
// On abort nothing is written and the error wraps domain.ErrIngestionAborted.
func (in *Ingestor) Run(ctx context.Context, chunks []domain.Chunk, bundleDir string) (*Report, error) {
	start := in.now()
	report := &Report{RunID: uuid.NewString(), State: StatePending}
	log := in.log.With(zap.String("run_id", report.RunID))

	if len(chunks) == 0 {
		report.State = StateAborted
		return report, domain.ErrNothingToIndex
	}

	batches := split(chunks, in.opts.BatchSize)
	report.BatchesTotal = len(batches)
	log.Info("ingestion started",
		zap.Int("chunks", len(chunks)),
		zap.Int("batches", len(batches)),
		zap.String("model", in.embedder.ModelID()))

	abort := func(cause error) (*Report, error) {
		report.State = StateAborted
		report.Elapsed = in.now().Sub(start)
		in.metrics.BatchAborted()
		log.Error("ingestion aborted",
			zap.Int("committed_batches", report.BatchesCommitted),
			zap.Int("retries", report.Retries),
			zap.Error(cause))
		return report, fmt.Errorf("%w: %w", domain.ErrIngestionAborted, cause)
	}

	for i, batch := range batches {
		vectors, err := in.embedBatch(ctx, log, report, i, batch)
		if err != nil {
			return abort(fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err))
		}

		entries := make([]domain.IndexEntry, len(batch))
		for j := range batch {
			entries[j] = domain.IndexEntry{Vector: vectors[j], Chunk: batch[j]}
		}
		if i == 0 {
			err = in.store.Build(entries)
		} else {
			err = in.store.Append(entries)
		}
		if err != nil {
			return abort(fmt.Errorf("commit batch %d: %w", i+1, err))
		}

		report.BatchesCommitted++
		report.ChunksCommitted += len(batch)
		in.metrics.BatchCommitted(len(batch))
		log.Debug("batch committed", zap.Int("batch", i+1), zap.Int("of", len(batches)))
		if in.onProgress != nil {
			in.onProgress(Progress{Batch: i + 1, Batches: len(batches), Chunks: report.ChunksCommitted})
		}

		if i < len(batches)-1 && in.opts.InterBatchDelay > 0 {
			if err := in.sleep(ctx, in.opts.InterBatchDelay); err != nil {
				return abort(err)
			}
		}
	}

	if err := in.store.Save(bundleDir); err != nil {
		return abort(fmt.Errorf("save index: %w", err))
	}

	report.State = StateCommitted
	report.Elapsed = in.now().Sub(start)
	log.Info("ingestion complete",
		zap.Int("chunks", report.ChunksCommitted),
		zap.Int("retries", report.Retries),
		zap.Duration("elapsed", report.Elapsed),
		zap.String("bundle", bundleDir))
	return report, nil
}

// embedBatch makes one attempt plus up to MaxRetries retries on transient errors.
func (in *Ingestor) embedBatch(ctx context.Context, log *zap.Logger, report *Report, idx int, batch []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, ch := range batch {
		texts[i] = ch.Text
	}

	for retry := 0; ; retry++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.State = StateEmbedding
		vectors, err := in.embedder.Embed(ctx, texts)
		if err == nil {
			if len(vectors) != len(batch) {
				return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
			}
			return vectors, nil
		}
		if !domain.IsTransient(err) {
			return nil, err
		}
		if retry >= in.opts.MaxRetries {
			return nil, fmt.Errorf("retries exhausted after %d attempts: %w", retry+1, err)
		}

		wait := backoff(in.opts.BaseBackoff, retry)
		report.State = StateRetryWait
		report.Retries++
		in.metrics.BatchRetried()
		log.Warn("transient embedding failure, backing off",
			zap.Int("batch", idx+1),
			zap.Int("retry", retry+1),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := in.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func split(chunks []domain.Chunk, size int) [][]domain.Chunk {
	batches := make([][]domain.Chunk, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batches = append(batches, chunks[start:end])
	}
	return batches
}
