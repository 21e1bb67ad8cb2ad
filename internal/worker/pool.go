// Package worker drains the ingestion queue: each task fetches one day
// from the CMS and upserts its records into the index.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsdex/internal/domain/task"
	logpkg "github.com/kailas-cloud/cmsdex/internal/logger"
	"github.com/kailas-cloud/cmsdex/internal/metrics"
	taskrepo "github.com/kailas-cloud/cmsdex/internal/repository/task"
)

// Config tunes the pool.
type Config struct {
	Concurrency int
	MaxRetries  int
	RetryBase   time.Duration
	RetryMax    time.Duration
	// PollTimeout bounds one blocking pop so shutdown is noticed promptly.
	PollTimeout time.Duration
	// TaskTimeout caps a single task including retries. Zero means no cap.
	TaskTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 30 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
}

// Stats summarizes a Run.
type Stats struct {
	Processed int64
	Failed    int64
	Records   int64
}

// Pool runs a fixed number of queue consumers.
type Pool struct {
	source  TaskSource
	fetcher Fetcher
	store   RecordStore
	cfg     Config
	logger  *zap.Logger

	processed atomic.Int64
	failed    atomic.Int64
	records   atomic.Int64
}

// New creates a Pool.
func New(source TaskSource, fetcher Fetcher, store RecordStore, cfg Config, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()
	return &Pool{source: source, fetcher: fetcher, store: store, cfg: cfg, logger: logger}
}

// Run consumes tasks until ctx is cancelled. Tasks already taken off the
// queue are finished before Run returns.
func (p *Pool) Run(ctx context.Context) Stats {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	return Stats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Records:   p.records.Load(),
	}
}

func (p *Pool) loop(ctx context.Context, id int) {
	log := p.logger.With(zap.Int("worker", id))
	for ctx.Err() == nil {
		t, err := p.source.Next(ctx, p.cfg.PollTimeout)
		switch {
		case err == nil:
		case errors.Is(err, taskrepo.ErrNoTask):
			continue
		case ctx.Err() != nil:
			return
		default:
			log.Error("Failed to take task", zap.Error(err))
			sleep(ctx, p.cfg.RetryBase)
			continue
		}

		// A popped task exists nowhere else, so finish it even during shutdown.
		tctx := logpkg.ContextWithLogger(context.WithoutCancel(ctx), log)
		if p.cfg.TaskTimeout > 0 {
			var cancel context.CancelFunc
			tctx, cancel = context.WithTimeout(tctx, p.cfg.TaskTimeout)
			_ = p.Process(tctx, t)
			cancel()
		} else {
			_ = p.Process(tctx, t)
		}
		p.observeDepth(ctx)
	}
}

// Process fetches and stores one day, retrying transient failures.
func (p *Pool) Process(ctx context.Context, t task.Task) error {
	log := logpkg.FromContextOr(ctx, p.logger).
		With(zap.String("task_id", t.ID), zap.String("day", t.Day.String()))
	start := time.Now()

	var stored int
	attempt := 0
	op := func() error {
		attempt++
		recs, err := p.fetcher.Fetch(ctx, t.Day)
		if err != nil {
			return classify(fmt.Errorf("fetch: %w", err))
		}
		if err := p.store.UpsertDay(ctx, t.Day, recs); err != nil {
			return classify(fmt.Errorf("upsert: %w", err))
		}
		stored = len(recs)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("Retrying task", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}

	err := backoff.RetryNotify(op, p.retryPolicy(ctx), notify)
	metrics.WorkerTasksProcessed.WithLabelValues(metrics.StatusLabel(err)).Inc()
	if err != nil {
		p.failed.Add(1)
		log.Error("Task failed", zap.Int("attempts", attempt), zap.Error(err))
		return err
	}

	p.processed.Add(1)
	p.records.Add(int64(stored))
	metrics.WorkerRecordsUpserted.Add(float64(stored))
	log.Info("Task done", zap.Int("records", stored), zap.Duration("took", time.Since(start)))
	return nil
}

func (p *Pool) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.RetryBase
	exp.Multiplier = 2
	exp.MaxInterval = p.cfg.RetryMax
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.cfg.MaxRetries)), ctx)
}

func (p *Pool) observeDepth(ctx context.Context) {
	n, err := p.source.Depth(ctx)
	if err != nil {
		return
	}
	metrics.IngestQueueDepth.Set(float64(n))
}

// temporary is implemented by errors that know whether a retry can help.
type temporary interface {
	Temporary() bool
}

func classify(err error) error {
	var t temporary
	if errors.As(err, &t) && !t.Temporary() {
		return backoff.Permanent(err)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
