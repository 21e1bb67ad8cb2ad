// Command cmsdex-worker drains the ingestion queue: for every queued day it
// fetches the CMS records and upserts them into the search index.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsdex/internal/config"
	dbRedis "github.com/kailas-cloud/cmsdex/internal/db/redis"
	logpkg "github.com/kailas-cloud/cmsdex/internal/logger"
	"github.com/kailas-cloud/cmsdex/internal/metrics"
	recordrepo "github.com/kailas-cloud/cmsdex/internal/repository/record"
	taskrepo "github.com/kailas-cloud/cmsdex/internal/repository/task"
	"github.com/kailas-cloud/cmsdex/internal/transport/upstream"
	"github.com/kailas-cloud/cmsdex/internal/version"
	"github.com/kailas-cloud/cmsdex/internal/worker"
)

func main() {
	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, "cmsdex-worker", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cmsdex worker",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("concurrency", cfg.Worker.Concurrency),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("queue", cfg.Queue.Key),
	)
	if cfg.Upstream.BaseURL == "" {
		logger.Fatal("upstream.base_url is required for the worker")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, config.Seconds(cfg.Database.ReadinessTimeout)); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	metrics.RegisterDomainMetrics()

	records := recordrepo.New(store).
		WithIndex(cfg.Index.Name, cfg.Index.KeyPrefix).
		WithSchema(recordrepo.Schema{TextFields: cfg.Index.TextFields, TagFields: cfg.Index.TagFields})
	if err := records.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure search index", zap.Error(err))
	}

	fetcher := upstream.New(upstream.Options{
		BaseURL:   cfg.Upstream.BaseURL,
		APIKey:    cfg.Upstream.APIKey,
		Timeout:   config.Seconds(cfg.Upstream.TimeoutSec),
		UserAgent: version.UserAgent("cmsdex-worker"),
	})

	pool := worker.New(taskrepo.New(store, cfg.Queue.Key), fetcher, records, worker.Config{
		Concurrency: cfg.Worker.Concurrency,
		MaxRetries:  cfg.Worker.MaxRetries,
		RetryBase:   time.Duration(cfg.Worker.RetryBaseMs) * time.Millisecond,
		RetryMax:    config.Seconds(cfg.Worker.RetryMaxSec),
		PollTimeout: config.Seconds(cfg.Queue.BlockTimeoutSec),
		TaskTimeout: config.Seconds(cfg.Worker.TaskTimeoutSec),
	}, logger)

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	stats := pool.Run(ctx)
	logger.Info("Worker stopped",
		zap.Int64("processed", stats.Processed),
		zap.Int64("failed", stats.Failed),
		zap.Int64("records", stats.Records),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.Worker.ShutdownSec))
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}
