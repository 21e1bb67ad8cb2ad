package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsdex/internal/config"
	dbRedis "github.com/kailas-cloud/cmsdex/internal/db/redis"
	"github.com/kailas-cloud/cmsdex/internal/export"
	logpkg "github.com/kailas-cloud/cmsdex/internal/logger"
	"github.com/kailas-cloud/cmsdex/internal/metrics"
	recordrepo "github.com/kailas-cloud/cmsdex/internal/repository/record"
	taskrepo "github.com/kailas-cloud/cmsdex/internal/repository/task"
	chiTransport "github.com/kailas-cloud/cmsdex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/cmsdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/cmsdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/cmsdex/internal/usecase/search"
	"github.com/kailas-cloud/cmsdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "cmsdex-api", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cmsdex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("index", cfg.Index.Name),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, config.Seconds(cfg.Database.ReadinessTimeout)); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterDomainMetrics()

	// Repositories
	records := recordrepo.New(store).
		WithIndex(cfg.Index.Name, cfg.Index.KeyPrefix).
		WithSchema(recordrepo.Schema{TextFields: cfg.Index.TextFields, TagFields: cfg.Index.TagFields})
	if err := records.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure search index", zap.Error(err))
	}
	tasks := taskrepo.New(store, cfg.Queue.Key)

	// Use cases
	ingestSvc := ingestuc.New(tasks, logger, cfg.Ingest.MaxRangeDays)
	gateway := searchuc.New(records, logger, cfg.Search.PageSize, searchuc.BreakerConfig{
		MaxRequests:      cfg.Search.Breaker.MaxRequests,
		Interval:         config.Seconds(cfg.Search.Breaker.IntervalSec),
		Timeout:          config.Seconds(cfg.Search.Breaker.TimeoutSec),
		FailureThreshold: cfg.Search.Breaker.FailureThreshold,
		MinRequests:      cfg.Search.Breaker.MinRequests,
	})
	exporter, err := export.NewBuilder(export.Config{
		Dir:     cfg.Export.Dir,
		Columns: cfg.Export.Columns,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create exporter", zap.Error(err))
	}
	healthSvc := healthuc.New(store, records, tasks)

	server := chiTransport.NewServer(ingestSvc, gateway, exporter, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, logger),
		ReadTimeout:  config.Seconds(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: config.Seconds(cfg.HTTP.WriteTimeoutSec),
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
