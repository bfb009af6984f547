package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/will-garrett/redis-streams-poc/internal/config"
	infraRedis "github.com/will-garrett/redis-streams-poc/internal/infrastructure/redis"
	"github.com/will-garrett/redis-streams-poc/internal/ops"
	"github.com/will-garrett/redis-streams-poc/internal/stream"
	"github.com/will-garrett/redis-streams-poc/internal/telemetry"
	"github.com/will-garrett/redis-streams-poc/internal/worker"
)

func main() {
	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ops.Serve(cfg.Ops.Addr, cfg.App.Name, cfg.App.Version)

	shutdownTracing, err := telemetry.SetupTracing(ctx, "worker", cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.Insecure)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	rdb, err := infraRedis.Connect(ctx, infraRedis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	log := stream.NewRedisLog(rdb, cfg.Stream.Name, cfg.Stream.Group)
	if err := log.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure consumer group", "error", err)
		os.Exit(1)
	}

	consumerID := worker.NewID()
	rec, err := worker.NewRecorder(cfg.Worker.OutputDir, consumerID)
	if err != nil {
		logger.Error("failed to open output file", "error", err)
		os.Exit(1)
	}
	defer rec.Close()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	w := worker.New(consumerID, log, rec, metrics, worker.Options{
		Batch:         cfg.Worker.Batch,
		Block:         cfg.Worker.Block,
		ClaimInterval: cfg.Worker.ClaimInterval,
		MinIdle:       cfg.Worker.MinIdle,
		ClaimBatch:    cfg.Worker.ClaimBatch,
		ProcessDelay:  cfg.Worker.ProcessDelay,
	})

	logger.Info("Worker joining group",
		"consumer_id", consumerID, "group", cfg.Stream.Group, "output", rec.Path())

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("worker exited")
}
