package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/will-garrett/redis-streams-poc/internal/config"
	infraRedis "github.com/will-garrett/redis-streams-poc/internal/infrastructure/redis"
	"github.com/will-garrett/redis-streams-poc/internal/ops"
	"github.com/will-garrett/redis-streams-poc/internal/producer"
	"github.com/will-garrett/redis-streams-poc/internal/stream"
	"github.com/will-garrett/redis-streams-poc/internal/telemetry"
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

	shutdownTracing, err := telemetry.SetupTracing(ctx, "producer", cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.Insecure)
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
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	gen := producer.NewGenerator(log, metrics, cfg.Producer.ProduceInterval)
	monitor := producer.NewRetentionMonitor(log, metrics,
		cfg.Producer.Retention.CheckInterval,
		cfg.Producer.Retention.HighWater,
		cfg.Producer.Retention.LowWater)

	logger.Info("Producer started", "stream", cfg.Stream.Name, "redis", cfg.Redis.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gen.Run(ctx) })
	g.Go(func() error { return monitor.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("producer stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("producer exited")
}
