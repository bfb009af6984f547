package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string // optional
	DB       int    // optional
}

func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// Connect dials redis with a few startup retries so processes started
// alongside the broker survive its boot window.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	var client *redis.Client
	var err error

	for i := 0; i < 5; i++ {
		client, err = NewClient(ctx, cfg)
		if err == nil {
			return client, nil
		}
		slog.Warn("Failed to connect to redis, retrying in 2s", "attempt", i+1, "max", 5, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	return nil, fmt.Errorf("failed to connect to redis after retries: %w", err)
}
