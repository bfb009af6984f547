// Package producer drives the stream: the Generator appends one item per
// tick with a monotonically increasing sequence number, and the
// RetentionMonitor bounds the stream's length by trimming its oldest
// entries.
package producer

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/will-garrett/redis-streams-poc/internal/domain/item"
	"github.com/will-garrett/redis-streams-poc/internal/stream"
	"github.com/will-garrett/redis-streams-poc/internal/telemetry"
)

// Generator owns the process-wide sequence counter. Numbering starts at 1
// on every startup; sequences are not persisted across restarts.
type Generator struct {
	log      stream.Log
	metrics  *telemetry.Metrics
	interval time.Duration
	tracer   trace.Tracer

	nextSequence uint64
}

func NewGenerator(log stream.Log, metrics *telemetry.Metrics, interval time.Duration) *Generator {
	return &Generator{
		log:          log,
		metrics:      metrics,
		interval:     interval,
		tracer:       otel.Tracer("producer"),
		nextSequence: 1,
	}
}

// Run produces one item per interval until the context is cancelled. Log
// errors are retried with backoff, never fatal.
func (g *Generator) Run(ctx context.Context) error {
	slog.Info("Generator started", "interval", g.interval)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Generator stopped", "last_sequence", g.nextSequence-1)
			return ctx.Err()
		case <-ticker.C:
			g.produce(ctx)
		}
	}
}

// produce appends the next item, retrying until the append lands or the
// context is cancelled. The sequence number is assigned once and kept
// across retries so it is never skipped or reused.
func (g *Generator) produce(ctx context.Context) {
	seq := g.nextSequence

	ctx, span := g.tracer.Start(ctx, "produce_message")
	defer span.End()

	it := item.New(seq, time.Now())
	span.SetAttributes(
		attribute.Int64("message.package", int64(seq)),
		attribute.Int64("message.timestamp", it.TimestampProducer),
	)

	data, err := it.Encode()
	if err != nil {
		// Items are plain structs; this cannot happen outside a bug.
		span.RecordError(err)
		slog.Error("failed to encode item", "sequence", seq, "error", err)
		return
	}

	for attempt := 0; ; attempt++ {
		id, err := g.log.Append(ctx, data)
		if err == nil {
			g.nextSequence++
			g.metrics.MessagesProduced.Inc()
			slog.Debug("Produced message", "sequence", seq, "entry_id", id)
			return
		}

		span.RecordError(err)
		slog.Error("failed to append item, retrying", "sequence", seq, "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff(attempt)):
		}
	}
}

// backoff doubles per attempt, capped at 16s.
func backoff(attempt int) time.Duration {
	if attempt > 4 {
		attempt = 4
	}
	return time.Duration(1<<attempt) * time.Second
}
