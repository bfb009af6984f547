// Package worker implements the consume side: claim entries from the
// consumer group, durably record each processed item, then acknowledge.
// Redelivery of stale pending entries is the crash-recovery path; a crash
// between the durable write and the ack yields a duplicate record rather
// than a lost one.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/will-garrett/redis-streams-poc/internal/domain/item"
	"github.com/will-garrett/redis-streams-poc/internal/stream"
	"github.com/will-garrett/redis-streams-poc/internal/telemetry"
)

type Options struct {
	Batch         int64
	Block         time.Duration
	ClaimInterval time.Duration
	MinIdle       time.Duration
	ClaimBatch    int64
	ProcessDelay  time.Duration
}

type Worker struct {
	consumerID string
	log        stream.Log
	rec        *Recorder
	metrics    *telemetry.Metrics
	opts       Options
	tracer     trace.Tracer

	lastClaim time.Time
}

// NewID derives a consumer id: the first 8 hex chars of a UUID, stable for
// the process lifetime.
func NewID() string {
	return uuid.NewString()[:8]
}

func New(consumerID string, log stream.Log, rec *Recorder, metrics *telemetry.Metrics, opts Options) *Worker {
	return &Worker{
		consumerID: consumerID,
		log:        log,
		rec:        rec,
		metrics:    metrics,
		opts:       opts,
		tracer:     otel.Tracer("worker"),
		lastClaim:  time.Now(),
	}
}

func (w *Worker) ConsumerID() string {
	return w.consumerID
}

// Run loops until the context is cancelled. Log errors are logged and
// retried with a short sleep; the worker never exits on them.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("Worker started", "consumer_id", w.consumerID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Worker stopped", "consumer_id", w.consumerID)
			return ctx.Err()
		default:
		}

		if err := w.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.Error("failed to read from stream", "consumer_id", w.consumerID, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// runOnce performs one claim-and-process iteration: a grouped read for new
// entries, plus a periodic sweep of stale pending entries abandoned by
// crashed workers.
func (w *Worker) runOnce(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "consume_messages")
	defer span.End()
	span.SetAttributes(attribute.String("consumer.id", w.consumerID))

	entries, err := w.log.GroupRead(ctx, w.consumerID, w.opts.Batch, w.opts.Block)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if time.Since(w.lastClaim) >= w.opts.ClaimInterval {
		w.lastClaim = time.Now()
		claimed, err := w.log.ClaimStale(ctx, w.consumerID, w.opts.MinIdle, w.opts.ClaimBatch)
		if err != nil {
			span.RecordError(err)
			slog.Error("failed to claim stale entries", "consumer_id", w.consumerID, "error", err)
		} else if len(claimed) > 0 {
			slog.Info("Claimed stale entries", "consumer_id", w.consumerID, "count", len(claimed))
			entries = append(entries, claimed...)
		}
	}

	span.SetAttributes(attribute.Int("messages.received", len(entries)))

	for _, e := range entries {
		w.processEntry(ctx, e)
	}
	return nil
}

// processEntry records the item durably and only then acknowledges it. An
// entry that fails before the ack stays pending and will be redelivered.
func (w *Worker) processEntry(ctx context.Context, e stream.Entry) {
	ctx, span := w.tracer.Start(ctx, "process_message")
	defer span.End()
	span.SetAttributes(attribute.String("message.id", e.ID))

	it, err := item.Decode(e.Data)
	if err != nil {
		// Skipped without ack: the entry will be redelivered. A
		// permanently malformed entry stays pending forever.
		span.RecordError(err)
		slog.Error("failed to decode item, skipping without ack", "entry_id", e.ID, "error", err)
		return
	}
	span.SetAttributes(attribute.Int64("message.package", int64(it.Sequence())))

	// Simulated processing cost.
	if w.opts.ProcessDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.opts.ProcessDelay):
		}
	}

	if err := w.rec.Record(it.Sequence(), time.Now().Unix()); err != nil {
		span.RecordError(err)
		slog.Error("failed to write output record, skipping ack", "entry_id", e.ID, "sequence", it.Sequence(), "error", err)
		return
	}

	if _, err := w.log.Ack(ctx, e.ID); err != nil {
		// The record is already durable; redelivery of this entry will
		// produce a duplicate, which the analyzer detects.
		span.RecordError(err)
		slog.Error("failed to ack entry", "entry_id", e.ID, "sequence", it.Sequence(), "error", err)
		return
	}

	w.metrics.MessagesProcessed.WithLabelValues(w.consumerID).Inc()
	slog.Debug("Processed message", "consumer_id", w.consumerID, "entry_id", e.ID, "sequence", it.Sequence())
}
