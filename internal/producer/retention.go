package producer

import (
	"context"
	"log/slog"
	"time"

	"github.com/will-garrett/redis-streams-poc/internal/stream"
	"github.com/will-garrett/redis-streams-poc/internal/telemetry"
)

// RetentionMonitor bounds the stream. Each check samples the length; when
// it exceeds the high-water mark, the stream is trimmed down to the
// low-water mark.
//
// Trimming is fire-and-forget with respect to in-flight claims: an entry a
// worker has claimed but not yet acknowledged can be discarded here, which
// permanently loses its sequence. That loss is surfaced by the analyzer as
// a missing sequence, not prevented.
type RetentionMonitor struct {
	log           stream.Log
	metrics       *telemetry.Metrics
	checkInterval time.Duration
	highWater     int64
	lowWater      int64
}

func NewRetentionMonitor(log stream.Log, metrics *telemetry.Metrics, checkInterval time.Duration, highWater, lowWater int64) *RetentionMonitor {
	return &RetentionMonitor{
		log:           log,
		metrics:       metrics,
		checkInterval: checkInterval,
		highWater:     highWater,
		lowWater:      lowWater,
	}
}

func (m *RetentionMonitor) Run(ctx context.Context) error {
	slog.Info("Retention monitor started",
		"check_interval", m.checkInterval, "high_water", m.highWater, "low_water", m.lowWater)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check runs one retention pass. Failures are logged and left for the next
// tick; the monitor never takes the process down.
func (m *RetentionMonitor) check(ctx context.Context) {
	length, err := m.log.Len(ctx)
	if err != nil {
		slog.Error("failed to read stream length", "error", err)
		return
	}

	m.metrics.StreamLength.Set(float64(length))
	m.metrics.StreamCleanupOps.Inc()

	if length <= m.highWater {
		return
	}

	removed, err := m.log.TrimToMaxLen(ctx, m.lowWater)
	if err != nil {
		slog.Error("failed to trim stream", "length", length, "error", err)
		return
	}

	m.metrics.StreamCleanup.Add(float64(removed))
	slog.Info("Trimmed stream", "length", length, "removed", removed, "kept", m.lowWater)
}
