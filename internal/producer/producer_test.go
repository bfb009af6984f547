package producer

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/will-garrett/redis-streams-poc/internal/domain/item"
	"github.com/will-garrett/redis-streams-poc/internal/stream"
	"github.com/will-garrett/redis-streams-poc/internal/telemetry"
)

func newTestMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics(prometheus.NewRegistry())
}

func TestGeneratorAssignsSequencesFromOne(t *testing.T) {
	log := stream.NewMemoryLog()
	metrics := newTestMetrics()
	gen := NewGenerator(log, metrics, time.Second)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		gen.produce(ctx)
	}

	n, err := log.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	entries, err := log.GroupRead(ctx, "test", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	for i, e := range entries {
		it, err := item.Decode(e.Data)
		require.NoError(t, err)
		assert.EqualValues(t, i+1, it.Sequence())
		assert.NotZero(t, it.TimestampProducer)
	}

	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.MessagesProduced))
}

func TestRetentionMonitorTrimsAboveHighWater(t *testing.T) {
	log := stream.NewMemoryLog()
	metrics := newTestMetrics()
	gen := NewGenerator(log, metrics, time.Second)
	monitor := NewRetentionMonitor(log, metrics, time.Second, 100, 50)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		gen.produce(ctx)
	}

	monitor.check(ctx)

	n, err := log.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 50, n)

	assert.Equal(t, float64(70), testutil.ToFloat64(metrics.StreamCleanup))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StreamCleanupOps))
	assert.Equal(t, float64(120), testutil.ToFloat64(metrics.StreamLength))

	// The surviving entries are the newest ones.
	entries, err := log.GroupRead(ctx, "test", 100, 0)
	require.NoError(t, err)
	require.Len(t, entries, 50)
	first, err := item.Decode(entries[0].Data)
	require.NoError(t, err)
	assert.EqualValues(t, 71, first.Sequence())
}

func TestRetentionMonitorLeavesShortStreamAlone(t *testing.T) {
	log := stream.NewMemoryLog()
	metrics := newTestMetrics()
	gen := NewGenerator(log, metrics, time.Second)
	monitor := NewRetentionMonitor(log, metrics, time.Second, 100, 50)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		gen.produce(ctx)
	}

	monitor.check(ctx)

	n, err := log.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.StreamCleanup))
	assert.Equal(t, float64(10), testutil.ToFloat64(metrics.StreamLength))
}

func TestGeneratorRunStopsOnCancel(t *testing.T) {
	log := stream.NewMemoryLog()
	gen := NewGenerator(log, newTestMetrics(), 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := gen.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
