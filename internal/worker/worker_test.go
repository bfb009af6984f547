package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/will-garrett/redis-streams-poc/internal/analyzer"
	"github.com/will-garrett/redis-streams-poc/internal/domain/item"
	"github.com/will-garrett/redis-streams-poc/internal/stream"
	"github.com/will-garrett/redis-streams-poc/internal/telemetry"
)

func testOptions() Options {
	return Options{
		Batch:         10,
		Block:         0,
		ClaimInterval: time.Hour, // no stale claims unless a test asks
		MinIdle:       30 * time.Second,
		ClaimBatch:    10,
		ProcessDelay:  0,
	}
}

func newTestWorker(t *testing.T, log stream.Log, consumerID, outputDir string, opts Options) *Worker {
	t.Helper()
	rec, err := NewRecorder(outputDir, consumerID)
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	return New(consumerID, log, rec, metrics, opts)
}

func produceItems(t *testing.T, log stream.Log, from, to uint64) {
	t.Helper()
	for seq := from; seq <= to; seq++ {
		data, err := item.New(seq, time.Now()).Encode()
		require.NoError(t, err)
		_, err = log.Append(context.Background(), data)
		require.NoError(t, err)
	}
}

func TestNewIDIsShortAndUnique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 8)
	assert.Len(t, b, 8)
	assert.NotEqual(t, a, b)
}

// Single worker, sequences 1..10, no trimming: the analyzer must see every
// sequence exactly once.
func TestSingleWorkerProcessesAllExactlyOnce(t *testing.T) {
	log := stream.NewMemoryLog()
	dir := t.TempDir()
	produceItems(t, log, 1, 10)

	w := newTestWorker(t, log, "aaaa1111", dir, testOptions())
	require.NoError(t, w.runOnce(context.Background()))

	assert.Equal(t, 0, log.PendingCount())

	report, err := analyzer.Analyze(dir, "consumer_")
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 10, report.TotalRecords)
	assert.Equal(t, 10, report.UniqueSequences)
	assert.EqualValues(t, 1, report.MinSequence)
	assert.EqualValues(t, 10, report.MaxSequence)
	assert.Equal(t, map[string]int{"aaaa1111": 10}, report.PerConsumer)
}

// Two workers split the stream; the analyzer sums their counts back to the
// produced total.
func TestTwoWorkersPartitionWithoutOverlap(t *testing.T) {
	log := stream.NewMemoryLog()
	dir := t.TempDir()
	produceItems(t, log, 1, 10)

	opts := testOptions()
	opts.Batch = 1

	a := newTestWorker(t, log, "aaaa1111", dir, opts)
	b := newTestWorker(t, log, "bbbb2222", dir, opts)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.runOnce(ctx))
		require.NoError(t, b.runOnce(ctx))
	}

	report, err := analyzer.Analyze(dir, "consumer_")
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 10, report.TotalRecords)
	assert.Equal(t, 5, report.PerConsumer["aaaa1111"])
	assert.Equal(t, 5, report.PerConsumer["bbbb2222"])
}

// Worker A writes its record for sequence 5 but dies before the ack. After
// the staleness timeout worker B re-claims and re-processes the entry: the
// analyzer must report exactly one duplicate and nothing missing.
func TestCrashBetweenWriteAndAckYieldsOneDuplicate(t *testing.T) {
	log := stream.NewMemoryLog()
	dir := t.TempDir()
	produceItems(t, log, 1, 10)
	ctx := context.Background()

	recA, err := NewRecorder(dir, "aaaa1111")
	require.NoError(t, err)
	defer recA.Close()

	// Worker A claims everything and processes normally, except that on
	// sequence 5 it stops after the durable write, before the ack.
	entries, err := log.GroupRead(ctx, "aaaa1111", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	for _, e := range entries {
		it, err := item.Decode(e.Data)
		require.NoError(t, err)
		require.NoError(t, recA.Record(it.Sequence(), time.Now().Unix()))
		if it.Sequence() == 5 {
			continue // crash: record written, ack never sent
		}
		_, err = log.Ack(ctx, e.ID)
		require.NoError(t, err)
	}
	require.Equal(t, 1, log.PendingCount())

	// Worker B sweeps the stale pending entry on its next iteration.
	log.BackdatePending(time.Minute)
	opts := testOptions()
	opts.ClaimInterval = 0
	b := newTestWorker(t, log, "bbbb2222", dir, opts)
	require.NoError(t, b.runOnce(ctx))

	assert.Equal(t, 0, log.PendingCount())

	report, err := analyzer.Analyze(dir, "consumer_")
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, 11, report.TotalRecords)
	assert.Equal(t, 10, report.UniqueSequences)
	assert.Equal(t, map[uint64][]string{5: {"aaaa1111", "bbbb2222"}}, report.Duplicates)
	assert.Empty(t, report.Missing)
}

// Trimming entries no worker ever claimed loses their sequences for good;
// entries acknowledged before the trim are unaffected.
func TestTrimOfUnclaimedEntriesSurfacesAsMissing(t *testing.T) {
	log := stream.NewMemoryLog()
	dir := t.TempDir()
	produceItems(t, log, 1, 10)
	ctx := context.Background()

	opts := testOptions()
	opts.Batch = 3
	w := newTestWorker(t, log, "aaaa1111", dir, opts)

	// Sequences 1-3 processed and acked before the trim.
	require.NoError(t, w.runOnce(ctx))

	// Retention discards the oldest five entries: 1-3 already acked,
	// 4-5 never claimed and now gone.
	removed, err := log.TrimToMaxLen(ctx, 5)
	require.NoError(t, err)
	require.EqualValues(t, 5, removed)

	// Drain the remainder.
	require.NoError(t, w.runOnce(ctx))
	require.NoError(t, w.runOnce(ctx))

	report, err := analyzer.Analyze(dir, "consumer_")
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Empty(t, report.Duplicates)
	assert.Equal(t, []uint64{4, 5}, report.Missing)
	assert.Equal(t, 8, report.TotalRecords)
}

// A malformed entry is skipped without ack and stays pending.
func TestMalformedEntrySkippedWithoutAck(t *testing.T) {
	log := stream.NewMemoryLog()
	dir := t.TempDir()
	ctx := context.Background()

	_, err := log.Append(ctx, []byte("definitely not an item"))
	require.NoError(t, err)
	produceItems(t, log, 1, 2)

	w := newTestWorker(t, log, "aaaa1111", dir, testOptions())
	require.NoError(t, w.runOnce(ctx))

	// The poison entry is still pending; the two good ones are acked.
	assert.Equal(t, 1, log.PendingCount())

	report, err := analyzer.Analyze(dir, "consumer_")
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 2, report.TotalRecords)
}

func TestRunStopsOnCancel(t *testing.T) {
	log := stream.NewMemoryLog()
	opts := testOptions()
	opts.Block = 5 * time.Millisecond
	w := newTestWorker(t, log, "aaaa1111", t.TempDir(), opts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
