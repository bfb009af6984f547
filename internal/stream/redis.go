package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// payloadField is the stream field holding the serialized item.
const payloadField = "data"

// RedisLog implements Log on a Redis stream with one consumer group.
type RedisLog struct {
	rdb    *redis.Client
	stream string
	group  string
}

func NewRedisLog(rdb *redis.Client, stream, group string) *RedisLog {
	return &RedisLog{
		rdb:    rdb,
		stream: stream,
		group:  group,
	}
}

// EnsureGroup creates the consumer group (and the stream, if absent),
// tolerating a group that already exists. Workers call this once at startup.
func (l *RedisLog) EnsureGroup(ctx context.Context) error {
	err := l.rdb.XGroupCreateMkStream(ctx, l.stream, l.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %q: %w", l.group, err)
	}
	return nil
}

func (l *RedisLog) Append(ctx context.Context, data []byte) (string, error) {
	id, err := l.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: l.stream,
		Values: map[string]interface{}{payloadField: string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to append to stream %q: %w", l.stream, err)
	}
	return id, nil
}

func (l *RedisLog) GroupRead(ctx context.Context, consumer string, count int64, block time.Duration) ([]Entry, error) {
	res, err := l.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    l.group,
		Consumer: consumer,
		Streams:  []string{l.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		// Block timeout elapsed with nothing to deliver.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read group %q: %w", l.group, err)
	}

	var entries []Entry
	for _, s := range res {
		entries = append(entries, messagesToEntries(s.Messages)...)
	}
	return entries, nil
}

func (l *RedisLog) Ack(ctx context.Context, ids ...string) (int64, error) {
	n, err := l.rdb.XAck(ctx, l.stream, l.group, ids...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to ack entries: %w", err)
	}
	return n, nil
}

func (l *RedisLog) ClaimStale(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]Entry, error) {
	// Always scan from the start of the pending list; batches here are
	// small and XAUTOCLAIM skips entries below the idle threshold.
	msgs, _, err := l.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   l.stream,
		Group:    l.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim stale entries: %w", err)
	}
	return messagesToEntries(msgs), nil
}

func (l *RedisLog) TrimToMaxLen(ctx context.Context, maxLen int64) (int64, error) {
	n, err := l.rdb.XTrimMaxLen(ctx, l.stream, maxLen).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to trim stream %q: %w", l.stream, err)
	}
	return n, nil
}

func (l *RedisLog) Len(ctx context.Context) (int64, error) {
	n, err := l.rdb.XLen(ctx, l.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read stream length: %w", err)
	}
	return n, nil
}

func messagesToEntries(msgs []redis.XMessage) []Entry {
	var entries []Entry
	for _, m := range msgs {
		var data []byte
		if v, ok := m.Values[payloadField].(string); ok {
			data = []byte(v)
		}
		entries = append(entries, Entry{ID: m.ID, Data: data})
	}
	return entries
}
