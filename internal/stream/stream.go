// Package stream defines the log port the producer and workers share: an
// append-only ordered record store with grouped consumption. The Redis
// Streams implementation backs production deployments; the in-memory one
// backs tests with the same claim/ack/trim contract.
package stream

import (
	"context"
	"time"
)

// Entry is one log record as delivered to a consumer. The ID is assigned by
// the log and is opaque except for its total ordering; Data is the raw item
// payload, decoded by the worker.
type Entry struct {
	ID   string
	Data []byte
}

// Log is the narrow surface the core uses. All operations are atomic at
// entry granularity; the log owns the consumer-group state, including the
// pending list used for crash-recovery redelivery.
//
// Delivery is at-least-once: an entry stays pending until acknowledged and
// may be re-claimed by another consumer after a staleness timeout. Trimming
// discards the oldest entries unconditionally, pending or not; a trimmed
// pending entry is simply gone and surfaces later as a missing sequence.
type Log interface {
	// Append adds one item to the log and returns its entry ID.
	Append(ctx context.Context, data []byte) (string, error)

	// GroupRead delivers up to count entries not yet delivered to the
	// group, blocking up to block if none are available. Returns
	// (nil, nil) when the block timeout elapses with no data.
	GroupRead(ctx context.Context, consumer string, count int64, block time.Duration) ([]Entry, error)

	// Ack removes entries from the group's pending list. Returns the
	// number actually acknowledged.
	Ack(ctx context.Context, ids ...string) (int64, error)

	// ClaimStale transfers ownership of pending entries idle for at
	// least minIdle to the given consumer and redelivers them.
	ClaimStale(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]Entry, error)

	// TrimToMaxLen discards the oldest entries until at most maxLen
	// remain, returning the number discarded.
	TrimToMaxLen(ctx context.Context, maxLen int64) (int64, error)

	// Len reports the current number of entries in the log.
	Len(ctx context.Context) (int64, error)
}
