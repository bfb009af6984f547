package stream

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLog is an in-process Log with the same claim/ack/trim contract as
// the Redis implementation. It exists for tests: it delivers immediately
// instead of blocking, and its pending list can be backdated to force
// redelivery deterministically.
type MemoryLog struct {
	mu      sync.Mutex
	entries []memEntry
	nextID  uint64
	// index into the entry-ID sequence of the last entry delivered to
	// the group (the group's read cursor).
	lastDelivered uint64
	pending       map[string]*pendingEntry
}

type memEntry struct {
	id   string
	seq  uint64
	data []byte
}

type pendingEntry struct {
	consumer      string
	deliveredAt   time.Time
	deliveryCount int
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		nextID:  1,
		pending: map[string]*pendingEntry{},
	}
}

func (l *MemoryLog) Append(_ context.Context, data []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.nextID
	l.nextID++
	// Same <ms>-<seq> shape Redis mints, with a logical clock for
	// deterministic ordering.
	id := fmt.Sprintf("%d-0", seq)
	l.entries = append(l.entries, memEntry{id: id, seq: seq, data: data})
	return id, nil
}

func (l *MemoryLog) GroupRead(_ context.Context, consumer string, count int64, _ time.Duration) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.entries {
		if int64(len(out)) >= count {
			break
		}
		if e.seq <= l.lastDelivered {
			continue
		}
		l.lastDelivered = e.seq
		l.pending[e.id] = &pendingEntry{
			consumer:      consumer,
			deliveredAt:   time.Now(),
			deliveryCount: 1,
		}
		out = append(out, Entry{ID: e.id, Data: e.data})
	}
	return out, nil
}

func (l *MemoryLog) Ack(_ context.Context, ids ...string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := l.pending[id]; ok {
			delete(l.pending, id)
			n++
		}
	}
	return n, nil
}

func (l *MemoryLog) ClaimStale(_ context.Context, consumer string, minIdle time.Duration, count int64) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var out []Entry
	for _, e := range l.entries {
		if int64(len(out)) >= count {
			break
		}
		p, ok := l.pending[e.id]
		if !ok || now.Sub(p.deliveredAt) < minIdle {
			continue
		}
		p.consumer = consumer
		p.deliveredAt = now
		p.deliveryCount++
		out = append(out, Entry{ID: e.id, Data: e.data})
	}

	// Pending entries whose underlying entry was trimmed are dead; drop
	// them the way Redis 7 purges them from the PEL.
	for id := range l.pending {
		if !l.hasEntry(id) {
			delete(l.pending, id)
		}
	}
	return out, nil
}

func (l *MemoryLog) TrimToMaxLen(_ context.Context, maxLen int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if int64(len(l.entries)) <= maxLen {
		return 0, nil
	}
	removed := l.entries[:int64(len(l.entries))-maxLen]
	l.entries = append([]memEntry(nil), l.entries[int64(len(l.entries))-maxLen:]...)

	// Trim does not spare pending entries. A claimed-but-unacked entry
	// discarded here is permanently lost.
	for _, e := range removed {
		if e.seq > l.lastDelivered {
			l.lastDelivered = e.seq
		}
		delete(l.pending, e.id)
	}
	return int64(len(removed)), nil
}

func (l *MemoryLog) Len(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.entries)), nil
}

// PendingCount reports the group's current pending-list size.
func (l *MemoryLog) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// BackdatePending shifts every pending delivery d into the past so tests
// can cross the staleness threshold without sleeping.
func (l *MemoryLog) BackdatePending(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.pending {
		p.deliveredAt = p.deliveredAt.Add(-d)
	}
}

func (l *MemoryLog) hasEntry(id string) bool {
	for _, e := range l.entries {
		if e.id == id {
			return true
		}
	}
	return false
}
