package worker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/will-garrett/redis-streams-poc/internal/domain/record"
)

// Recorder appends this worker's output records to its durable file. The
// file is synced after every line: the ack that follows must never precede
// the record reaching disk.
type Recorder struct {
	consumerID string
	path       string
	f          *os.File
}

func NewRecorder(outputDir, consumerID string) (*Recorder, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %q: %w", outputDir, err)
	}

	path := filepath.Join(outputDir, record.FileName(consumerID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file %q: %w", path, err)
	}

	return &Recorder{consumerID: consumerID, path: path, f: f}, nil
}

// Record durably appends one output record. Returns only after fsync.
func (r *Recorder) Record(sequence uint64, receivedAt int64) error {
	rec := record.Record{
		ConsumerID: r.consumerID,
		Sequence:   sequence,
		ReceivedAt: receivedAt,
	}

	if _, err := r.f.WriteString(rec.Line() + "\n"); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := r.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	return nil
}

func (r *Recorder) Path() string {
	return r.path
}

func (r *Recorder) Close() error {
	return r.f.Close()
}
