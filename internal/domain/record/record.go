// Package record defines the durable per-item line a worker appends to its
// output file after processing, and the parser the analyzer uses to read
// those files back.
package record

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Record is one processed item as written by one worker. Files are
// append-only and owned exclusively by the worker that writes them.
type Record struct {
	ConsumerID string
	Sequence   uint64
	ReceivedAt int64
}

var lineRe = regexp.MustCompile(`^Consumer (\S+) processed package (\d+) \(timestamp: (\d+)\)$`)

// Line renders the record in the output-file format:
//
//	Consumer <id> processed package <n> (timestamp: <unix-seconds>)
func (r Record) Line() string {
	return fmt.Sprintf("Consumer %s processed package %d (timestamp: %d)", r.ConsumerID, r.Sequence, r.ReceivedAt)
}

// Parse reads one output-file line back into a Record. Callers are expected
// to count parse failures rather than abort on them.
func Parse(line string) (Record, error) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Record{}, fmt.Errorf("unrecognized record line: %q", line)
	}

	seq, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad package number %q: %w", m[2], err)
	}

	ts, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad timestamp %q: %w", m[3], err)
	}

	return Record{ConsumerID: m[1], Sequence: seq, ReceivedAt: ts}, nil
}

// FileName returns the per-consumer output file name, e.g. consumer_a1b2c3d4.txt.
func FileName(consumerID string) string {
	return "consumer_" + consumerID + ".txt"
}

// ConsumerFromFileName extracts the consumer id from an output file name.
func ConsumerFromFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, "consumer_") || !strings.HasSuffix(name, ".txt") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, "consumer_"), ".txt")
	if id == "" {
		return "", false
	}
	return id, true
}
