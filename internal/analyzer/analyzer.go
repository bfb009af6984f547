// Package analyzer reconciles the workers' output files into a global
// verdict: which sequences were processed more than once, which are
// missing from the observed range, and how the load spread across
// consumers. It is a pure offline transform over read-only files.
package analyzer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/will-garrett/redis-streams-poc/internal/domain/record"
)

// ErrNoRecords marks a run that found nothing to analyze: the directory is
// unreadable, has no output files, or none of their lines parsed.
var ErrNoRecords = errors.New("no parseable records found")

// missingCap bounds the gap scan: one wild-but-parseable sequence number
// can stretch the observed range across most of the uint64 space, and
// enumerating that is useless output. The report carries a truncation
// marker instead.
const missingCap = 100000

type fileResult struct {
	path       string
	consumerID string
	records    []record.Record
	parseErrs  int
}

// Analyze reads every output file under dir matching prefix and builds the
// report. Files are parsed in parallel; aggregation is ordered by file name
// so the result is identical across runs.
func Analyze(dir, prefix string) (*Report, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("output directory %q: %w", dir, err)
	}

	paths, err := filepath.Glob(filepath.Join(dir, prefix+"*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %q: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no %s*.txt files in %q", ErrNoRecords, prefix, dir)
	}
	sort.Strings(paths)

	results := make([]fileResult, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := parseFile(path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := buildReport(results)
	if report.TotalRecords == 0 {
		return nil, fmt.Errorf("%w: %d files, all lines unparsable", ErrNoRecords, len(paths))
	}
	return report, nil
}

// parseFile reads one worker's output. Unparsable lines are counted, not
// fatal: a half-written tail line (worker killed mid-write) must not sink
// the whole run.
func parseFile(path string) (fileResult, error) {
	consumerID, ok := record.ConsumerFromFileName(filepath.Base(path))
	if !ok {
		consumerID = filepath.Base(path)
	}
	res := fileResult{path: path, consumerID: consumerID}

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, err := record.Parse(line)
		if err != nil {
			res.parseErrs++
			continue
		}
		// The file name is authoritative for ownership; the in-line id
		// is only informational.
		rec.ConsumerID = consumerID
		res.records = append(res.records, rec)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return res, nil
}

func buildReport(results []fileResult) *Report {
	r := &Report{
		PerConsumer: map[string]int{},
		Duplicates:  map[uint64][]string{},
		ParseErrors: map[string]int{},
	}

	seen := map[uint64][]string{}
	for _, res := range results {
		r.Files = append(r.Files, filepath.Base(res.path))
		if res.parseErrs > 0 {
			r.ParseErrors[filepath.Base(res.path)] = res.parseErrs
		}
		if _, ok := r.PerConsumer[res.consumerID]; !ok {
			r.PerConsumer[res.consumerID] = 0
		}
		for _, rec := range res.records {
			r.TotalRecords++
			r.PerConsumer[res.consumerID]++
			seen[rec.Sequence] = append(seen[rec.Sequence], rec.ConsumerID)
			if r.TotalRecords == 1 || rec.Sequence < r.MinSequence {
				r.MinSequence = rec.Sequence
			}
			if rec.Sequence > r.MaxSequence {
				r.MaxSequence = rec.Sequence
			}
		}
	}

	r.UniqueSequences = len(seen)
	for seq, consumers := range seen {
		if len(consumers) > 1 {
			// One element per record observed; [A, A] means the same
			// consumer processed the sequence twice.
			sort.Strings(consumers)
			r.Duplicates[seq] = consumers
		}
	}

	// Min and max are observed by definition, so only the interior of the
	// range can have gaps. The half-open scan also cannot wrap when a wild
	// record puts max at the top of the uint64 range.
	for s := r.MinSequence + 1; s > r.MinSequence && s < r.MaxSequence; s++ {
		if _, ok := seen[s]; !ok {
			r.Missing = append(r.Missing, s)
			if len(r.Missing) >= missingCap {
				r.MissingTruncated = true
				break
			}
		}
	}
	return r
}
