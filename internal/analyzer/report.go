package analyzer

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Report is the reconciled view over all output files. It is rebuilt from
// scratch on every run and never persisted.
type Report struct {
	Files           []string
	TotalRecords    int
	UniqueSequences int
	MinSequence     uint64
	MaxSequence     uint64
	PerConsumer     map[string]int
	Duplicates      map[uint64][]string
	Missing         []uint64
	// MissingTruncated is set when the gap list hit its cap; the real
	// gap count is at least len(Missing).
	MissingTruncated bool
	ParseErrors      map[string]int
}

// Clean reports whether every observed sequence was processed exactly once.
func (r *Report) Clean() bool {
	return len(r.Duplicates) == 0 && len(r.Missing) == 0
}

// Render writes the human-readable report. Output is fully sorted so two
// runs over the same files produce byte-identical text.
func (r *Report) Render(w io.Writer, verbose bool) {
	fmt.Fprintln(w, "Consumer output analysis")
	fmt.Fprintln(w, "========================")
	fmt.Fprintf(w, "Total records:     %d\n", r.TotalRecords)
	fmt.Fprintf(w, "Unique sequences:  %d\n", r.UniqueSequences)
	fmt.Fprintf(w, "Duplicate records: %d\n", r.TotalRecords-r.UniqueSequences)
	fmt.Fprintf(w, "Sequence range:    %d-%d\n", r.MinSequence, r.MaxSequence)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Per-consumer counts:")
	for _, id := range sortedKeys(r.PerConsumer) {
		fmt.Fprintf(w, "  consumer %s: %d\n", id, r.PerConsumer[id])
	}

	fmt.Fprintln(w)
	if len(r.Duplicates) == 0 {
		fmt.Fprintln(w, "No duplicates found.")
	} else {
		fmt.Fprintf(w, "Duplicates (%d sequences):\n", len(r.Duplicates))
		for _, seq := range sortedSeqs(r.Duplicates) {
			consumers := r.Duplicates[seq]
			fmt.Fprintf(w, "  sequence %d: processed %d times by [%s]\n",
				seq, len(consumers), strings.Join(consumers, " "))
		}
	}

	if len(r.Missing) == 0 {
		fmt.Fprintln(w, "No missing sequences.")
	} else if r.MissingTruncated {
		fmt.Fprintf(w, "Missing (first %d sequences, truncated):\n", len(r.Missing))
		fmt.Fprintf(w, "  %s ...\n", formatSeqs(r.Missing[:20]))
	} else {
		fmt.Fprintf(w, "Missing (%d sequences):\n", len(r.Missing))
		fmt.Fprintf(w, "  %s\n", formatSeqs(r.Missing))
	}

	if len(r.ParseErrors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Parse errors:")
		for _, file := range sortedKeys(r.ParseErrors) {
			fmt.Fprintf(w, "  %s: %d unparsable lines\n", file, r.ParseErrors[file])
		}
	}

	if verbose {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Files analyzed (%d):\n", len(r.Files))
		files := append([]string(nil), r.Files...)
		sort.Strings(files)
		for _, f := range files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSeqs(m map[uint64][]string) []uint64 {
	seqs := make([]uint64, 0, len(m))
	for s := range m {
		seqs = append(seqs, s)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs
}

func formatSeqs(seqs []uint64) string {
	parts := make([]string, len(seqs))
	for i, s := range seqs {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, ", ")
}
