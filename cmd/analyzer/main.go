package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/will-garrett/redis-streams-poc/internal/analyzer"
)

// Exit codes form the scriptable contract: automation keys off the code,
// never the report text.
const (
	exitClean  = 0
	exitIssues = 1
	exitFailed = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		outputDir string
		prefix    string
		verbose   bool
	)

	exitCode := exitClean

	cmd := &cobra.Command{
		Use:   "analyzer",
		Short: "Analyze consumer output files for duplicate and missing sequences",
		Long: `Reads every consumer output file in the output directory, reconstructs
the global processing history, and reports duplicate sequences, gaps in
the observed range, and the per-consumer load distribution.

Exit codes: 0 = every sequence processed exactly once, 1 = duplicates or
missing sequences found, 2 = analysis failed (unreadable directory or no
parseable records).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "Analyzing %s*.txt in %s\n", prefix, outputDir)
			}

			report, err := analyzer.Analyze(outputDir, prefix)
			if err != nil {
				return err
			}

			report.Render(cmd.OutOrStdout(), verbose)
			if !report.Clean() {
				exitCode = exitIssues
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "consumer_output", "directory containing consumer output files")
	cmd.Flags().StringVar(&prefix, "prefix", "consumer_", "output file name prefix")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := cmd.Execute(); err != nil {
		if errors.Is(err, analyzer.ErrNoRecords) {
			fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return exitFailed
	}
	return exitCode
}
