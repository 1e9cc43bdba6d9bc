package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/simmatch/simmatch"
)

func newMatchCmd() *cobra.Command {
	var (
		flags        matchFlags
		needlesPath  string
		haystackPath string
		outputPath   string
		stdout       bool
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match each needle record to its best haystack record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(needlesPath) == "" {
				return errors.New("missing required --needles file")
			}
			if strings.TrimSpace(haystackPath) == "" {
				return errors.New("missing required --haystack file")
			}
			m, cleanup, err := flags.buildMatcher(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			columns := m.Config().Columns
			needles, err := flags.readRecords(needlesPath, columns)
			if err != nil {
				return err
			}
			haystack, err := flags.readRecords(haystackPath, columns)
			if err != nil {
				return err
			}

			results, err := m.Matches(cmd.Context(), simmatch.Opaques(needles), simmatch.Opaques(haystack))
			if err != nil {
				return fmt.Errorf("match: %w", err)
			}
			return writeResults(cmd, results, outputPath, stdout)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&needlesPath, "needles", "", "Text/CSV/TSV file with the records to match")
	cmd.Flags().StringVar(&haystackPath, "haystack", "", "Text/CSV/TSV file with the known records")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "CSV file to write results (default: STDOUT)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print a readable summary to STDOUT")
	return cmd
}

// writeResults writes CSV to outputPath, or to STDOUT when no path is given
// and no summary was asked for.
func writeResults(cmd *cobra.Command, results []simmatch.Result, outputPath string, summary bool) error {
	out := cmd.OutOrStdout()
	outputPath = strings.TrimSpace(outputPath)
	if outputPath != "" {
		if err := writeResultFile(outputPath, results); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d results to %s\n", len(results), outputPath)
	} else if !summary {
		return simmatch.WriteResultsCSV(out, results)
	}
	if summary {
		printSummary(out, results)
	}
	return nil
}

func writeResultFile(path string, results []simmatch.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	if err := simmatch.WriteResultsCSV(f, results); err != nil {
		f.Close()
		return fmt.Errorf("write result file: %w", err)
	}
	return f.Close()
}

func printSummary(w io.Writer, results []simmatch.Result) {
	matched := 0
	for i, r := range results {
		if !r.Matched {
			fmt.Fprintf(w, "%d. %s\n    no match\n", i+1, simmatch.RecordText(r.Needle))
			continue
		}
		matched++
		fmt.Fprintf(w, "%d. %s\n    -> %s (score=%.3f)\n", i+1, simmatch.RecordText(r.Needle), simmatch.RecordText(r.Match), r.Score)
	}
	fmt.Fprintf(w, "%d of %d matched\n", matched, len(results))
}
