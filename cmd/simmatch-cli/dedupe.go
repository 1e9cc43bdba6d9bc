package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/simmatch/simmatch"
)

func newDedupeCmd() *cobra.Command {
	var (
		flags      matchFlags
		inputPath  string
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Find groups of likely duplicate records in one file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(inputPath) == "" {
				return errors.New("missing required --input file")
			}
			m, cleanup, err := flags.buildMatcher(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			records, err := flags.readRecords(inputPath, m.Config().Columns)
			if err != nil {
				return err
			}

			if err := m.SetCorpus(simmatch.Opaques(records)); err != nil {
				return fmt.Errorf("set corpus: %w", err)
			}
			results, err := m.Dedupe(cmd.Context())
			if err != nil {
				return fmt.Errorf("dedupe: %w", err)
			}
			if strings.TrimSpace(outputPath) != "" {
				if err := writeResultFile(outputPath, results); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d results to %s\n", len(results), outputPath)
			}
			printGroups(cmd.OutOrStdout(), simmatch.Groups(results))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&inputPath, "input", "", "Text/CSV/TSV file to search for duplicates")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Also write the pairwise results as CSV")
	return cmd
}

func printGroups(w io.Writer, groups []simmatch.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "no duplicates found")
		return
	}
	for i, g := range groups {
		fmt.Fprintf(w, "group %d (%d records, weakest score=%.3f)\n", i+1, len(g.Records), g.Score)
		for j, rec := range g.Records {
			fmt.Fprintf(w, "  [%d] %s\n", g.Indices[j]+1, simmatch.RecordText(rec))
		}
	}
}
