package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/simmatch/simmatch"
)

func newScoreCmd() *cobra.Command {
	var (
		flags      matchFlags
		corpusPath string
	)
	cmd := &cobra.Command{
		Use:   "score A B",
		Short: "Print the similarity score of two strings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := flags.buildMatcher(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if strings.TrimSpace(corpusPath) != "" {
				records, err := flags.readRecords(corpusPath, m.Config().Columns)
				if err != nil {
					return err
				}
				if err := m.SetCorpus(simmatch.Opaques(records)); err != nil {
					return fmt.Errorf("set corpus: %w", err)
				}
			}
			score, err := m.ScoreOne(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", score)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&corpusPath, "corpus-file", "", "Records whose n-gram frequencies weight the score")
	return cmd
}
