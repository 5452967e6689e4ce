package cmd

import (
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent entries from the maintenance log",
	Example: `  idxmaint history
  idxmaint history --limit 100 -o json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries, newest first")
	historyCmd.Flags().StringVarP(&flagOutput, "output", "o", outputText, "Output format: text, json or yaml")
}

func runHistory(cmd *cobra.Command, args []string) (err error) {
	if err := validateOutput(flagOutput); err != nil {
		return err
	}

	s, err := loadSession()
	if err != nil {
		return err
	}
	defer closeSession(s, &err)

	ctx := cmd.Context()
	if err := s.openSink(ctx); err != nil {
		return err
	}

	results, err := s.sink.History(ctx, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	structured, err := writeStructured(out, flagOutput, results)
	if err != nil || structured {
		return err
	}
	renderResults(out, results)
	return nil
}
