package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strrl/ticket-extract/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded evaluation runs",
	Long:  `List evaluation runs recorded with eval --record, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintf(out, "No recorded runs in %s\n", cfg.DBPath)
		return nil
	}

	for _, r := range runs {
		model := r.Provider
		if r.Model != "" {
			model += "/" + r.Model
		}
		fmt.Fprintf(out, "%s  %s  %s  %s\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, model, r.DataPath)

		scores := []string{fmt.Sprintf("samples=%d", r.Samples), fmt.Sprintf("validity=%.3f", r.Validity)}
		for _, fs := range r.Fields {
			if fs.NoValidPredictions {
				scores = append(scores, fs.Field+"=n/a")
				continue
			}
			scores = append(scores, fmt.Sprintf("%s=%.3f", fs.Field, fs.F1))
		}
		fmt.Fprintf(out, "    %s\n", strings.Join(scores, "  "))
	}
	return nil
}
