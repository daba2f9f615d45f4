package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strrl/ticket-extract/internal/corpus"
	"github.com/strrl/ticket-extract/internal/db"
	"github.com/strrl/ticket-extract/internal/schema"
	"github.com/strrl/ticket-extract/internal/store"
)

var statsData string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the label distribution of a corpus",
	Long: `Count gold labels per categorical field of an eval-pairs file using DuckDB,
and show the manifest of the corpus directory when there is one.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsData, "data", "", "Eval pairs file (default: <data_dir>/"+corpus.TrainPairsFile+")")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dataPath := statsData
	if dataPath == "" {
		dataPath = filepath.Join(cfg.DataDir, corpus.TrainPairsFile)
	}

	conn, err := db.Memory()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	stats, err := store.ReadCorpusStats(cmd.Context(), conn, dataPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Corpus: %s\n", dataPath)

	manifest, err := corpus.ReadManifest(filepath.Dir(dataPath))
	switch {
	case err == nil:
		fmt.Fprintf(out, "Manifest: schema %s, weights %s, seed %d, %d train / %d val\n",
			manifest.SchemaVersion, manifest.WeightsVersion, manifest.Seed, manifest.Train, manifest.Val)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return err
	}

	fmt.Fprintf(out, "Examples: %d\n", stats.Examples)
	for _, field := range schema.Default.Fields() {
		fmt.Fprintf(out, "\n%s:\n", field)
		for _, lc := range stats.Field(field) {
			share := 0.0
			if stats.Examples > 0 {
				share = float64(lc.Count) / float64(stats.Examples)
			}
			fmt.Fprintf(out, "  %-16s %6d  %5.1f%%\n", lc.Label, lc.Count, 100*share)
		}
	}
	return nil
}
