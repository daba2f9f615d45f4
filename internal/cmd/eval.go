package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/strrl/ticket-extract/internal/ai"
	"github.com/strrl/ticket-extract/internal/config"
	"github.com/strrl/ticket-extract/internal/corpus"
	"github.com/strrl/ticket-extract/internal/eval"
	"github.com/strrl/ticket-extract/internal/output"
	"github.com/strrl/ticket-extract/internal/schema"
	"github.com/strrl/ticket-extract/internal/store"
)

var (
	evalData        string
	evalProvider    string
	evalModel       string
	evalConcurrency int
	evalLimit       int
	evalReport      string
	evalRecord      bool
	evalProgress    int
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score a model against a labeled corpus",
	Long: `Run every example of an eval-pairs file through the configured model,
parse the completions and report JSON validity plus macro F1 for each
categorical field. Predictions that do not name a field value are left out of
that field's score.

Use --provider oracle to answer with the gold records; it needs no model and
should score 1.000 everywhere.`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalData, "data", "", "Eval pairs file (default: <data_dir>/"+corpus.ValPairsFile+")")
	evalCmd.Flags().StringVar(&evalProvider, "provider", "", "Inference provider: openrouter, anthropic, gemini or oracle")
	evalCmd.Flags().StringVar(&evalModel, "model", "", "Model name for the provider")
	evalCmd.Flags().IntVarP(&evalConcurrency, "concurrency", "c", 1, "Concurrent inference requests")
	evalCmd.Flags().IntVar(&evalLimit, "limit", 0, "Evaluate only the first N examples (0 = all)")
	evalCmd.Flags().StringVar(&evalReport, "report", "", "Also write a Markdown report to this file")
	evalCmd.Flags().BoolVar(&evalRecord, "record", false, "Record the run in the DuckDB history")
	evalCmd.Flags().IntVar(&evalProgress, "progress", 100, "Log progress every N examples (0 = off)")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	cfg.Provider = stringFlag(flags, "provider", evalProvider, cfg.Provider)
	cfg.Model = stringFlag(flags, "model", evalModel, cfg.Model)
	cfg.Concurrency = intFlag(flags, "concurrency", evalConcurrency, cfg.Concurrency)
	if err := cfg.Validate(); err != nil {
		return err
	}

	dataPath := evalData
	if dataPath == "" {
		dataPath = filepath.Join(cfg.DataDir, corpus.ValPairsFile)
	}

	examples, err := corpus.ReadPairs(dataPath)
	if err != nil {
		return err
	}
	if len(examples) == 0 {
		return fmt.Errorf("%s: %w", dataPath, corpus.ErrEmptyCorpus)
	}
	if evalLimit > 0 && len(examples) > evalLimit {
		examples = examples[:evalLimit]
	}

	ctx := cmd.Context()
	builder := ai.NewPromptBuilder(schema.Default)
	extractor := ai.NewExtractor(schema.Default)

	inferer, err := newInferer(ctx, cfg, builder, examples)
	if err != nil {
		return err
	}
	defer inferer.Close()

	inference := cfg.Inference()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Evaluating %d examples from %s with %s", len(examples), dataPath, inference.Provider)
	if inference.Model != "" {
		fmt.Fprintf(out, " (%s)", inference.Model)
	}
	fmt.Fprintln(out)

	startedAt := time.Now().UTC()
	harness := eval.New(builder, extractor, inferer,
		eval.WithConcurrency(cfg.Concurrency),
		eval.WithLogger(logger),
		eval.WithProgress(evalProgress))

	report, err := harness.Evaluate(ctx, examples)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	if err := report.WriteText(out); err != nil {
		return err
	}

	meta := output.ReportMeta{
		Provider:    inference.Provider,
		Model:       inference.Model,
		DataPath:    dataPath,
		GeneratedAt: startedAt,
	}

	if evalRecord {
		runID, err := recordRun(ctx, cfg.DBPath, report, store.RunMeta{
			Provider:  meta.Provider,
			Model:     meta.Model,
			DataPath:  dataPath,
			StartedAt: startedAt,
		})
		if err != nil {
			return err
		}
		meta.RunID = runID
		fmt.Fprintf(out, "Recorded run %s in %s\n", runID, cfg.DBPath)
	}

	if evalReport != "" {
		if err := output.WriteReport(evalReport, report, meta); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote report to %s\n", evalReport)
	}

	return nil
}

// newInferer builds the configured backend. The oracle answers from the
// corpus being evaluated.
func newInferer(ctx context.Context, cfg config.Config, builder *ai.PromptBuilder, examples []schema.Example) (ai.Inferer, error) {
	inference := cfg.Inference()
	if inference.Provider == ai.ProviderOracle {
		return ai.NewOracle(builder, examples)
	}

	inferer, err := ai.NewInferer(ctx, inference)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", inference.Provider, err)
	}
	logger.Debug("inference backend ready",
		zap.String("provider", inference.Provider),
		zap.String("model", inference.Model))
	return inferer, nil
}

func recordRun(ctx context.Context, dbPath string, report *eval.Report, meta store.RunMeta) (string, error) {
	s, err := store.Open(dbPath, logger)
	if err != nil {
		return "", err
	}
	defer s.Close()

	return s.RecordRun(ctx, report, meta)
}
