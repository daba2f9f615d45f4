package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/strrl/ticket-extract/internal/ai"
	"github.com/strrl/ticket-extract/internal/schema"
)

var (
	predictProvider string
	predictModel    string
	predictRaw      bool
)

var predictCmd = &cobra.Command{
	Use:   "predict [message]",
	Short: "Extract the record of a single support message",
	Long: `Send one support message through the prompt, the configured model and the
extractor, and print the resulting record as JSON. The message is read from
standard input when no argument is given.`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictProvider, "provider", "", "Inference provider: openrouter, anthropic or gemini")
	predictCmd.Flags().StringVar(&predictModel, "model", "", "Model name for the provider")
	predictCmd.Flags().BoolVar(&predictRaw, "raw", false, "Also print the raw completion")
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	cfg.Provider = stringFlag(flags, "provider", predictProvider, cfg.Provider)
	cfg.Model = stringFlag(flags, "model", predictModel, cfg.Model)
	if err := cfg.Validate(); err != nil {
		return err
	}

	message := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read message from stdin: %w", err)
		}
		message = strings.TrimSpace(string(data))
	}
	if message == "" {
		return fmt.Errorf("message is empty")
	}

	inferer, err := ai.NewInferer(cmd.Context(), cfg.Inference())
	if err != nil {
		return fmt.Errorf("failed to initialize inference backend: %w", err)
	}
	defer inferer.Close()

	completion, err := inferer.Infer(cmd.Context(), ai.BuildPrompt(message))
	if err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}

	outcome := ai.NewExtractor(schema.Default).Parse(completion)
	if !outcome.Valid {
		logger.Warn("completion is not a JSON object", zap.Int("length", len(completion)))
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: model did not return valid JSON")
	}

	out := cmd.OutOrStdout()
	if predictRaw {
		fmt.Fprintf(out, "Raw completion:\n%s\n\n", completion)
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome.Ticket); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}
