package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/ticket-extract/internal/corpus"
	"github.com/strrl/ticket-extract/internal/schema"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, git commit, build date and data format versions of ticket-extract.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ticket-extract version %s\n", Version)
		fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Build date: %s\n", BuildDate)
		fmt.Fprintf(out, "  Schema: %s\n", schema.Version)
		fmt.Fprintf(out, "  Corpus format: %d\n", corpus.FormatVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
