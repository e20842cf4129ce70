package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	spiderlog "github.com/nao1215/sitespider/internal/log"
)

// NewRootCmd creates the root command for sitespider.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitespider",
		Short: "Breadth-first site crawler that archives pages, PDFs and zip files",
		Long: `sitespider crawls a web site from a seed URL, one generation of links at a time,
and saves every page, PDF document and zip archive it finds together with
their extracted text.

Artifacts are written below the output directory:
  html/ txt/ pdf/ pdf2txt/ zip/ unzipped/`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the credential-redacting console logger.
func setupLogger(verbose bool) *slog.Logger {
	return spiderlog.NewSecureLogger(os.Stderr, verbose)
}
