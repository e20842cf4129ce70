package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitespider/internal/config"
	"github.com/nao1215/sitespider/internal/database"
	"github.com/nao1215/sitespider/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show crawl runs recorded in the crawl ledger",
		Long: `History lists the most recent crawl runs. Given a run ID it prints the report
of that run, including every resource it processed.

Examples:
  # List the last 20 runs
  sitespider history

  # List every run
  sitespider history -n 0

  # Show one run as Markdown
  sitespider history -f markdown 4b0c6a5e-1d0f-4c55-9a53-2f7f1c0f8e6b`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the crawl ledger database")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs to list (0 lists all)")
	cmd.Flags().StringP("format", "f", config.ReportFormatText,
		"Report format of a single run: text, markdown or json")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(out, "No crawl runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'sitespider crawl <seed-url>' to start one.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if len(args) == 1 {
		return showRun(ctx, db, args[0], format, out)
	}
	return listRuns(ctx, db, limit, out)
}

// listRuns prints the most recent runs.
func listRuns(ctx context.Context, db *database.CrawlDB, limit int, out io.Writer) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'sitespider crawl <seed-url>' to start one.")
		return nil
	}

	fmt.Fprintf(out, "Crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-6s  %-6s  %-10s  %s\n", "ID", "Started", "Saved", "Total", "Duration", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))

	for _, run := range runs {
		duration := "running"
		if !run.FinishedAt.IsZero() {
			duration = run.Duration().Round(time.Second).String()
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %-6d  %-6d  %-10s  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Saved(),
			run.Total(),
			duration,
			run.SeedURL,
		)
	}

	fmt.Fprintln(out, "\nUse 'sitespider history <run-id>' to see the resources of a run.")
	return nil
}

// showRun prints the report of one run with all of its resources.
func showRun(ctx context.Context, db *database.CrawlDB, id, format string, out io.Writer) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", id)
	}

	resources, err := db.ListResources(ctx, id)
	if err != nil {
		return err
	}

	w, err := report.NewWriter(format, out, true, getVersion())
	if err != nil {
		return err
	}

	_, err = w.Write(&report.Run{
		Summary:   &run.RunSummary,
		OutputDir: run.OutputDir,
		Resources: resources,
	})
	return err
}
