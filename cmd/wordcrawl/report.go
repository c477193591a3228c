package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/database"
	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/result"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [result-file]",
		Short: "Render a result file or a recorded run as a report",
		Long: `Report reads a links_<host>.txt result file, or a run stored in the history
database, and prints it as text, JSON or Markdown.

Examples:
  # Summarize a result file
  wordcrawl report links_example_com.txt

  # Render run 3 from the history database as Markdown
  wordcrawl report --run 3 -m

  # Write a JSON report to a file
  wordcrawl report links_example_com.txt -j --report-file report.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReportCmd,
	}

	cmd.Flags().Int64P("run", "r", 0,
		"Render a run from the history database (see 'wordcrawl history')")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().String("report-file", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("report-file"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}

	var summary *model.CrawlSummary
	switch {
	case runID > 0 && len(args) > 0:
		return errors.New("specify either a result file or --run, not both")
	case runID > 0:
		summary, err = loadRunSummary(cmd.Context(), cfg.DBDir, runID)
	case len(args) == 1:
		summary, err = loadFileSummary(args[0])
	default:
		return errors.New("a result file or --run <id> is required")
	}
	if err != nil {
		return err
	}

	return outputReport(cmd.OutOrStdout(), cfg, summary)
}

// loadFileSummary builds a summary from a result file. Only the records and
// the file name are known.
func loadFileSummary(path string) (*model.CrawlSummary, error) {
	records, err := result.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}
	return &model.CrawlSummary{
		ResultFile: filepath.Clean(path),
		Records:    records,
	}, nil
}

// loadRunSummary builds a summary from a stored run.
func loadRunSummary(ctx context.Context, dbDir string, runID int64) (*model.CrawlSummary, error) {
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	records, err := db.GetRunMatches(ctx, runID)
	if err != nil {
		return nil, err
	}
	return runSummary(run, records), nil
}

// runSummary converts a stored run back to the crawler's summary.
func runSummary(run *database.Run, records []model.MatchRecord) *model.CrawlSummary {
	return &model.CrawlSummary{
		Seed:            run.Seed,
		Host:            run.Host,
		ResultFile:      run.ResultFile,
		Words:           run.Words,
		Workers:         run.Workers,
		PagesFetched:    run.PagesFetched,
		PagesSkipped:    run.PagesSkipped,
		PagesFailed:     run.PagesFailed,
		LinksDiscovered: run.LinksDiscovered,
		WriteErrors:     run.WriteErrors,
		Records:         records,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		Cancelled:       run.Cancelled,
	}
}
