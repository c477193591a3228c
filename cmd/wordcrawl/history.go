package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/crawler"
	"github.com/nao1215/wordcrawl/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List recorded crawl runs",
		Long: `History lists the runs stored in the history database, newest first.
Give a URL or host to list only the runs of that site.

Examples:
  # List every run
  wordcrawl history

  # List the runs of one site as JSON
  wordcrawl history example.com --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output runs in JSON format")
	cmd.Flags().IntP("limit", "l", 0, "Show at most this many runs (0 shows all)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var host string
	if len(args) == 1 {
		if host, err = seedHost(args[0]); err != nil {
			return err
		}
	}

	return listHistory(cmd.Context(), cmd.OutOrStdout(), config.XDGDataDir(), host, limit, jsonOutput)
}

// seedHost returns the canonical host of a seed URL or bare host.
func seedHost(raw string) (string, error) {
	base, err := crawler.ParseSeed(raw)
	if err != nil {
		return "", err
	}
	return crawler.CanonicalHost(base), nil
}

// historyEntry is the JSON form of one run.
type historyEntry struct {
	ID         int64     `json:"id"`
	Seed       string    `json:"seed"`
	Host       string    `json:"host"`
	ResultFile string    `json:"result_file"`
	Words      int       `json:"words"`
	Visited    int       `json:"pages_visited"`
	Matches    int       `json:"matches"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// listHistory prints the runs stored in dbDir.
func listHistory(ctx context.Context, out io.Writer, dbDir, host string, limit int, jsonOutput bool) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, host)
	if err != nil {
		return err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	if jsonOutput {
		entries := make([]historyEntry, len(runs))
		for i, r := range runs {
			entries[i] = historyEntry{
				ID:         r.ID,
				Seed:       r.Seed,
				Host:       r.Host,
				ResultFile: r.ResultFile,
				Words:      len(r.Words),
				Visited:    r.PagesFetched + r.PagesSkipped + r.PagesFailed,
				Matches:    r.MatchCount,
				Status:     runStatus(&r),
				StartedAt:  r.StartedAt,
				FinishedAt: r.FinishedAt,
			}
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	if len(runs) == 0 {
		if host != "" {
			fmt.Fprintf(out, "No runs found for %s\n", host)
		} else {
			fmt.Fprintln(out, "No runs found in the history database.")
		}
		fmt.Fprintln(out, "\nUse 'wordcrawl crawl <url> -w <file>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawl history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %-10s  %7s  %7s  %s\n", "ID", "Started", "Status", "Visited", "Matches", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 76))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-6d  %-19s  %-10s  %7d  %7d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runStatus(&r),
			r.PagesFetched+r.PagesSkipped+r.PagesFailed,
			r.MatchCount,
			r.Seed,
		)
	}

	fmt.Fprintln(out, "\nUse 'wordcrawl report --run <id>' to see the matches of a run.")
	fmt.Fprintln(out, "Use 'wordcrawl compare <url>' to compare the latest two runs of a site.")
	return nil
}

// runStatus is a one-word description of how a run ended.
func runStatus(r *database.Run) string {
	switch {
	case !r.Finished():
		return "incomplete"
	case r.Cancelled:
		return "cancelled"
	default:
		return "complete"
	}
}
