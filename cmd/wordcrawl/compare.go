package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/database"
	"github.com/nao1215/wordcrawl/internal/model"
)

// NewCompareCmd creates the compare command.
// This command compares the matches of two runs stored in the history database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <url>",
		Short: "Compare the matches of two runs of a site",
		Long: `Compare shows how the matches of a site changed between two runs:
- Pages that match now but did not before
- Pages that no longer match
- Pages whose matched words changed

By default the latest run is compared with the one before it.

Examples:
  # Compare the latest two runs
  wordcrawl compare example.com

  # Compare the latest run with run 5
  wordcrawl compare --with-run-id 5 example.com

  # Output the comparison as Markdown
  wordcrawl compare -m example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use 'wordcrawl history' to see IDs)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Validate arguments before opening the database.
	host, err := seedHost(args[0])
	if err != nil {
		return err
	}

	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	comparison, err := compareHostRuns(cmd.Context(), db, host, withRunID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return outputComparisonJSON(out, comparison)
	case markdownOutput:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// compareHostRuns compares the latest run of host with the previous run or
// with withRunID.
func compareHostRuns(ctx context.Context, db *database.HistoryDB, host string, withRunID int64) (*ComparisonResult, error) {
	runs, err := db.ListRuns(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found for %s", host)
	}

	current := runs[0]
	var previous database.Run
	switch {
	case withRunID > 0:
		p, err := db.GetRun(ctx, withRunID)
		if err != nil {
			return nil, err
		}
		if p.Host != current.Host {
			return nil, fmt.Errorf("run %d belongs to %s, not %s", withRunID, p.Host, current.Host)
		}
		if p.ID == current.ID {
			return nil, fmt.Errorf("run %d is the latest run; choose an older run", withRunID)
		}
		previous = *p
	case len(runs) < 2:
		return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	default:
		previous = runs[1]
	}

	previousRecords, err := db.GetRunMatches(ctx, previous.ID)
	if err != nil {
		return nil, err
	}
	currentRecords, err := db.GetRunMatches(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	result := compareRecords(previousRecords, currentRecords)
	result.Host = current.Host
	result.PreviousRun = newRunMetadata(&previous, len(previousRecords))
	result.CurrentRun = newRunMetadata(&current, len(currentRecords))
	return result, nil
}

// ComparisonResult holds the result of comparing the matches of two runs.
type ComparisonResult struct {
	// Host is the crawled host.
	Host string `json:"host"`

	// PreviousRun contains metadata about the older run.
	PreviousRun RunMetadata `json:"previous_run"`

	// CurrentRun contains metadata about the newer run.
	CurrentRun RunMetadata `json:"current_run"`

	// NewPages match in the current run only.
	NewPages []model.MatchRecord `json:"new_pages,omitempty"`

	// LostPages matched in the previous run only.
	LostPages []model.MatchRecord `json:"lost_pages,omitempty"`

	// ChangedPages match in both runs with different words.
	ChangedPages []PageChange `json:"changed_pages,omitempty"`

	// UnchangedCount is the number of pages with the same words in both runs.
	UnchangedCount int `json:"unchanged_count"`
}

// RunMetadata contains metadata about a run for comparison display.
type RunMetadata struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Visited   int       `json:"pages_visited"`
	Matches   int       `json:"matches"`
}

func newRunMetadata(r *database.Run, matches int) RunMetadata {
	return RunMetadata{
		ID:        r.ID,
		StartedAt: r.StartedAt,
		Visited:   r.PagesFetched + r.PagesSkipped + r.PagesFailed,
		Matches:   matches,
	}
}

// PageChange describes a page whose matched words differ between runs.
type PageChange struct {
	URL          string   `json:"url"`
	AddedWords   []string `json:"added_words,omitempty"`
	RemovedWords []string `json:"removed_words,omitempty"`
}

// HasChanges reports whether the two runs differ at all.
func (c *ComparisonResult) HasChanges() bool {
	return len(c.NewPages) > 0 || len(c.LostPages) > 0 || len(c.ChangedPages) > 0
}

// compareRecords compares two record lists by URL. Results are sorted by URL
// so that the output does not depend on crawl order.
func compareRecords(previous, current []model.MatchRecord) *ComparisonResult {
	result := &ComparisonResult{}

	previousByURL := recordsByURL(previous)
	currentByURL := recordsByURL(current)

	for pageURL, rec := range currentByURL {
		old, ok := previousByURL[pageURL]
		if !ok {
			result.NewPages = append(result.NewPages, rec)
			continue
		}
		added := wordDiff(rec.Words, old.Words)
		removed := wordDiff(old.Words, rec.Words)
		if len(added) == 0 && len(removed) == 0 {
			result.UnchangedCount++
			continue
		}
		result.ChangedPages = append(result.ChangedPages, PageChange{
			URL:          pageURL,
			AddedWords:   added,
			RemovedWords: removed,
		})
	}
	for pageURL, rec := range previousByURL {
		if _, ok := currentByURL[pageURL]; !ok {
			result.LostPages = append(result.LostPages, rec)
		}
	}

	byURL := func(a, b model.MatchRecord) int { return strings.Compare(a.URL, b.URL) }
	slices.SortFunc(result.NewPages, byURL)
	slices.SortFunc(result.LostPages, byURL)
	slices.SortFunc(result.ChangedPages, func(a, b PageChange) int { return strings.Compare(a.URL, b.URL) })

	return result
}

// recordsByURL indexes records by URL. A URL appears once per run, but the
// later record wins if a result file was appended to twice.
func recordsByURL(records []model.MatchRecord) map[string]model.MatchRecord {
	m := make(map[string]model.MatchRecord, len(records))
	for _, r := range records {
		m[r.URL] = r
	}
	return m
}

// wordDiff returns the words of a missing from b, in a's order.
func wordDiff(a, b []string) []string {
	var diff []string
	for _, w := range a {
		if !slices.Contains(b, w) && !slices.Contains(diff, w) {
			diff = append(diff, w)
		}
	}
	return diff
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText outputs the comparison result in human-readable form.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Run Comparison: %s\n", result.Host)
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "\nPrevious run: #%d  %s  (%d matches)\n",
		result.PreviousRun.ID, result.PreviousRun.StartedAt.Local().Format("2006-01-02 15:04:05"), result.PreviousRun.Matches)
	fmt.Fprintf(out, "Current run:  #%d  %s  (%d matches)\n",
		result.CurrentRun.ID, result.CurrentRun.StartedAt.Local().Format("2006-01-02 15:04:05"), result.CurrentRun.Matches)

	if !result.HasChanges() {
		fmt.Fprintf(out, "\nNo changes (%d pages unchanged)\n", result.UnchangedCount)
		return nil
	}

	if len(result.NewPages) > 0 {
		fmt.Fprintf(out, "\nNew Pages (%d):\n", len(result.NewPages))
		for _, r := range result.NewPages {
			fmt.Fprintf(out, "  [+] %s: %s\n", r.URL, strings.Join(r.Words, ", "))
		}
	}
	if len(result.LostPages) > 0 {
		fmt.Fprintf(out, "\nPages No Longer Matching (%d):\n", len(result.LostPages))
		for _, r := range result.LostPages {
			fmt.Fprintf(out, "  [-] %s: %s\n", r.URL, strings.Join(r.Words, ", "))
		}
	}
	if len(result.ChangedPages) > 0 {
		fmt.Fprintf(out, "\nChanged Pages (%d):\n", len(result.ChangedPages))
		for _, c := range result.ChangedPages {
			fmt.Fprintf(out, "  [~] %s\n", c.URL)
			if len(c.AddedWords) > 0 {
				fmt.Fprintf(out, "      added:   %s\n", strings.Join(c.AddedWords, ", "))
			}
			if len(c.RemovedWords) > 0 {
				fmt.Fprintf(out, "      removed: %s\n", strings.Join(c.RemovedWords, ", "))
			}
		}
	}

	fmt.Fprintf(out, "\nUnchanged: %d pages\n", result.UnchangedCount)
	return nil
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Run Comparison: " + result.Host)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Run", "ID", "Started", "Visited", "Matches"},
		Rows: [][]string{
			runRow("Previous", result.PreviousRun),
			runRow("Current", result.CurrentRun),
		},
	})
	md.PlainText("")

	if !result.HasChanges() {
		md.Note("No changes between the two runs.")
		return md.Build()
	}

	if len(result.NewPages) > 0 {
		md.H2(fmt.Sprintf("New Pages (%d)", len(result.NewPages)))
		md.PlainText("")
		items := make([]string, len(result.NewPages))
		for i, r := range result.NewPages {
			items[i] = "`" + r.URL + "`: " + strings.Join(r.Words, ", ")
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	if len(result.LostPages) > 0 {
		md.H2(fmt.Sprintf("Pages No Longer Matching (%d)", len(result.LostPages)))
		md.PlainText("")
		items := make([]string, len(result.LostPages))
		for i, r := range result.LostPages {
			items[i] = "~~`" + r.URL + "`~~"
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	if len(result.ChangedPages) > 0 {
		md.H2(fmt.Sprintf("Changed Pages (%d)", len(result.ChangedPages)))
		md.PlainText("")
		rows := make([][]string, len(result.ChangedPages))
		for i, c := range result.ChangedPages {
			rows[i] = []string{c.URL, dashIfEmpty(c.AddedWords), dashIfEmpty(c.RemovedWords)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Added", "Removed"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainTextf("*%d pages unchanged*", result.UnchangedCount)
	return md.Build()
}

func runRow(label string, r RunMetadata) []string {
	return []string{
		label,
		strconv.FormatInt(r.ID, 10),
		r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		strconv.Itoa(r.Visited),
		strconv.Itoa(r.Matches),
	}
}

func dashIfEmpty(words []string) string {
	if len(words) == 0 {
		return "-"
	}
	return strings.Join(words, ", ")
}
