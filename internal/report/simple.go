package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/result"
)

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no content are shown.
	showEmpty bool

	// verbose also prints the searched word list and per-page counters.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.CrawlSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounters(&sb, summary)
	w.writeWordCounts(&sb, summary)
	w.writeMatches(&sb, summary)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.CrawlSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         WORDCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if summary.Seed != "" {
		fmt.Fprintf(sb, "Seed:        %s\n", summary.Seed)
	}
	if summary.Host != "" {
		fmt.Fprintf(sb, "Host:        %s\n", summary.Host)
	}
	fmt.Fprintf(sb, "Result File: %s\n", summary.ResultFile)
	fmt.Fprintf(sb, "Started:     %s\n", formatTime(summary.StartedAt))
	fmt.Fprintf(sb, "Duration:    %s\n", formatDuration(summary))
	fmt.Fprintf(sb, "Status:      %s\n", statusText(summary))
	if w.verbose && len(summary.Words) > 0 {
		fmt.Fprintf(sb, "Words:       %s\n", strings.Join(summary.Words, ", "))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCounters(sb *strings.Builder, summary *model.CrawlSummary) {
	if summary.PagesVisited() == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "CRAWL SUMMARY")
	fmt.Fprintf(sb, "  VISITED:    %d\n", summary.PagesVisited())
	fmt.Fprintf(sb, "  FETCHED:    %d\n", summary.PagesFetched)
	fmt.Fprintf(sb, "  SKIPPED:    %d\n", summary.PagesSkipped)
	fmt.Fprintf(sb, "  FAILED:     %d\n", summary.PagesFailed)
	fmt.Fprintf(sb, "  DISCOVERED: %d\n", summary.LinksDiscovered)
	if w.verbose {
		fmt.Fprintf(sb, "  WORKERS:    %d\n", summary.Workers)
		fmt.Fprintf(sb, "  WRITE ERR:  %d\n", summary.WriteErrors)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeWordCounts(sb *strings.Builder, summary *model.CrawlSummary) {
	counts := summary.WordCounts()
	if len(counts) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "WORDS")
	if len(counts) == 0 {
		sb.WriteString("  No words found\n\n")
		return
	}
	for _, c := range counts {
		fmt.Fprintf(sb, "  %-30s %d page(s)\n", c.Word, c.Pages)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeMatches(sb *strings.Builder, summary *model.CrawlSummary) {
	if !summary.HasMatches() && !w.showEmpty {
		return
	}

	writeSection(sb, fmt.Sprintf("MATCHES (%d)", len(summary.Records)))
	if !summary.HasMatches() {
		sb.WriteString("  No pages matched\n\n")
		return
	}
	for _, r := range summary.Records {
		fmt.Fprintf(sb, "  [+] %s\n", r.URL)
		fmt.Fprintf(sb, "      %s: %s\n", result.WordsLabel, strings.Join(r.Words, ", "))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by wordcrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// writeSection writes a dashed section header.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
