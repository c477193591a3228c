package report

import (
	"io"
	"time"

	"github.com/nao1215/wordcrawl/internal/model"
)

// Writer defines the interface for report output.
// Implementations write crawl summaries in various formats.
type Writer interface {
	// Write outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.CrawlSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because different writers render different formats
// of the same summary.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary *model.CrawlSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is used for every timestamp in text and Markdown reports.
const timeLayout = "2006-01-02 15:04:05 MST"

// formatTime returns "-" for the zero time, which summaries parsed from a
// result file carry.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

// formatDuration rounds to milliseconds; unfinished runs print "-".
func formatDuration(summary *model.CrawlSummary) string {
	d := summary.Duration()
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

// statusText describes how the run ended.
func statusText(summary *model.CrawlSummary) string {
	switch {
	case summary.Cancelled:
		return "Cancelled (partial results)"
	case summary.WriteErrors > 0:
		return "Complete with write errors"
	default:
		return "Complete"
	}
}
