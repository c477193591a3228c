package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/wordcrawl/internal/model"
)

// maxPieSlices caps the word frequency chart; the rest is folded into "other".
const maxPieSlices = 10

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounters(md, summary)
	w.writeWords(md, summary)
	w.writeMatches(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H1("Wordcrawl Report")
	md.PlainText("")

	rows := make([][]string, 0, 6)
	if summary.Seed != "" {
		rows = append(rows, []string{"Seed", "`" + summary.Seed + "`"})
	}
	if summary.Host != "" {
		rows = append(rows, []string{"Host", "`" + summary.Host + "`"})
	}
	rows = append(rows,
		[]string{"Result File", "`" + summary.ResultFile + "`"},
		[]string{"Started", formatTime(summary.StartedAt)},
		[]string{"Duration", formatDuration(summary)},
		[]string{"Status", statusText(summary)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeCounters writes the page counters and an alert describing the run.
func (w *MarkdownWriter) writeCounters(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H2("Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Pages visited", strconv.Itoa(summary.PagesVisited())},
			{"Pages fetched", strconv.Itoa(summary.PagesFetched)},
			{"Pages skipped (not HTML)", strconv.Itoa(summary.PagesSkipped)},
			{"Pages failed", strconv.Itoa(summary.PagesFailed)},
			{"Links discovered", strconv.Itoa(summary.LinksDiscovered)},
			{"Pages with matches", "**" + strconv.Itoa(len(summary.Records)) + "**"},
		},
	})
	md.PlainText("")

	w.writeAlert(md, summary)
}

// writeAlert writes an appropriate alert based on how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.CrawlSummary) {
	switch {
	case summary.WriteErrors > 0:
		md.Cautionf(
			"%d record(s) could not be written. The result file may be incomplete.",
			summary.WriteErrors,
		)
	case summary.Cancelled:
		md.Warningf(
			"The crawl was cancelled after %d page(s). Results are partial.",
			summary.PagesVisited(),
		)
	case !summary.HasMatches():
		md.Note("None of the words were found.")
	default:
		md.Tip("Crawl finished.")
	}
	md.PlainText("")
}

// writeWords writes the word frequency table and pie chart.
func (w *MarkdownWriter) writeWords(md *markdown.Markdown, summary *model.CrawlSummary) {
	counts := summary.WordCounts()

	md.H2("Words")
	md.PlainText("")

	if len(counts) == 0 {
		md.PlainText("No words found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{escapeCell(c.Word), strconv.Itoa(c.Pages)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Word", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, counts)
}

// writePieChart writes a mermaid pie chart of the word frequency.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts []model.WordCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per Word"),
		piechart.WithShowData(true),
	)

	var other uint64
	for i, c := range counts {
		if i >= maxPieSlices {
			other += uint64(c.Pages)
			continue
		}
		chart.LabelAndIntValue(c.Word, uint64(c.Pages))
	}
	if other > 0 {
		chart.LabelAndIntValue("other", other)
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeMatches writes one table row per matched page.
func (w *MarkdownWriter) writeMatches(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H2("Matches")
	md.PlainText("")

	if !summary.HasMatches() {
		md.PlainText("No pages matched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Records))
	for i, r := range summary.Records {
		words := make([]string, len(r.Words))
		for j, word := range r.Words {
			words[j] = escapeCell(word)
		}
		rows[i] = []string{
			escapeCell(r.URL),
			strings.Join(words, ", "),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Words"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [wordcrawl](https://github.com/nao1215/wordcrawl)*")
}

// escapeCell keeps table cells on one row.
func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ", "\r", "").Replace(s)
}
