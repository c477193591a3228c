package model

import (
	"sort"
	"time"
)

// CrawlSummary contains the statistics and records of one crawl run.
// It is produced by the crawler, rendered by the report writers and
// stored in the history database.
type CrawlSummary struct {
	// Seed is the seed URL after normalization.
	Seed string `json:"seed"`

	// Host is the network location that bounded the crawl.
	Host string `json:"host"`

	// ResultFile is the path of the result file written by the run.
	ResultFile string `json:"result_file"`

	// Words is the word list the run searched for.
	Words []string `json:"words"`

	// Workers is the number of concurrent workers used.
	Workers int `json:"workers"`

	// PagesFetched counts pages that returned 200 and were processed.
	PagesFetched int `json:"pages_fetched"`

	// PagesSkipped counts 200 responses that were not HTML.
	PagesSkipped int `json:"pages_skipped"`

	// PagesFailed counts URLs dropped because of errors or non-200 status.
	PagesFailed int `json:"pages_failed"`

	// LinksDiscovered counts distinct URLs claimed by the frontier,
	// including the seed.
	LinksDiscovered int `json:"links_discovered"`

	// WriteErrors counts records that could not be written to the sink.
	WriteErrors int `json:"write_errors"`

	// Records are the match records in completion order.
	Records []MatchRecord `json:"records"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last worker exited.
	FinishedAt time.Time `json:"finished_at"`

	// Cancelled is true when the run was stopped by context cancellation.
	Cancelled bool `json:"cancelled"`
}

// Duration returns the wall time of the run.
// It returns 0 if the run has not finished.
func (s *CrawlSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// HasMatches reports whether the run wrote at least one record.
func (s *CrawlSummary) HasMatches() bool {
	return len(s.Records) > 0
}

// PagesVisited returns the number of URLs popped from the frontier.
func (s *CrawlSummary) PagesVisited() int {
	return s.PagesFetched + s.PagesSkipped + s.PagesFailed
}

// WordCount is the number of pages a word was found on.
type WordCount struct {
	Word  string `json:"word"`
	Pages int    `json:"pages"`
}

// WordCounts returns, for every word of the word list that matched at least
// once, the number of pages it was found on. The result is sorted by page
// count (descending) and then by word-list order.
func (s *CrawlSummary) WordCounts() []WordCount {
	counts := make(map[string]int)
	for _, r := range s.Records {
		for _, w := range r.Words {
			counts[w]++
		}
	}

	result := make([]WordCount, 0, len(counts))
	seen := make(map[string]bool)
	for _, w := range s.Words {
		if seen[w] || counts[w] == 0 {
			continue
		}
		seen[w] = true
		result = append(result, WordCount{Word: w, Pages: counts[w]})
	}
	// Records may come from a parsed result file whose words are not in s.Words.
	for _, r := range s.Records {
		for _, w := range r.Words {
			if !seen[w] {
				seen[w] = true
				result = append(result, WordCount{Word: w, Pages: counts[w]})
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Pages > result[j].Pages
	})
	return result
}
