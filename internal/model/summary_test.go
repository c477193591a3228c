package model

import (
	"slices"
	"testing"
	"time"
)

func TestCrawlSummaryWordCounts(t *testing.T) {
	t.Parallel()

	summary := &CrawlSummary{
		Words: []string{"alpha", "beta", "gamma", "delta"},
		Records: []MatchRecord{
			NewMatchRecord("http://example.test/1", []string{"beta"}),
			NewMatchRecord("http://example.test/2", []string{"alpha", "beta"}),
			NewMatchRecord("http://example.test/3", []string{"gamma", "extra"}),
		},
	}

	want := []WordCount{
		{Word: "beta", Pages: 2},
		{Word: "alpha", Pages: 1},
		{Word: "gamma", Pages: 1},
		{Word: "extra", Pages: 1},
	}
	if got := summary.WordCounts(); !slices.Equal(got, want) {
		t.Errorf("WordCounts() = %+v, want %+v", got, want)
	}
}

func TestCrawlSummaryCounters(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	summary := &CrawlSummary{
		PagesFetched: 5,
		PagesSkipped: 2,
		PagesFailed:  1,
		StartedAt:    start,
	}

	if got := summary.PagesVisited(); got != 8 {
		t.Errorf("PagesVisited() = %d, want 8", got)
	}
	if got := summary.Duration(); got != 0 {
		t.Errorf("Duration() of unfinished run = %v, want 0", got)
	}
	summary.FinishedAt = start.Add(1500 * time.Millisecond)
	if got := summary.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", got)
	}
	if summary.HasMatches() {
		t.Error("HasMatches() = true without records")
	}
}

func TestNewMatchRecordCopiesWords(t *testing.T) {
	t.Parallel()

	words := []string{"cat", "dog"}
	r := NewMatchRecord("http://example.test/", words)
	words[0] = "changed"

	if r.Words[0] != "cat" {
		t.Errorf("record shares the caller's slice: %v", r.Words)
	}
	if !r.HasWord("dog") || r.HasWord("Dog") {
		t.Error("HasWord should match exactly")
	}
}

func TestPageStatusString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status PageStatus
		want   string
	}{
		{PageFetched, "fetched"},
		{PageSkipped, "skipped"},
		{PageFailed, "failed"},
		{PageStatus(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("PageStatus(%d).String() = %q, want %q", int(tt.status), got, tt.want)
		}
	}
}
