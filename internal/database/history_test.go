package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/result"
)

// Compile-time check that RunSink can be fanned out with the result file.
var _ result.Sink = (*RunSink)(nil)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if db.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("Path() = %q", db.Path())
		}
		if _, err := os.Stat(db.Path()); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
	})

	t.Run("CreateIfNotExists=false returns ErrDatabaseNotFound", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !errors.Is(statErr, os.ErrNotExist) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		dbDir := filepath.Join(t.TempDir(), "existing-db")

		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		runID, err := db1.StartRun(ctx, "http://example.com/", "example.com", []string{"go"})
		if err != nil {
			t.Fatalf("StartRun() error = %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		if _, err := db2.GetRun(ctx, runID); err != nil {
			t.Errorf("expected run to persist: %v", err)
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	words := []string{"golang", "rust"}

	runID, err := db.StartRun(ctx, "http://Example.com/", "Example.com", words)
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	run, err := db.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Finished() {
		t.Error("run should not be finished before FinishRun")
	}
	if run.Host != "example.com" {
		t.Errorf("Host = %q, want lowercased host", run.Host)
	}
	if !slices.Equal(run.Words, words) {
		t.Errorf("Words = %v, want %v", run.Words, words)
	}

	sink := db.RunSink(runID)
	if sink.RunID() != runID {
		t.Errorf("RunID() = %d, want %d", sink.RunID(), runID)
	}
	if err := sink.Append("http://example.com/a", []string{"golang"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := sink.Append("http://example.com/b", []string{"golang", "rust"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	started := time.Now().Add(-time.Second)
	summary := &model.CrawlSummary{
		ResultFile:      "links_example_com.txt",
		Workers:         4,
		PagesFetched:    3,
		PagesSkipped:    1,
		PagesFailed:     2,
		LinksDiscovered: 6,
		StartedAt:       started,
		FinishedAt:      started.Add(time.Second),
		Cancelled:       true,
	}
	if err := db.FinishRun(ctx, runID, summary); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	run, err = db.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if !run.Finished() {
		t.Error("run should be finished")
	}
	if run.ResultFile != summary.ResultFile || run.Workers != 4 {
		t.Errorf("unexpected run metadata: %+v", run)
	}
	if run.PagesFetched != 3 || run.PagesSkipped != 1 || run.PagesFailed != 2 || run.LinksDiscovered != 6 {
		t.Errorf("unexpected counters: %+v", run)
	}
	if !run.Cancelled {
		t.Error("expected Cancelled to be stored")
	}
	if run.MatchCount != 2 {
		t.Errorf("MatchCount = %d, want 2", run.MatchCount)
	}
	if !run.FinishedAt.Equal(summary.FinishedAt) {
		t.Errorf("FinishedAt = %v, want %v", run.FinishedAt, summary.FinishedAt)
	}

	records, err := db.GetRunMatches(ctx, runID)
	if err != nil {
		t.Fatalf("GetRunMatches() error = %v", err)
	}
	want := []model.MatchRecord{
		model.NewMatchRecord("http://example.com/a", []string{"golang"}),
		model.NewMatchRecord("http://example.com/b", []string{"golang", "rust"}),
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i := range want {
		if records[i].URL != want[i].URL || !slices.Equal(records[i].Words, want[i].Words) {
			t.Errorf("record[%d] = %+v, want %+v", i, records[i], want[i])
		}
	}
}

func TestUnknownRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	if _, err := db.GetRun(ctx, 42); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
	if err := db.FinishRun(ctx, 42, &model.CrawlSummary{}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FinishRun() error = %v, want ErrRunNotFound", err)
	}
	if err := db.InsertMatch(ctx, 42, "http://example.com/", []string{"x"}); err == nil {
		t.Error("InsertMatch() for unknown run should violate the foreign key")
	}

	records, err := db.GetRunMatches(ctx, 42)
	if err != nil {
		t.Fatalf("GetRunMatches() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestDeleteRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	runID, err := db.StartRun(ctx, "http://example.com/", "example.com", nil)
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if err := db.InsertMatch(ctx, runID, "http://example.com/", []string{"w"}); err != nil {
		t.Fatalf("InsertMatch() error = %v", err)
	}

	if err := db.DeleteRun(ctx, runID); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}
	if _, err := db.GetRun(ctx, runID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() after delete error = %v, want ErrRunNotFound", err)
	}
	records, err := db.GetRunMatches(ctx, runID)
	if err != nil {
		t.Fatalf("GetRunMatches() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected matches to be deleted with the run, got %d", len(records))
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	hosts := []string{"example.com", "example.org", "example.com"}
	ids := make([]int64, 0, len(hosts))
	for _, host := range hosts {
		id, err := db.StartRun(ctx, "http://"+host+"/", host, nil)
		if err != nil {
			t.Fatalf("StartRun() error = %v", err)
		}
		ids = append(ids, id)
	}

	tests := []struct {
		name string
		host string
		want []int64
	}{
		{name: "all runs newest first", host: "", want: []int64{ids[2], ids[1], ids[0]}},
		{name: "filter by host", host: "example.com", want: []int64{ids[2], ids[0]}},
		{name: "host is case-insensitive", host: "EXAMPLE.ORG", want: []int64{ids[1]}},
		{name: "unknown host", host: "example.net", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runs, err := db.ListRuns(t.Context(), tt.host)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			got := make([]int64, 0, len(runs))
			for _, r := range runs {
				got = append(got, r.ID)
				if r.Words == nil {
					t.Errorf("run %d: Words should decode to an empty list", r.ID)
				}
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ListRuns(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestRunSink_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	runID, err := db.StartRun(ctx, "http://example.com/", "example.com", []string{"w"})
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	sink := db.RunSink(runID)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- sink.Append(fmt.Sprintf("http://example.com/%d", i), []string{"w"})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	records, err := db.GetRunMatches(ctx, runID)
	if err != nil {
		t.Fatalf("GetRunMatches() error = %v", err)
	}
	if len(records) != writers {
		t.Errorf("got %d records, want %d", len(records), writers)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 3, 4, 5, 6, 7, 800, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{input: formatTimestamp(ref), want: ref},
		{input: "2025-03-04T05:06:07Z", want: ref.Truncate(time.Second)},
		{input: "2025-03-04 05:06:07", want: ref.Truncate(time.Second)},
		{input: "garbage", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatTimestampOrdering(t *testing.T) {
	t.Parallel()

	a := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(time.Millisecond)
	if formatTimestamp(a) >= formatTimestamp(b) {
		t.Errorf("text order does not follow time order: %q >= %q", formatTimestamp(a), formatTimestamp(b))
	}
}
