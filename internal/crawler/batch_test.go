package crawler

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/wordcrawl/internal/model"
)

func TestBatchRun(t *testing.T) {
	t.Parallel()

	first := newSite(t, map[string]string{
		"/":     `<p>gopher</p><a href="/next">next</a>`,
		"/next": `<p>nothing</p>`,
	})
	second := newSite(t, map[string]string{
		"/": `<p>gopher and crab</p>`,
	})

	dir := t.TempDir()
	c := New(
		WithConcurrency(2),
		WithOutputDir(dir),
		WithHTTPClient(routerClient(map[string]*httptest.Server{
			"first.test":  first.Server,
			"second.test": second.Server,
		})),
	)

	seeds := []string{"http://first.test/", "not a url", "http://second.test/"}
	crawlSeed := func(ctx context.Context, seed string) (*model.CrawlSummary, error) {
		return c.Run(ctx, seed, []string{"gopher", "crab"})
	}
	results, err := NewBatch(WithBatchConcurrency(2)).Run(t.Context(), seeds, crawlSeed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != len(seeds) {
		t.Fatalf("got %d results, want %d", len(results), len(seeds))
	}

	for i, r := range results {
		if r.Index != i || r.Seed != seeds[i] {
			t.Errorf("result %d = {Index: %d, Seed: %q}", i, r.Index, r.Seed)
		}
	}

	if results[0].Err != nil || results[0].Summary == nil {
		t.Fatalf("first seed: err = %v, summary = %v", results[0].Err, results[0].Summary)
	}
	if results[0].Summary.PagesFetched != 2 {
		t.Errorf("first seed fetched %d pages, want 2", results[0].Summary.PagesFetched)
	}
	if want := filepath.Join(dir, "links_first_test.txt"); results[0].Summary.ResultFile != want {
		t.Errorf("first result file = %q, want %q", results[0].Summary.ResultFile, want)
	}

	if !errors.Is(results[1].Err, ErrInvalidSeedURL) {
		t.Errorf("invalid seed error = %v, want ErrInvalidSeedURL", results[1].Err)
	}
	if results[1].Summary != nil {
		t.Error("invalid seed should have no summary")
	}

	if results[2].Err != nil || results[2].Summary == nil {
		t.Fatalf("second seed: err = %v", results[2].Err)
	}
	records := results[2].Summary.Records
	if len(records) != 1 || len(records[0].Words) != 2 {
		t.Errorf("second seed records = %+v", records)
	}
}

func TestBatchConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	fn := func(_ context.Context, seed string) (*model.CrawlSummary, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return &model.CrawlSummary{Seed: seed}, nil
	}

	seeds := []string{"a.test", "b.test", "c.test", "d.test", "e.test", "f.test"}
	results, err := NewBatch(WithBatchConcurrency(2)).Run(t.Context(), seeds, fn)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
	for i, r := range results {
		if r.Summary == nil || r.Summary.Seed != seeds[i] {
			t.Errorf("result %d has summary %+v", i, r.Summary)
		}
	}
}

func TestBatchCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var calls atomic.Int32
	fn := func(context.Context, string) (*model.CrawlSummary, error) {
		calls.Add(1)
		return &model.CrawlSummary{}, nil
	}

	results, err := NewBatch().Run(ctx, []string{"a.test", "b.test"}, fn)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancellation", calls.Load())
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("result %q error = %v, want context.Canceled", r.Seed, r.Err)
		}
	}
}

func TestBatchRunWithCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[int]string)
	fn := func(_ context.Context, seed string) (*model.CrawlSummary, error) {
		return &model.CrawlSummary{Seed: seed}, nil
	}

	seeds := []string{"a.test", "b.test", "c.test"}
	err := NewBatch(WithBatchConcurrency(3)).RunWithCallback(t.Context(), seeds, fn, func(r BatchResult) {
		mu.Lock()
		defer mu.Unlock()
		seen[r.Index] = r.Summary.Seed
	})
	if err != nil {
		t.Fatalf("RunWithCallback() error = %v", err)
	}
	if len(seen) != len(seeds) {
		t.Fatalf("callback called for %d seeds, want %d", len(seen), len(seeds))
	}
	for i, seed := range seeds {
		if seen[i] != seed {
			t.Errorf("index %d got seed %q, want %q", i, seen[i], seed)
		}
	}
}

func TestNewBatchDefaults(t *testing.T) {
	t.Parallel()

	b := NewBatch(WithBatchConcurrency(0), WithBatchLogger(nil))
	if b.concurrency != DefaultBatchConcurrency {
		t.Errorf("concurrency = %d, want %d", b.concurrency, DefaultBatchConcurrency)
	}
	if b.logger == nil {
		t.Error("logger should not be nil")
	}
}
