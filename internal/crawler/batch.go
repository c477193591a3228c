package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wordcrawl/internal/model"
)

// DefaultBatchConcurrency is the number of seeds crawled at the same time.
// Every seed already runs its own worker pool, so seeds run one by one
// unless asked otherwise.
const DefaultBatchConcurrency = 1

// SeedFunc crawls one seed and returns its summary.
type SeedFunc func(ctx context.Context, seed string) (*model.CrawlSummary, error)

// BatchResult is the outcome of one seed of a batch.
type BatchResult struct {
	// Index is the position of the seed in the input slice.
	Index int

	// Seed is the seed as given.
	Seed string

	// Summary is nil when the seed failed validation or was never started.
	Summary *model.CrawlSummary

	// Err is the error returned for this seed, if any.
	Err error
}

// Batch crawls several seeds with a limit on how many run at once.
// Each seed gets its own Run, and so its own frontier and result file;
// nothing is shared between seeds.
//
// Design decision: A failing seed does not stop the batch. Its error is
// stored in its BatchResult, because one mistyped URL in a list should not
// cost the results of all the others.
type Batch struct {
	// concurrency is the maximum number of seeds crawled at once.
	concurrency int

	// logger receives batch progress.
	logger *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithBatchConcurrency sets the number of seeds crawled at once.
// Values below 1 are ignored.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets the batch logger. The default discards all output.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatch creates a Batch.
func NewBatch(opts ...BatchOption) *Batch {
	b := &Batch{
		concurrency: DefaultBatchConcurrency,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run crawls every seed with fn and returns one result per seed, in input
// order. Seeds not started before ctx was cancelled carry ctx.Err().
// The returned error is ctx.Err() when the batch was cancelled, else nil.
func (b *Batch) Run(ctx context.Context, seeds []string, fn SeedFunc) ([]BatchResult, error) {
	results := make([]BatchResult, len(seeds))
	err := b.RunWithCallback(ctx, seeds, fn, func(r BatchResult) {
		// Each goroutine owns one index, so no lock is needed.
		results[r.Index] = r
	})
	return results, err
}

// RunWithCallback is Run that hands every result to callback as soon as its
// seed is done. callback is called from the batch goroutines and must be
// safe for concurrent use when the batch concurrency is above 1.
func (b *Batch) RunWithCallback(ctx context.Context, seeds []string, fn SeedFunc, callback func(BatchResult)) error {
	b.logger.Info("batch started", "seeds", len(seeds), "concurrency", b.concurrency)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			r := BatchResult{Index: i, Seed: seed}
			if err := ctx.Err(); err != nil {
				r.Err = err
				callback(r)
				return nil
			}

			b.logger.Info("crawling seed", "seed", seed, "index", i+1, "total", len(seeds))
			r.Summary, r.Err = fn(ctx, seed)
			if r.Err != nil {
				b.logger.Warn("seed failed", "seed", seed, "error", r.Err)
			}
			callback(r)
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Info("batch finished", "seeds", len(seeds), "elapsed", time.Since(start))
	return ctx.Err()
}
