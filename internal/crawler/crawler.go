package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/result"
	"github.com/nao1215/wordcrawl/internal/transport"
)

// Default crawl settings.
const (
	// DefaultConcurrency is the number of workers sharing one frontier.
	DefaultConcurrency = 15

	// DefaultTimeout bounds a single fetch, including redirects.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxBodySize is the number of body bytes read per page.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// DefaultUserAgent identifies the crawler to servers.
	DefaultUserAgent = "wordcrawl/1.0 (+https://github.com/nao1215/wordcrawl)"
)

// Observer is called once for every URL popped from the frontier, after the
// page has been handled. It is called from worker goroutines concurrently
// and must not block for long.
type Observer func(page model.Page)

// Crawler crawls every page reachable from a seed URL without leaving the
// seed's network location, and records pages whose visible text contains
// words from a word list.
//
// Design decision: A Crawler holds only configuration. Every Run creates
// its own Frontier, Processor and sink because:
//  1. Runs never share visited state, even on the same Crawler
//  2. There is no package-level mutable state to reset between tests
//  3. One Crawler can be reused for several seeds
type Crawler struct {
	// client performs the fetches. When nil, Run builds one with
	// transport.NewClient.
	client *http.Client

	// concurrency is the fixed number of workers.
	concurrency int

	// timeout bounds each fetch.
	timeout time.Duration

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize limits the response bytes read per page.
	maxBodySize int64

	// extractor is the HTML parsing backend.
	extractor Extractor

	// filter drops links to downloadable files.
	filter *ExtensionFilter

	// outputDir is the directory of the result file.
	outputDir string

	// sinks receive every record in addition to the result file.
	sinks []result.Sink

	// logger receives fetch failures (debug) and write failures (error).
	logger *slog.Logger

	// observer is notified of every handled page.
	observer Observer
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithConcurrency sets the number of workers. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout sets the per-fetch timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client used for fetches.
// The per-fetch timeout is still applied through the request context.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		c.client = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per page.
func WithMaxBodySize(size int64) Option {
	return func(c *Crawler) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithExtractor sets the HTML parsing backend.
func WithExtractor(e Extractor) Option {
	return func(c *Crawler) {
		if e != nil {
			c.extractor = e
		}
	}
}

// WithIgnoreFilter replaces the downloadable-file filter.
// A filter with no extensions follows every link.
func WithIgnoreFilter(f *ExtensionFilter) Option {
	return func(c *Crawler) {
		if f != nil {
			c.filter = f
		}
	}
}

// WithOutputDir sets the directory the result file is created in.
func WithOutputDir(dir string) Option {
	return func(c *Crawler) {
		c.outputDir = dir
	}
}

// WithSink adds a sink that receives every record after the result file.
// The result file itself is always written.
func WithSink(s result.Sink) Option {
	return func(c *Crawler) {
		if s != nil {
			c.sinks = append(c.sinks, s)
		}
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver sets a callback invoked for every handled page.
func WithObserver(o Observer) Option {
	return func(c *Crawler) {
		c.observer = o
	}
}

// New creates a Crawler with the given options.
func New(opts ...Option) *Crawler {
	c := &Crawler{
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		extractor:   DOMExtractor{},
		filter:      DefaultExtensionFilter(),
		outputDir:   ".",
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run holds the state shared by the workers of one Run.
type run struct {
	words     []string
	frontier  *Frontier
	processor *Processor
	sink      result.Sink
	client    *http.Client

	// mu guards summary. It is distinct from the frontier lock and from
	// the sink lock.
	mu      sync.Mutex
	summary *model.CrawlSummary
}

// Run crawls from seed and appends every page whose visible text contains at
// least one of words to the result file links_<host>.txt. It returns when
// the frontier is drained or ctx is cancelled.
//
// Only input validation and result file creation fail a run; they are
// reported before any page is fetched. Fetch failures are logged and the
// page is dropped. When ctx is cancelled the workers stop after their
// current page and the partial summary is returned with ctx.Err().
func (c *Crawler) Run(ctx context.Context, seed string, words []string) (*model.CrawlSummary, error) {
	base, err := ParseSeed(seed)
	if err != nil {
		return nil, err
	}
	if c.filter.Match(base) {
		return nil, fmt.Errorf("%w: %s", ErrSeedIgnored, base)
	}

	resultPath := filepath.Join(c.outputDir, result.FileName(base.Host))
	fileSink, err := result.NewFileSink(resultPath)
	if err != nil {
		return nil, err
	}

	client := c.client
	if client == nil {
		client, err = transport.NewClient(transport.WithTimeout(c.timeout))
		if err != nil {
			return nil, err
		}
	}

	sinks := make(result.MultiSink, 0, len(c.sinks)+1)
	sinks = append(sinks, fileSink)
	sinks = append(sinks, c.sinks...)

	seedURL := NormalizeURL(base)
	r := &run{
		words:     append([]string(nil), words...),
		frontier:  NewFrontier(),
		processor: NewProcessor(base, c.filter, c.extractor),
		sink:      sinks,
		client:    client,
		summary: &model.CrawlSummary{
			Seed:       seedURL,
			Host:       base.Host,
			ResultFile: resultPath,
			Words:      append([]string(nil), words...),
			Workers:    c.concurrency,
			StartedAt:  time.Now(),
		},
	}
	r.frontier.Claim(seedURL)

	c.logger.Info("crawl started",
		"seed", seedURL,
		"workers", c.concurrency,
		"words", len(words),
		"result", resultPath,
	)
	c.logger.Debug("ignored extensions", "extensions", c.filter.Extensions())

	var g errgroup.Group
	for range c.concurrency {
		g.Go(func() error {
			c.work(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	summary := r.summary
	summary.FinishedAt = time.Now()
	summary.LinksDiscovered = r.frontier.Stats().Visited
	summary.Cancelled = ctx.Err() != nil

	c.logger.Info("crawl finished",
		"seed", seedURL,
		"fetched", summary.PagesFetched,
		"failed", summary.PagesFailed,
		"records", len(summary.Records),
		"cancelled", summary.Cancelled,
		"drained", r.frontier.Drained(),
		"duration", summary.Duration(),
	)

	if summary.Cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}

// work is the worker loop: pop, visit, mark done, until the frontier is
// drained or closed.
func (c *Crawler) work(ctx context.Context, r *run) {
	for {
		pageURL, ok := r.frontier.Pop(ctx)
		if !ok {
			return
		}
		page := c.visit(ctx, r, pageURL)
		r.frontier.Done()

		if c.observer != nil {
			c.observer(page)
		}
	}
}

// visit fetches and processes one URL. It never fails: errors are recorded
// on the returned page.
func (c *Crawler) visit(ctx context.Context, r *run, pageURL string) model.Page {
	start := time.Now()
	page := model.Page{URL: pageURL}

	resp, err := c.fetch(ctx, r.client, pageURL)
	if err != nil {
		c.logger.Debug("fetch failed", "url", pageURL, "error", err)
		page.Status = model.PageFailed
		page.Err = err.Error()
		page.Elapsed = time.Since(start)
		r.record(&page, nil)
		return page
	}
	page.StatusCode = resp.statusCode
	page.ContentType = resp.contentType

	if !resp.html {
		c.logger.Debug("skipping non-HTML page", "url", pageURL, "content_type", resp.contentType)
		page.Status = model.PageSkipped
		page.Elapsed = time.Since(start)
		r.record(&page, nil)
		return page
	}

	if resp.finalURL != nil {
		if final := NormalizeURL(resp.finalURL); final != pageURL {
			page.FinalURL = final
			c.logger.Debug("page redirected", "url", pageURL, "final_url", final)
		}
	}

	// Links resolve against the frontier URL, not the redirect target, so a
	// seed that redirects to another host (apex to www) keeps its scope.
	base, err := url.Parse(pageURL)
	if err != nil {
		page.Status = model.PageFailed
		page.Err = err.Error()
		page.Elapsed = time.Since(start)
		r.record(&page, nil)
		return page
	}

	extraction, err := r.processor.Process(base, resp.body, r.words)
	if err != nil {
		c.logger.Debug("failed to process page", "url", pageURL, "error", err)
		page.Status = model.PageFailed
		page.Err = err.Error()
		page.Elapsed = time.Since(start)
		r.record(&page, nil)
		return page
	}

	page.Status = model.PageFetched
	page.Links = extraction.Links
	page.Matches = extraction.Matches
	for _, link := range extraction.Links {
		if r.frontier.Claim(link) {
			page.NewLinks++
		}
	}

	var rec *model.MatchRecord
	if page.HasMatches() {
		if err := r.sink.Append(pageURL, page.Matches); err != nil {
			c.logger.Error("failed to write match record", "url", pageURL, "error", err)
			page.Err = err.Error()
		} else {
			record := model.NewMatchRecord(pageURL, page.Matches)
			rec = &record
		}
	}
	page.Elapsed = time.Since(start)
	r.record(&page, rec)
	return page
}

// record adds the outcome of one page to the run summary.
func (r *run) record(page *model.Page, rec *model.MatchRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch page.Status {
	case model.PageFetched:
		r.summary.PagesFetched++
		if page.HasMatches() && rec == nil {
			r.summary.WriteErrors++
		}
	case model.PageSkipped:
		r.summary.PagesSkipped++
	case model.PageFailed:
		r.summary.PagesFailed++
	}
	if rec != nil {
		r.summary.Records = append(r.summary.Records, *rec)
	}
}
