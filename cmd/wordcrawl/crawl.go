package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/crawler"
	"github.com/nao1215/wordcrawl/internal/database"
	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/report"
	"github.com/nao1215/wordcrawl/internal/result"
	"github.com/nao1215/wordcrawl/internal/transport"
)

// siteFlags maps crawl flags to the configuration file keys they override.
// A flag set on the command line keeps its value over the file.
var siteFlags = map[string]string{
	"concurrency": "concurrency",
	"timeout":     "timeout",
	"user-agent":  "userAgent",
	"extractor":   "extractor",
	"ignore-ext":  "ignoreExtensions",
}

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl a site and record pages containing any of the words",
		Long: `Crawl fetches every page reachable from the seed URL that stays on the
seed's host, and appends each page whose visible text contains at least one
word of the word list to links_<host>.txt.

Links to downloadable files (archives, images, media, documents) are never
followed. A URL without a scheme is fetched over http.

Several seeds may be given. Each one is crawled on its own, with its own
result file; --parallel sets how many are crawled at the same time.

Examples:
  # Crawl a site with the default 15 workers
  wordcrawl crawl example.com -w words.txt

  # Write the result file to another directory and print a Markdown summary
  wordcrawl crawl https://example.com/docs/ -w words.txt -o results -m

  # Crawl through a SOCKS5 proxy with the streaming HTML parser
  wordcrawl crawl example.com -w words.txt --proxy 127.0.0.1:1080 --extractor token

  # Crawl two sites at once through an embedded Tor daemon
  wordcrawl crawl example.com example.org -w words.txt --parallel 2 --tor

Configuration file (.wordcrawl) example:
  defaults:
    concurrency: 15
  sites:
    example.com:
      timeout: 15s
      ignoreExtensions: [pdf, zip]`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Input
	cmd.Flags().StringP("words", "w", "",
		"Word list file, one word per line (required)")

	// Crawl behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of concurrent workers")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request, redirects included")
	cmd.Flags().String("extractor", config.DefaultExtractor,
		"HTML parser: dom or token")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of response bytes read per page")
	cmd.Flags().StringSlice("ignore-ext", nil,
		"Replace the downloadable-file extension table (e.g. pdf,zip)")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Maximum time to wait for the embedded Tor daemon to bootstrap")
	cmd.Flags().IntP("parallel", "p", config.DefaultParallelSeeds,
		"Number of seeds crawled at the same time")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory of the links_<host>.txt result file")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .wordcrawl in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run summary as Markdown (mutually exclusive with --json)")
	cmd.Flags().String("report-file", "",
		"Write the run summary to a file instead of stdout")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfgs := make([]*config.Config, 0, len(args))
	for _, seed := range args {
		cfg, err := buildCrawlConfig(cmd, []string{seed})
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		cfgs = append(cfgs, cfg)
	}
	if len(cfgs) > 1 && cfgs[0].ReportFile != "" {
		return errors.New("--report-file cannot be used with more than one seed")
	}

	first := cfgs[0]
	logger := setupLogger(cmd.ErrOrStderr(), first.Verbose, first.LogJSON)

	// SIGINT and SIGTERM stop the workers after their current page.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if first.UseEmbeddedTor {
		embedded, err := startEmbeddedTor(ctx, cmd.ErrOrStderr(), first, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor daemon", "error", err)
			}
		}()
		for _, cfg := range cfgs {
			cfg.ProxyAddress = embedded.SocksAddr()
		}
	}

	if len(cfgs) == 1 {
		_, err := runCrawl(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), first, logger)
		return err
	}
	return runBatch(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfgs, logger)
}

// startEmbeddedTor launches the embedded Tor daemon and waits until its
// SOCKS5 listener is usable.
func startEmbeddedTor(ctx context.Context, errOut io.Writer, cfg *config.Config, logger *slog.Logger) (*transport.EmbeddedTor, error) {
	fmt.Fprintln(errOut, "Starting embedded Tor daemon...")
	fmt.Fprintln(errOut, "This may take a few minutes while Tor bootstraps.")

	embedded := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return nil, err
	}

	logger.Info("embedded Tor daemon started", "socks_addr", embedded.SocksAddr())
	fmt.Fprintf(errOut, "Tor SOCKS proxy: %s\n", embedded.SocksAddr())
	return embedded, nil
}

// runBatch crawls several seeds, cfgs[i] belonging to the i-th seed.
// A failing seed does not stop the others; all failures are returned joined.
//
// Seeds on the same host share one result file. They run one after the
// other, so the records of two runs never interleave in that file.
func runBatch(ctx context.Context, out, errOut io.Writer, cfgs []*config.Config, logger *slog.Logger) error {
	seeds := make([]string, len(cfgs))
	bySeed := make(map[string]*config.Config, len(cfgs))
	fileLocks := make(map[string]*sync.Mutex, len(cfgs))
	seedLocks := make(map[string]*sync.Mutex, len(cfgs))
	for i, cfg := range cfgs {
		seeds[i] = cfg.Seed
		bySeed[cfg.Seed] = cfg

		path, ok := resultPath(cfg)
		if !ok {
			continue
		}
		if fileLocks[path] == nil {
			fileLocks[path] = &sync.Mutex{}
		}
		seedLocks[cfg.Seed] = fileLocks[path]
	}

	// Reports of seeds crawled at the same time must not interleave.
	var mu sync.Mutex
	syncOut := &syncWriter{mu: &mu, w: out}
	syncErrOut := &syncWriter{mu: &mu, w: errOut}

	batch := crawler.NewBatch(
		crawler.WithBatchConcurrency(cfgs[0].ParallelSeeds),
		crawler.WithBatchLogger(logger),
	)
	results, err := batch.Run(ctx, seeds, func(ctx context.Context, seed string) (*model.CrawlSummary, error) {
		if lock := seedLocks[seed]; lock != nil {
			lock.Lock()
			defer lock.Unlock()
		}
		return runCrawl(ctx, syncOut, syncErrOut, bySeed[seed], logger)
	})

	var (
		errs             []error
		visited, matched int
		crawled          int
	)
	for _, r := range results {
		if r.Summary != nil {
			crawled++
			visited += r.Summary.PagesVisited()
			matched += len(r.Summary.Records)
		}
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Seed, r.Err))
		}
	}
	fmt.Fprintf(errOut, "Batch finished: %d of %d seed(s) crawled, %d page(s) visited, %d matched.\n",
		crawled, len(results), visited, matched)

	if len(errs) == 0 {
		return err
	}
	return errors.Join(errs...)
}

// resultPath returns the result file a crawl of cfg.Seed appends to.
// It is false for seeds that Run would reject.
func resultPath(cfg *config.Config) (string, bool) {
	base, err := crawler.ParseSeed(cfg.Seed)
	if err != nil {
		return "", false
	}
	return filepath.Join(cfg.OutputDir, result.FileName(base.Host)), true
}

// syncWriter serializes writes of several goroutines to one writer.
type syncWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

// Write implements io.Writer.
func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// buildCrawlConfig creates a Config from cobra command flags and the
// configuration file.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if len(args) > 0 {
		cfg.Seed = args[0]
	}
	if cfg.WordsFile, err = flags.GetString("words"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Extractor, err = flags.GetString("extractor"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.IgnoreExtensions, err = flags.GetStringSlice("ignore-ext"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseEmbeddedTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.ParallelSeeds, err = flags.GetInt("parallel"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogJSON = getPersistentBool(cmd, "log-json")

	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	// An invalid seed is reported by the crawler with its own error.
	if base, err := crawler.ParseSeed(cfg.Seed); err == nil {
		var skip []string
		for flag, key := range siteFlags {
			if flags.Changed(flag) {
				skip = append(skip, key)
			}
		}
		cfg.ApplySite(crawler.CanonicalHost(base), skip...)
	}

	return cfg, nil
}

// loadSiteConfigs loads the configuration file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty configuration is used when no file is found.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return file, nil
}

// runCrawl executes one crawl. The run summary goes to out (or the report
// file), progress messages go to errOut. The summary is also returned; it
// is nil when the seed was rejected before crawling.
func runCrawl(ctx context.Context, out, errOut io.Writer, cfg *config.Config, logger *slog.Logger) (*model.CrawlSummary, error) {
	words, err := config.LoadWords(cfg.WordsFile)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		logger.Warn("word list is empty; no page will match", "file", cfg.WordsFile)
	}

	extractor, err := crawler.NewExtractor(cfg.Extractor)
	if err != nil {
		return nil, err
	}

	if cfg.ProxyAddress != "" {
		if err := transport.CheckProxy(ctx, cfg.ProxyAddress); err != nil {
			return nil, fmt.Errorf("proxy check failed: %w", err)
		}
		logger.Info("SOCKS5 proxy verified", "address", cfg.ProxyAddress)
	}

	client, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	opts := []crawler.Option{
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithHTTPClient(client),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithExtractor(extractor),
		crawler.WithOutputDir(cfg.OutputDir),
		crawler.WithLogger(logger),
		crawler.WithObserver(progressObserver(logger)),
	}
	if len(cfg.IgnoreExtensions) > 0 {
		opts = append(opts, crawler.WithIgnoreFilter(crawler.NewExtensionFilter(cfg.IgnoreExtensions...)))
	}

	history := openHistory(ctx, cfg, words, logger)
	if history != nil {
		defer history.close()
		opts = append(opts, crawler.WithSink(history.sink))
	}

	fmt.Fprintf(errOut, "Crawling %s with %d workers...\n", cfg.Seed, cfg.Concurrency)

	summary, runErr := crawler.New(opts...).Run(ctx, cfg.Seed, words)
	if summary == nil {
		// Nothing was fetched; the run is not worth keeping.
		if history != nil {
			history.discard()
		}
		return nil, runErr
	}

	if history != nil {
		history.finish(summary)
	}

	fmt.Fprintf(errOut, "Crawl %s in %s: %d page(s) visited, %d matched. Results: %s\n",
		finishedVerb(summary), summary.Duration().Round(time.Millisecond),
		summary.PagesVisited(), len(summary.Records), summary.ResultFile)

	if err := outputReport(out, cfg, summary); err != nil {
		return summary, err
	}

	if errors.Is(runErr, context.Canceled) {
		return summary, fmt.Errorf("crawl interrupted: %w", runErr)
	}
	return summary, runErr
}

func finishedVerb(summary *model.CrawlSummary) string {
	if summary.Cancelled {
		return "cancelled"
	}
	return "completed"
}

// newHTTPClient builds the client shared by all workers.
func newHTTPClient(cfg *config.Config) (*http.Client, error) {
	opts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithProxy(cfg.ProxyAddress),
	}

	// Sorted so that the header order is stable between runs.
	keys := slices.Sorted(maps.Keys(cfg.Headers))
	for _, k := range keys {
		opts = append(opts, transport.WithHeader(k, cfg.Headers[k]))
	}

	return transport.NewClient(opts...)
}

// progressObserver logs every handled page at debug level.
func progressObserver(logger *slog.Logger) crawler.Observer {
	return func(page model.Page) {
		logger.Debug("page handled",
			"url", page.URL,
			"status", page.Status.String(),
			"code", page.StatusCode,
			"new_links", page.NewLinks,
			"matches", len(page.Matches),
			"elapsed", page.Elapsed,
		)
	}
}

// runHistory records one crawl in the history database.
type runHistory struct {
	db     *database.HistoryDB
	sink   *database.RunSink
	logger *slog.Logger
}

// openHistory opens the history database and starts a run. History is
// best effort: any failure is logged and the crawl continues without it.
func openHistory(ctx context.Context, cfg *config.Config, words []string, logger *slog.Logger) *runHistory {
	if !cfg.SaveToDB {
		return nil
	}
	base, err := crawler.ParseSeed(cfg.Seed)
	if err != nil {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("history disabled: failed to open database", "dir", cfg.DBDir, "error", err)
		return nil
	}

	runID, err := db.StartRun(ctx, crawler.NormalizeURL(base), crawler.CanonicalHost(base), words)
	if err != nil {
		logger.Warn("history disabled: failed to start run", "error", err)
		_ = db.Close()
		return nil
	}
	logger.Debug("history run started", "run_id", runID, "db", db.Path())

	return &runHistory{
		db:     db,
		sink:   db.RunSink(runID),
		logger: logger,
	}
}

// finish stores the counters. It runs after cancellation, so it does not
// use the crawl context.
func (h *runHistory) finish(summary *model.CrawlSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), database.DefaultWriteTimeout)
	defer cancel()
	if err := h.db.FinishRun(ctx, h.sink.RunID(), summary); err != nil {
		h.logger.Error("failed to finish history run", "run_id", h.sink.RunID(), "error", err)
	}
}

// discard deletes a run that never started crawling.
func (h *runHistory) discard() {
	ctx, cancel := context.WithTimeout(context.Background(), database.DefaultWriteTimeout)
	defer cancel()
	if err := h.db.DeleteRun(ctx, h.sink.RunID()); err != nil {
		h.logger.Error("failed to delete history run", "run_id", h.sink.RunID(), "error", err)
	}
}

func (h *runHistory) close() {
	if err := h.db.Close(); err != nil {
		h.logger.Error("failed to close history database", "error", err)
	}
}

// outputReport writes the summary in the requested format to the report
// file, or to out when no file is set.
func outputReport(out io.Writer, cfg *config.Config, summary *model.CrawlSummary) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	_, err := newReportWriter(out, cfg.JSONReport, cfg.MarkdownReport, cfg.Verbose).Write(summary)
	return err
}

// newReportWriter selects the report format.
func newReportWriter(out io.Writer, jsonOutput, markdownOutput, verbose bool) report.Writer {
	switch {
	case jsonOutput:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case markdownOutput:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(verbose))
	}
}
