package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultConcurrency is the number of crawl workers.
	// Fifteen keeps a single site busy without looking like a flood.
	DefaultConcurrency = 15

	// DefaultTimeout bounds one fetch, redirects included.
	DefaultTimeout = 5 * time.Second

	// DefaultOutputDir is where the result file is created.
	DefaultOutputDir = "."

	// DefaultExtractor is the HTML parsing backend.
	DefaultExtractor = "dom"

	// DefaultMaxBodySize limits the response bytes read per page (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultUserAgent identifies wordcrawl in HTTP requests.
	DefaultUserAgent = "wordcrawl/1.0 (+https://github.com/nao1215/wordcrawl)"

	// DefaultParallelSeeds is the number of seeds crawled at once when
	// several are given.
	DefaultParallelSeeds = 1

	// DefaultTorStartupTimeout bounds the bootstrap of the embedded Tor daemon.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "wordcrawl"
)

// Config holds all configuration options for one crawl.
// It is populated from CLI flags and the configuration file, then passed
// to the crawler explicitly; nothing is kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable.
type Config struct {
	// Seed is the URL the crawl starts from, as typed by the user.
	Seed string

	// WordsFile is the path of the word list, one word per line.
	WordsFile string

	// Concurrency is the number of workers sharing the frontier.
	Concurrency int

	// Timeout bounds each fetch.
	Timeout time.Duration

	// OutputDir is the directory of the result file.
	OutputDir string

	// Extractor selects the HTML parsing backend ("dom" or "token").
	Extractor string

	// ProxyAddress routes requests through a SOCKS5 proxy ("host:port").
	// Empty means direct connections.
	ProxyAddress string

	// UseEmbeddedTor starts a private Tor daemon and routes every request
	// through it. Mutually exclusive with ProxyAddress.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds the bootstrap of the embedded Tor daemon.
	TorStartupTimeout time.Duration

	// ParallelSeeds is the number of seeds crawled at once.
	ParallelSeeds int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	// Set to 0 to use the default.
	MaxBodySize int64

	// IgnoreExtensions replaces the downloadable-file extension table when
	// non-empty.
	IgnoreExtensions []string

	// Headers are extra request headers.
	Headers map[string]string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON writes log records as JSON lines instead of text.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .wordcrawl is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the per-host configuration loaded from the file.
	SiteConfigs *File

	// JSONReport prints the run summary as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the run summary as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the summary to a file instead of stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB records the run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		OutputDir:   DefaultOutputDir,
		Extractor:   DefaultExtractor,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,

		ParallelSeeds:     DefaultParallelSeeds,
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// XDGDataDir returns the XDG data directory for wordcrawl.
// On Linux: ~/.local/share/wordcrawl
// On macOS: ~/Library/Application Support/wordcrawl
// On Windows: %LOCALAPPDATA%\wordcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for wordcrawl.
// It is the last place FindConfigFile looks.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if c.Seed == "" {
		return ErrNoSeed
	}
	if c.WordsFile == "" {
		return ErrNoWordsFile
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ParallelSeeds <= 0 {
		return ErrInvalidParallelSeeds
	}
	if c.UseEmbeddedTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}
	if c.UseEmbeddedTor && c.TorStartupTimeout <= 0 {
		return ErrInvalidTorStartupTimeout
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ApplySite overlays the file's settings for host onto c. Fields listed in
// skip were set explicitly on the command line and keep their value.
// Valid skip names are the YAML keys: concurrency, timeout, userAgent,
// extractor, ignoreExtensions and headers.
func (c *Config) ApplySite(host string, skip ...string) {
	if c.SiteConfigs == nil {
		return
	}
	site := c.SiteConfigs.GetSiteConfig(host)
	keep := make(map[string]bool, len(skip))
	for _, k := range skip {
		keep[k] = true
	}

	if site.Concurrency > 0 && !keep["concurrency"] {
		c.Concurrency = site.Concurrency
	}
	if site.Timeout > 0 && !keep["timeout"] {
		c.Timeout = site.Timeout
	}
	if site.UserAgent != "" && !keep["userAgent"] {
		c.UserAgent = site.UserAgent
	}
	if site.Extractor != "" && !keep["extractor"] {
		c.Extractor = site.Extractor
	}
	if len(site.IgnoreExtensions) > 0 && !keep["ignoreExtensions"] {
		c.IgnoreExtensions = site.IgnoreExtensions
	}
	if len(site.Headers) > 0 && !keep["headers"] {
		c.Headers = site.Headers
	}
}
