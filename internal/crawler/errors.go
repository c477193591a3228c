package crawler

import "errors"

// Input validation errors.
// These are the only run-level failures: they are returned by Crawler.Run
// before any page is fetched. Once workers have started, fetch failures are
// handled locally and never surface as errors.
//
// Design decision: We use sentinel errors wrapped with the offending input
// (fmt.Errorf("%w: ...")) so callers can branch with errors.Is while the CLI
// still prints the URL that was rejected.
var (
	// ErrInvalidSeedURL is returned when the seed does not look like an
	// HTTP(S) address: optional scheme, dot-separated labels and a final
	// label of at least two letters (or localhost / an IP literal).
	ErrInvalidSeedURL = errors.New("invalid seed URL")

	// ErrSeedIgnored is returned when the seed itself matches the
	// downloadable-file filter, leaving nothing to crawl.
	ErrSeedIgnored = errors.New("seed URL points to an ignored file type")
)

// ErrUnknownExtractor is returned by NewExtractor for an unsupported name.
var ErrUnknownExtractor = errors.New("unknown extractor")

// errUnexpectedStatus marks a response whose status code is not 200 OK.
var errUnexpectedStatus = errors.New("unexpected status code")
