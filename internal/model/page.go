package model

import "time"

// PageStatus describes what happened to a URL popped from the frontier.
type PageStatus int

const (
	// PageFetched means the page returned 200 and was processed.
	PageFetched PageStatus = iota

	// PageSkipped means the page returned 200 but was not HTML,
	// so no links or text were extracted.
	PageSkipped

	// PageFailed means the fetch failed or the status was not 200.
	// Failed pages are dropped without retry.
	PageFailed
)

// String returns a lower-case name for the status.
func (s PageStatus) String() string {
	switch s {
	case PageFetched:
		return "fetched"
	case PageSkipped:
		return "skipped"
	case PageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Page is the outcome of visiting one URL.
// It is handed to crawl observers and is not persisted.
type Page struct {
	// URL is the normalized address that was fetched.
	URL string `json:"url"`

	// FinalURL is the address the page was served from after redirects.
	// It is empty when the request was not redirected.
	FinalURL string `json:"final_url,omitempty"`

	// Status tells whether the page was processed, skipped or dropped.
	Status PageStatus `json:"status"`

	// StatusCode is the HTTP status code, or 0 on transport failure.
	StatusCode int `json:"status_code"`

	// ContentType is the value of the Content-Type response header.
	ContentType string `json:"content_type,omitempty"`

	// Links are the in-scope links discovered on the page.
	Links []string `json:"links,omitempty"`

	// NewLinks is the number of links that were new to the frontier.
	NewLinks int `json:"new_links"`

	// Matches are the matched words (same order as the word list).
	Matches []string `json:"matches,omitempty"`

	// Elapsed is the wall time spent fetching and processing the page.
	Elapsed time.Duration `json:"elapsed"`

	// Err is the fetch or processing error message for failed pages.
	Err string `json:"error,omitempty"`
}

// HasMatches reports whether at least one word matched on the page.
func (p *Page) HasMatches() bool {
	return len(p.Matches) > 0
}
