package crawler

import (
	"bytes"
	"net/url"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Processor turns a fetched HTML body into crawlable links and matched
// words. It is bound to the crawl scope captured at start and is safe for
// concurrent use: it holds no mutable state.
type Processor struct {
	// host is the network location (host[:port]) links must share.
	host string

	// filter drops links to downloadable files. A nil filter drops nothing.
	filter *ExtensionFilter

	// extractor is the HTML parsing backend.
	extractor Extractor
}

// Extraction is the outcome of processing one page.
type Extraction struct {
	// Links are normalized in-scope URLs in first-seen order, without
	// duplicates.
	Links []string

	// Matches are the words found in the visible text, in word-list order.
	Matches []string
}

// NewProcessor returns a Processor scoped to base's network location.
// A nil extractor selects the DOM backend.
func NewProcessor(base *url.URL, filter *ExtensionFilter, extractor Extractor) *Processor {
	if extractor == nil {
		extractor = DOMExtractor{}
	}
	return &Processor{
		host:      CanonicalHost(base),
		filter:    filter,
		extractor: extractor,
	}
}

// InScope reports whether u belongs to the crawl and is not a downloadable
// file.
func (p *Processor) InScope(u *url.URL) bool {
	return SameHost(p.host, u) && !p.filter.Match(u)
}

// ExtractLinks returns the in-scope links of body resolved against pageURL.
func (p *Processor) ExtractLinks(pageURL *url.URL, body []byte) ([]string, error) {
	raw, err := p.extractor.ExtractLinks(pageURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw))
	links := make([]string, 0, len(raw))
	for _, u := range raw {
		if !p.InScope(u) {
			continue
		}
		normalized := NormalizeURL(u)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	}
	return links, nil
}

// ExtractText returns the lowercased visible text of body with anchor
// contents removed.
func (p *Processor) ExtractText(body []byte) (string, error) {
	text, err := p.extractor.ExtractText(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return cases.Lower(language.Und).String(text), nil
}

// Process extracts links and matched words from one page body.
func (p *Processor) Process(pageURL *url.URL, body []byte, words []string) (*Extraction, error) {
	links, err := p.ExtractLinks(pageURL, body)
	if err != nil {
		return nil, err
	}
	text, err := p.ExtractText(body)
	if err != nil {
		return nil, err
	}
	return &Extraction{
		Links:   links,
		Matches: FindMatches(text, words),
	}, nil
}
