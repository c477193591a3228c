package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// normalizeFlags are the purell rules applied to every URL before it is
// compared against the visited set or the crawl scope.
//
// Design decision: We only use the "safe" purell flags plus fragment removal.
// Unsafe rules (sorting query parameters, removing "www.", dropping
// directory indexes) can merge URLs that serve different pages.
const normalizeFlags = purell.FlagsSafe | purell.FlagRemoveFragment

// seedPattern is the loose shape check applied to user input: an optional
// http(s) scheme, one or more dot-separated labels and a final label of at
// least two letters. It is a prefix match, anything may follow the domain.
var seedPattern = regexp.MustCompile(`^(?i:https?://)?([a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}`)

// localSeedPattern accepts localhost and IP literals, which seedPattern
// rejects, so local sites and test servers can be crawled.
var localSeedPattern = regexp.MustCompile(`^(?i:https?://)?(localhost|\d{1,3}(\.\d{1,3}){3}|\[[0-9a-fA-F:.]+\])(:\d{1,5})?(/|\?|$)`)

// skippedSchemes are href prefixes that never lead to a crawlable page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "ftp:", "file:"}

// ParseSeed validates and normalizes the seed URL entered by the user.
// A missing scheme defaults to http. It returns an error wrapping
// ErrInvalidSeedURL when the input does not look like an HTTP(S) address.
func ParseSeed(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSeedURL)
	}
	if !seedPattern.MatchString(raw) && !localSeedPattern.MatchString(raw) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeedURL, raw)
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSeedURL, raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidSeedURL, raw)
	}

	normalized, err := url.Parse(NormalizeURL(u))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSeedURL, raw, err)
	}
	return normalized, nil
}

// NormalizeURL returns the canonical string form of u used for visited-set
// and scope checks: lowercase scheme and host, no default port, no fragment,
// and "/" for an empty path. u is not modified.
func NormalizeURL(u *url.URL) string {
	c := *u
	if c.User != nil {
		user := *c.User
		c.User = &user
	}
	if c.Path == "" && c.Opaque == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return purell.NormalizeURL(&c, normalizeFlags)
}

// ResolveLink resolves href against base and strips its fragment.
// It returns false for empty hrefs, non-navigational schemes
// (javascript:, mailto:, ...), unparseable values and results that are
// not absolute http(s) URLs.
func ResolveLink(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return nil, false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil, false
	}
	if resolved.Host == "" {
		return nil, false
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved, true
}

// SameHost reports whether u has the network location (host[:port]) host.
// Hosts compare case-insensitively and a default port equals no port.
// Scheme, path, query and fragment are not part of the comparison.
func SameHost(host string, u *url.URL) bool {
	return strings.EqualFold(CanonicalHost(u), host)
}

// CanonicalHost returns u's lowercased network location without the
// default port of its scheme.
func CanonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Host)
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		host = strings.TrimSuffix(host, ":"+port)
	}
	return host
}
