package config

import (
	"maps"
	"strings"
	"time"
)

// SiteConfig holds crawl settings for one host.
// Zero values mean "not set" and fall through to the defaults.
type SiteConfig struct {
	// Concurrency overrides the number of workers.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Timeout overrides the per-fetch timeout, e.g. "10s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Extractor selects the HTML parsing backend ("dom" or "token").
	Extractor string `yaml:"extractor,omitempty"`

	// IgnoreExtensions replaces the downloadable-file extension table.
	IgnoreExtensions []string `yaml:"ignoreExtensions,omitempty"`

	// Headers are extra HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .wordcrawl configuration file.
type File struct {
	// Sites maps hosts (host[:port], without scheme) to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host, merged over defaults.
// The lookup is case-insensitive and also tries host without "www.".
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if site.Concurrency != 0 {
		result.Concurrency = site.Concurrency
	}
	if site.Timeout != 0 {
		result.Timeout = site.Timeout
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.Extractor != "" {
		result.Extractor = site.Extractor
	}
	if len(site.IgnoreExtensions) > 0 {
		result.IgnoreExtensions = site.IgnoreExtensions
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	return result
}

// lookup finds the Sites entry for host.
func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	candidates := []string{host, strings.TrimPrefix(host, "www.")}
	for _, candidate := range candidates {
		for key, site := range cf.Sites {
			if strings.ToLower(key) == candidate {
				return site, true
			}
		}
	}
	return SiteConfig{}, false
}
