package crawler

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// DefaultIgnoredExtensions lists file extensions of downloadable content
// that is never fetched: archives, documents, images, media and installers.
var DefaultIgnoredExtensions = []string{
	// Archives
	".zip", ".rar", ".tar", ".gz", ".7z",
	// Documents
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	// Images
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp",
	// Media
	".mp3", ".mp4", ".avi", ".mov", ".wmv",
	// Executables and installers
	".exe", ".msi", ".dmg", ".deb", ".rpm",
}

// ExtensionFilter decides whether a URL points to a downloadable file,
// based on the extension of its path. A filter is immutable once created,
// so it can be shared by all workers of a run without locking.
//
// Design decision: The extension table is injected rather than hard-coded
// in the crawl loop so it can be tested on its own and extended from the
// configuration file without touching crawl logic.
type ExtensionFilter struct {
	extensions map[string]struct{}
}

// NewExtensionFilter creates a filter for the given extensions.
// Extensions are matched case-insensitively; the leading dot is optional.
func NewExtensionFilter(extensions ...string) *ExtensionFilter {
	f := &ExtensionFilter{extensions: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions[ext] = struct{}{}
	}
	return f
}

// DefaultExtensionFilter returns a filter for DefaultIgnoredExtensions.
func DefaultExtensionFilter() *ExtensionFilter {
	return NewExtensionFilter(DefaultIgnoredExtensions...)
}

// defaultFilter backs the package-level IsDownloadable helper.
var defaultFilter = DefaultExtensionFilter()

// IsDownloadable reports whether rawURL points to a file type from
// DefaultIgnoredExtensions. Unparseable URLs are not considered downloadable.
func IsDownloadable(rawURL string) bool {
	return defaultFilter.MatchString(rawURL)
}

// Match reports whether the lowercased extension of u's path is in the filter.
// A nil filter matches nothing.
func (f *ExtensionFilter) Match(u *url.URL) bool {
	if f == nil || u == nil || len(f.extensions) == 0 {
		return false
	}
	_, ok := f.extensions[pathExtension(u.Path)]
	return ok
}

// MatchString is Match for a raw URL string.
func (f *ExtensionFilter) MatchString(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return f.Match(u)
}

// Extensions returns the filtered extensions in sorted order.
func (f *ExtensionFilter) Extensions() []string {
	if f == nil {
		return nil
	}
	exts := make([]string, 0, len(f.extensions))
	for ext := range f.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// pathExtension returns the lowercased extension of the last path segment.
// Leading dots of the segment are not an extension, so "/.profile" has none,
// and a directory path ("/dir.zip/") has none either.
func pathExtension(p string) string {
	if strings.HasSuffix(p, "/") {
		return ""
	}
	base := strings.TrimLeft(path.Base(p), ".")
	return strings.ToLower(path.Ext(base))
}
