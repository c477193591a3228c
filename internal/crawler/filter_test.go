package crawler

import (
	"net/url"
	"slices"
	"testing"
)

func TestIsDownloadable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want bool
	}{
		{url: "http://example.test/file.pdf", want: true},
		{url: "http://example.test/FILE.PDF", want: true},
		{url: "http://example.test/a/b/archive.tar", want: true},
		{url: "http://example.test/archive.tar.gz", want: true},
		{url: "http://example.test/photo.JPeG", want: true},
		{url: "http://example.test/setup.exe?v=2", want: true},
		{url: "http://example.test/clip.mp4#t=10", want: true},
		{url: "http://example.test/", want: false},
		{url: "http://example.test/page.html", want: false},
		{url: "http://example.test/page", want: false},
		{url: "http://example.test/page?file=x.pdf", want: false},
		{url: "http://example.test/pdf", want: false},
		{url: "http://example.test/.zip", want: false},
		{url: "http://example.test/dir.zip/", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			if got := IsDownloadable(tt.url); got != tt.want {
				t.Errorf("IsDownloadable(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestDefaultIgnoredExtensionsCovered(t *testing.T) {
	t.Parallel()

	for _, ext := range DefaultIgnoredExtensions {
		if !IsDownloadable("http://example.test/file" + ext) {
			t.Errorf("extension %s not filtered", ext)
		}
	}
}

func TestExtensionFilter(t *testing.T) {
	t.Parallel()

	t.Run("custom extensions", func(t *testing.T) {
		t.Parallel()
		f := NewExtensionFilter("CSV", ".json", " ", ".")
		if got := f.Extensions(); !slices.Equal(got, []string{".csv", ".json"}) {
			t.Errorf("Extensions() = %v", got)
		}
		if !f.MatchString("http://example.test/data.csv") {
			t.Error("csv should match")
		}
		if f.MatchString("http://example.test/file.pdf") {
			t.Error("pdf should not match a custom filter")
		}
	})

	t.Run("nil and empty filter match nothing", func(t *testing.T) {
		t.Parallel()
		u, _ := url.Parse("http://example.test/file.pdf")
		var nilFilter *ExtensionFilter
		if nilFilter.Match(u) {
			t.Error("nil filter matched")
		}
		if NewExtensionFilter().Match(u) {
			t.Error("empty filter matched")
		}
	})

	t.Run("unparseable URL", func(t *testing.T) {
		t.Parallel()
		if DefaultExtensionFilter().MatchString("http://[bad/file.pdf") {
			t.Error("unparseable URL matched")
		}
	})
}
