package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"golang.org/x/net/html/charset"
)

// acceptHeader prefers HTML but accepts anything so non-HTML responses can
// be counted rather than rejected by the server.
const acceptHeader = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"

// response is a fetched page body decoded to UTF-8.
type response struct {
	// finalURL is the address after redirects.
	finalURL *url.URL

	statusCode  int
	contentType string

	// html is false for responses that must not be parsed.
	html bool

	// body is the decoded body. It is nil when html is false.
	body []byte
}

// fetch performs one GET with the per-request timeout. Any status other than
// 200 is an error; there are no retries.
func (c *Crawler) fetch(ctx context.Context, client *http.Client, pageURL string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	out := &response{
		statusCode:  resp.StatusCode,
		contentType: contentType,
	}
	if resp.Request != nil {
		out.finalURL = resp.Request.URL
	}
	if contentType == "" {
		contentType = http.DetectContentType(raw)
	}
	if !isHTML(contentType) {
		return out, nil
	}

	decoded, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		// Unknown charset label: parse the raw bytes as UTF-8.
		out.html, out.body = true, raw
		return out, nil
	}
	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	out.html, out.body = true, body
	return out, nil
}

// isHTML reports whether contentType names an HTML or XHTML document.
func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
