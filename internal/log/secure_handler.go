package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces every redacted value.
const MaskValue = "***REDACTED***"

// headerKeys are request and response header names that carry credentials.
// They show up as attribute keys when configured headers are logged.
var headerKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"x-csrf-token":        true,
}

// keyKeywords mark an attribute key as sensitive when it contains one of
// them. The bare word "key" is not listed: cache_key, primary_key and the
// like are common and harmless.
var keyKeywords = []string{
	"password", "passwd", "secret", "token", "auth",
	"credential", "private", "cookie",
}

// credentialValues match header values that carry credentials whatever
// the attribute key is. AWS access key IDs appear in pre-signed download
// links that crawled sites expose.
var credentialValues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(bearer|basic|digest)\s+\S+`),
	regexp.MustCompile(`^(AKIA|ASIA)[0-9A-Z]{16}$`),
}

// SecureHandler is an slog.Handler that masks credentials before records
// reach the wrapped handler. A value is masked when its key is sensitive
// (isSensitiveKey) or the value looks like a credential. Any other string,
// error or Stringer value has the URLs inside it passed through RedactURL.
//
// Design decision: Redaction sits in a handler, not in the call sites.
// The crawler logs URLs taken from arbitrary pages, and a single missed
// call site would leak a session token into the log.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler wraps slog.Default's.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(clean)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr returns a with credentials masked, descending into groups.
func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		if redacted := RedactURLs(s); redacted != s {
			return slog.String(a.Key, redacted)
		}
	case slog.KindAny:
		// *url.URL and net/http errors both print the full URL.
		switch v := a.Value.Any().(type) {
		case error:
			return slog.String(a.Key, RedactURLs(v.Error()))
		case fmt.Stringer:
			return slog.String(a.Key, RedactURLs(v.String()))
		}
	}
	return a
}

// isSensitiveKey reports whether values stored under key must be masked.
// Query parameter names masked inside URLs are masked as keys too.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if headerKeys[key] || sensitiveParams[key] {
		return true
	}
	return containsSensitiveKeyword(key)
}

func containsSensitiveKeyword(key string) bool {
	for _, kw := range keyKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, re := range credentialValues {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// NewSecureLogger returns a text logger that redacts credentials.
// verbose enables debug records; otherwise only warnings and errors pass.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger writing one JSON object per line.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
