// Package log provides secure logging on top of the standard slog package.
//
// The SecureHandler wraps any slog.Handler and sanitizes records before they
// are written:
//   - Attributes with sensitive keys (cookie, authorization, token, ...)
//     are replaced by MaskValue
//   - String values that look like credentials (Bearer, Basic or Digest
//     header values, AWS access key IDs) are replaced by MaskValue
//   - URLs inside string and error values lose their user:password part and
//     the values of sensitive query parameters (?token=, ?session=, ...)
//
// Crawled sites regularly link to URLs carrying session tokens or signed
// download keys, and fetch errors from net/http quote the full URL, so the
// URL rule applies to every attribute, not only to known keys.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("fetch failed",
//	    "url", "https://example.com/dl?token=abc", // https://example.com/dl?token=***REDACTED***
//	    "error", err,
//	)
package log
