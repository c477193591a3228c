package log

import (
	"net/url"
	"regexp"
	"strings"
)

// urlPattern finds absolute http(s) URLs embedded in free text, such as
// the quoted URL in a *url.Error message.
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>]+`)

// sensitiveParams are query parameter names whose values are masked.
var sensitiveParams = map[string]bool{
	"token":            true,
	"access_token":     true,
	"refresh_token":    true,
	"id_token":         true,
	"auth":             true,
	"key":              true,
	"api_key":          true,
	"apikey":           true,
	"password":         true,
	"passwd":           true,
	"pwd":              true,
	"secret":           true,
	"session":          true,
	"session_id":       true,
	"sessionid":        true,
	"sid":              true,
	"jsessionid":       true,
	"phpsessid":        true,
	"signature":        true,
	"sig":              true,
	"x-amz-signature":  true,
	"x-amz-credential": true,
}

// RedactURL removes credentials from a single URL: the userinfo is dropped
// and sensitive query parameter values are masked. Strings that do not
// parse as absolute URLs are returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	changed := false
	if u.User != nil {
		u.User = nil
		changed = true
	}

	if u.RawQuery != "" {
		parts := strings.Split(u.RawQuery, "&")
		for i, part := range parts {
			name, _, hasValue := strings.Cut(part, "=")
			decoded, err := url.QueryUnescape(name)
			if err != nil {
				decoded = name
			}
			if hasValue && sensitiveParams[strings.ToLower(decoded)] {
				parts[i] = name + "=" + MaskValue
				changed = true
			}
		}
		u.RawQuery = strings.Join(parts, "&")
	}

	if !changed {
		return raw
	}
	return u.String()
}

// RedactURLs applies RedactURL to every URL embedded in s.
func RedactURLs(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	return urlPattern.ReplaceAllStringFunc(s, RedactURL)
}
