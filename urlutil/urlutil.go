// Package urlutil provides the small URL helpers shared by every stage of
// the discovery pipeline.
package urlutil

import (
	"net/url"
	"strings"
)

// Normalize trims whitespace and prepends https:// when the URL carries no
// scheme.
func Normalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return trimmed
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return "https://" + trimmed
	}
	return trimmed
}

// Resolve resolves a possibly-relative reference against a base URL. On any
// parse failure it returns the reference unchanged; it never fails.
func Resolve(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

// Domain returns the hostname of a URL with any leading www. stripped. Used
// for source attribution and same-site checks. Returns "" when the URL
// cannot be parsed.
func Domain(rawURL string) string {
	parsed, err := url.Parse(Normalize(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// SameSite reports whether two URLs share a hostname, ignoring a www.
// prefix mismatch.
func SameSite(a, b string) bool {
	da, db := Domain(a), Domain(b)
	return da != "" && da == db
}

// Root returns the scheme://host origin of a URL, used to probe well-known
// paths off the site root.
func Root(rawURL string) string {
	parsed, err := url.Parse(Normalize(rawURL))
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
