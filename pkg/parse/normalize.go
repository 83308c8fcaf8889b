package parse

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeOptions tunes NormalizeURL for link de-duplication.
type NormalizeOptions struct {
	KeepQuery bool // Keep the query string (sorted) instead of dropping it
}

// NormalizeURL standardizes a URL for comparison
// It lowercases the scheme and host, removes default ports (80 for http, 443 for https), removes trailing slashes from paths (unless root "/"), ensures empty path becomes "/", and removes fragments
// The query string is dropped unless opts.KeepQuery is set, in which case its parameters are sorted
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL, opts NormalizeOptions) string {
	if u == nil {
		return ""
	}
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil {
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" {
		normalized.Path = "/"
	} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
		normalized.Path = strings.TrimRight(normalized.Path, "/")
		if normalized.Path == "" {
			normalized.Path = "/"
		}
	}

	normalized.Fragment = ""
	if opts.KeepQuery {
		normalized.RawQuery = normalized.Query().Encode() // Encode sorts by key
	} else {
		normalized.RawQuery = ""
	}

	return normalized.String()
}

// ParseAndNormalize parses a URL string using the stricter url.ParseRequestURI (requiring a scheme) and then normalizes it using NormalizeURL
func ParseAndNormalize(urlStr string, opts NormalizeOptions) (string, *url.URL, error) {
	parsed, err := url.ParseRequestURI(urlStr)
	if err != nil {
		return "", nil, err
	}
	return NormalizeURL(parsed, opts), parsed, nil
}

// DedupeKey returns the normalized form of raw, or raw itself when it cannot be parsed.
func DedupeKey(raw string, opts NormalizeOptions) string {
	normalized, _, err := ParseAndNormalize(strings.TrimSpace(raw), opts)
	if err != nil {
		return raw
	}
	return normalized
}

// ResolveLink resolves href against base. Fragment-only, javascript: and mailto: links resolve to "".
func ResolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if !ref.IsAbs() {
			return ""
		}
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// IsHTTPURL reports whether raw is an absolute http(s) URL with a host.
func IsHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
