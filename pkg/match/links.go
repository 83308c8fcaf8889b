package match

import (
	"fmt"

	"github.com/Sriram-PR/source-wizard/pkg/parse"
)

// LinkMatchType is the outcome of classifying a URL against link filters.
type LinkMatchType string

const (
	LinkIncluded  LinkMatchType = "included"
	LinkExcluded  LinkMatchType = "excluded"
	LinkUnmatched LinkMatchType = "unmatched"
)

// Filters holds include/exclude patterns for link filtering.
type Filters struct {
	IncludePatterns []string `json:"includePatterns"`
	ExcludePatterns []string `json:"excludePatterns"`
}

// Dedupe controls duplicate removal in Classify.
type Dedupe struct {
	Enabled   bool `json:"enabled"`
	KeepQuery bool `json:"keepQuery"` // Treat differing query strings as distinct URLs
}

// LinkMatch carries the classification and the pattern that decided it.
type LinkMatch struct {
	Type    LinkMatchType `json:"type"`
	Pattern string        `json:"pattern,omitempty"`
}

// Match classifies url. Exclude patterns are evaluated first and win over includes;
// otherwise the first matching include pattern decides.
func Match(url string, f Filters) LinkMatch {
	for _, p := range f.ExcludePatterns {
		if MatchesPattern(url, p) {
			return LinkMatch{Type: LinkExcluded, Pattern: p}
		}
	}
	for _, p := range f.IncludePatterns {
		if MatchesPattern(url, p) {
			return LinkMatch{Type: LinkIncluded, Pattern: p}
		}
	}
	return LinkMatch{Type: LinkUnmatched}
}

// GetLinkMatchType returns only the classification for url.
func GetLinkMatchType(url string, f Filters) LinkMatchType {
	return Match(url, f).Type
}

// GetMatchReason describes which pattern, if any, decided the classification.
func GetMatchReason(url string, f Filters) string {
	m := Match(url, f)
	switch m.Type {
	case LinkExcluded:
		return fmt.Sprintf("Excluded by pattern: %s", m.Pattern)
	case LinkIncluded:
		return fmt.Sprintf("Included by pattern: %s", m.Pattern)
	}
	if len(f.IncludePatterns) == 0 {
		return "No include patterns defined"
	}
	return "Did not match any include pattern"
}

// ClassifiedLink is one entry of a Classification.
type ClassifiedLink struct {
	URL    string        `json:"url"`
	Type   LinkMatchType `json:"type"`
	Reason string        `json:"reason"`
}

// Classification buckets a link list. Links keeps input order.
type Classification struct {
	Links      []ClassifiedLink `json:"links"`
	Included   int              `json:"included"`
	Excluded   int              `json:"excluded"`
	Unmatched  int              `json:"unmatched"`
	Duplicates int              `json:"duplicates"`
}

// Classify runs every URL through Match, optionally dropping duplicates by normalized form.
func Classify(urls []string, f Filters, d Dedupe) Classification {
	var out Classification
	seen := make(map[string]struct{}, len(urls))

	for _, u := range urls {
		if d.Enabled {
			key := parse.DedupeKey(u, parse.NormalizeOptions{KeepQuery: d.KeepQuery})
			if _, dup := seen[key]; dup {
				out.Duplicates++
				continue
			}
			seen[key] = struct{}{}
		}

		m := Match(u, f)
		out.Links = append(out.Links, ClassifiedLink{URL: u, Type: m.Type, Reason: GetMatchReason(u, f)})
		switch m.Type {
		case LinkIncluded:
			out.Included++
		case LinkExcluded:
			out.Excluded++
		default:
			out.Unmatched++
		}
	}
	return out
}

// Kept returns the URLs a scraper would follow: included links, plus unmatched
// links when no include patterns are configured.
func (c Classification) Kept(f Filters) []string {
	var kept []string
	for _, l := range c.Links {
		if l.Type == LinkIncluded || (l.Type == LinkUnmatched && len(f.IncludePatterns) == 0) {
			kept = append(kept, l.URL)
		}
	}
	return kept
}
