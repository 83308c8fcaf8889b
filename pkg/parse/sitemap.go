package parse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// --- XML Structs for Sitemap Parsing ---

// XMLURL represents a <url> element in a sitemap
type XMLURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLURLSet represents a <urlset> element in a sitemap
type XMLURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []XMLURL `xml:"url"`
}

// XMLSitemap represents a <sitemap> element in a sitemap index file
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemapIndex represents a <sitemapindex> element
type XMLSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []XMLSitemap `xml:"sitemap"`
}

// SitemapDocument is a decoded sitemap: either a url set or an index of nested sitemaps.
type SitemapDocument struct {
	URLs     []XMLURL
	Sitemaps []XMLSitemap
	IsIndex  bool
}

// ParseSitemap decodes a <urlset> or <sitemapindex> document.
func ParseSitemap(data []byte) (*SitemapDocument, error) {
	if bytes.Contains(data, []byte("<sitemapindex")) {
		var idx XMLSitemapIndex
		if err := xml.Unmarshal(data, &idx); err != nil {
			return nil, fmt.Errorf("%w: sitemap index XML: %w", utils.ErrParsing, err)
		}
		return &SitemapDocument{Sitemaps: idx.Sitemaps, IsIndex: true}, nil
	}

	var set XMLURLSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: sitemap XML: %w", utils.ErrParsing, err)
	}
	return &SitemapDocument{URLs: set.URLs}, nil
}

// lastModLayouts are the W3C datetime forms seen in sitemaps.
var lastModLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseLastMod parses a sitemap lastmod value.
func ParseLastMod(s string) (time.Time, bool) {
	for _, layout := range lastModLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterByLastMod keeps URLs modified at or after cutoff. URLs without a parseable lastmod are kept.
func FilterByLastMod(urls []XMLURL, cutoff time.Time) []XMLURL {
	if cutoff.IsZero() {
		return urls
	}
	kept := make([]XMLURL, 0, len(urls))
	for _, u := range urls {
		if t, ok := ParseLastMod(u.LastMod); ok && t.Before(cutoff) {
			continue
		}
		kept = append(kept, u)
	}
	return kept
}
