package parse

import (
	"errors"
	"testing"
	"time"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

func TestParseSitemap_URLSet(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/jobs/1</loc><lastmod>2024-01-15</lastmod></url>
  <url><loc>https://example.com/jobs/2</loc></url>
</urlset>`)

	doc, err := ParseSitemap(data)
	if err != nil {
		t.Fatalf("ParseSitemap() error = %v", err)
	}
	if doc.IsIndex {
		t.Error("ParseSitemap() IsIndex = true, want false")
	}
	if len(doc.URLs) != 2 {
		t.Fatalf("ParseSitemap() URLs = %d, want 2", len(doc.URLs))
	}
	if doc.URLs[0].LastMod != "2024-01-15" {
		t.Errorf("URLs[0].LastMod = %q", doc.URLs[0].LastMod)
	}
}

func TestParseSitemap_Index(t *testing.T) {
	data := []byte(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-jobs.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-pages.xml</loc><lastmod>2024-02-01T10:00:00Z</lastmod></sitemap>
</sitemapindex>`)

	doc, err := ParseSitemap(data)
	if err != nil {
		t.Fatalf("ParseSitemap() error = %v", err)
	}
	if !doc.IsIndex {
		t.Fatal("ParseSitemap() IsIndex = false, want true")
	}
	if len(doc.Sitemaps) != 2 {
		t.Errorf("ParseSitemap() Sitemaps = %d, want 2", len(doc.Sitemaps))
	}
}

func TestParseSitemap_Malformed(t *testing.T) {
	_, err := ParseSitemap([]byte(`<urlset><url><loc>broken`))
	if err == nil {
		t.Fatal("ParseSitemap() expected error for malformed XML")
	}
	if !errors.Is(err, utils.ErrParsing) {
		t.Errorf("ParseSitemap() error = %v, want wrapped ErrParsing", err)
	}
}

func TestParseLastMod(t *testing.T) {
	for _, s := range []string{"2024-01-15", "2024-01-15T08:30:00Z", "2024-01-15T08:30:00+02:00", "2024-01-15T08:30:00"} {
		if _, ok := ParseLastMod(s); !ok {
			t.Errorf("ParseLastMod(%q) failed", s)
		}
	}
	if _, ok := ParseLastMod("yesterday"); ok {
		t.Error("ParseLastMod(yesterday) should fail")
	}
}

func TestFilterByLastMod(t *testing.T) {
	urls := []XMLURL{
		{Loc: "https://example.com/old", LastMod: "2023-06-01"},
		{Loc: "https://example.com/new", LastMod: "2024-06-01"},
		{Loc: "https://example.com/unknown"},
	}
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	kept := FilterByLastMod(urls, cutoff)
	if len(kept) != 2 {
		t.Fatalf("FilterByLastMod() kept %d, want 2", len(kept))
	}
	if kept[0].Loc != "https://example.com/new" || kept[1].Loc != "https://example.com/unknown" {
		t.Errorf("FilterByLastMod() kept %+v", kept)
	}

	if got := FilterByLastMod(urls, time.Time{}); len(got) != 3 {
		t.Errorf("FilterByLastMod(zero cutoff) kept %d, want 3", len(got))
	}
}
