package testrun

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/Sriram-PR/source-wizard/pkg/jsonpath"
	"github.com/Sriram-PR/source-wizard/pkg/llm"
	"github.com/Sriram-PR/source-wizard/pkg/match"
	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/parse"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
	"github.com/Sriram-PR/source-wizard/pkg/wizard"
)

const fallbackOrigin = "https://example.com"

// outcome is what a simulated test produced before it is wrapped in a TestResult.
type outcome struct {
	Summary  string
	URLs     []string
	Items    []map[string]any
	Markdown string
}

func (r *Runner) simulate(cfg models.SourceConfig, phase wizard.Phase) (outcome, error) {
	origin, host := siteOrigin(cfg.SiteURL)
	if phase == wizard.PhaseDiscovery {
		switch dc := cfg.Discovery.Config.(type) {
		case *models.APIDiscoveryConfig:
			return discoverAPI(dc, origin, host)
		case *models.RSSDiscoveryConfig:
			return discoverFeed(dc, origin, host)
		case *models.SitemapDiscoveryConfig:
			return discoverSitemap(dc, origin, host)
		case *models.ScrapeDiscoveryConfig:
			return discoverScrape(dc, origin, host)
		}
		return outcome{}, fmt.Errorf("%w: no discovery config", utils.ErrConfigValidation)
	}

	switch ec := cfg.Extraction.Config.(type) {
	case *models.APIExtractionConfig:
		return extractAPI(ec, origin, host)
	case *models.PageExtractionConfig:
		return r.extractPage(ec, cfg.Extraction.LLM, origin, host)
	}
	return outcome{}, fmt.Errorf("%w: no extraction config", utils.ErrConfigValidation)
}

func siteOrigin(site string) (origin, host string) {
	u, err := url.Parse(strings.TrimSpace(site))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		u, _ = url.Parse(fallbackOrigin)
	}
	return u.Scheme + "://" + u.Host, u.Host
}

func discoverAPI(dc *models.APIDiscoveryConfig, origin, host string) (outcome, error) {
	data, err := jsonpath.Decode([]byte(fill(apiListFixture, origin, host)))
	if err != nil {
		return outcome{}, err
	}
	raw, ok := jsonpath.Extract(data, dc.ItemsPath)
	if !ok {
		return outcome{}, fmt.Errorf("%w: items path %q matched nothing in the JSON response", utils.ErrParsing, dc.ItemsPath)
	}
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}

	var out outcome
	for _, item := range items {
		if link, ok := jsonpath.Extract(item, dc.URLField); ok {
			if s, ok := link.(string); ok && s != "" {
				out.URLs = append(out.URLs, s)
			}
		}
		if len(dc.Fields) > 0 {
			out.Items = append(out.Items, jsonpath.Preview(item, dc.Fields))
		}
	}
	out.Summary = fmt.Sprintf("%d items, %d URLs", len(items), len(out.URLs))
	if dc.Pagination.Type == models.PaginationCursor && dc.Pagination.CursorPath != "" {
		if v, ok := jsonpath.Extract(data, dc.Pagination.CursorPath); ok && v != nil && v != "" {
			out.Summary += ", next cursor found"
		} else {
			out.Summary += ", no next cursor"
		}
	}
	return out, nil
}

func discoverFeed(dc *models.RSSDiscoveryConfig, origin, host string) (outcome, error) {
	feed, err := gofeed.NewParser().ParseString(fill(feedFixture, origin, host))
	if err != nil {
		return outcome{}, fmt.Errorf("%w: feed XML: %w", utils.ErrParsing, err)
	}
	var out outcome
	for _, item := range feed.Items {
		link := item.Link
		if dc.LinkField == "guid" {
			link = item.GUID
		}
		if link == "" {
			continue
		}
		out.URLs = append(out.URLs, link)
		entry := map[string]any{"title": item.Title, "link": link}
		if item.PublishedParsed != nil {
			entry["published"] = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		out.Items = append(out.Items, entry)
	}
	out.Summary = fmt.Sprintf("%d entries in %q", len(out.URLs), feed.Title)
	return out, nil
}

func discoverSitemap(dc *models.SitemapDiscoveryConfig, origin, host string) (outcome, error) {
	doc, err := parse.ParseSitemap([]byte(fill(sitemapFixture, origin, host)))
	if err != nil {
		return outcome{}, err
	}
	var cutoff time.Time
	if dc.LastModAfter != "" {
		if cutoff, err = time.Parse(time.DateOnly, dc.LastModAfter); err != nil {
			return outcome{}, fmt.Errorf("%w: lastModAfter %q: %w", utils.ErrParsing, dc.LastModAfter, err)
		}
	}
	recent := parse.FilterByLastMod(doc.URLs, cutoff)
	locs := make([]string, 0, len(recent))
	for _, u := range recent {
		locs = append(locs, strings.TrimSpace(u.Loc))
	}
	classified := match.Classify(locs, dc.LinkFiltering, match.Dedupe{})
	out := outcome{URLs: classified.Kept(dc.LinkFiltering)}
	out.Summary = fmt.Sprintf("%d of %d sitemap URLs kept (%d older than cutoff, %d excluded)",
		len(out.URLs), len(doc.URLs), len(doc.URLs)-len(recent), classified.Excluded)
	return out, nil
}

func discoverScrape(dc *models.ScrapeDiscoveryConfig, origin, host string) (outcome, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fill(listingFixture, origin, host)))
	if err != nil {
		return outcome{}, fmt.Errorf("%w: HTML: %w", utils.ErrParsing, err)
	}
	base, _ := url.Parse(origin + "/jobs")
	if len(dc.StartURLs) > 0 {
		if u, err := url.Parse(dc.StartURLs[0]); err == nil && u.IsAbs() {
			base = u
		}
	}

	scope := doc.Selection
	var notes []string
	if dc.ContentArea != "" {
		if err := parse.ValidateSelector(dc.ContentArea); err != nil {
			return outcome{}, err
		}
		if found := doc.Find(dc.ContentArea); found.Length() > 0 {
			scope = found
		} else {
			notes = append(notes, "content area matched nothing, using the whole page")
		}
	}

	var links []string
	scope.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if abs := parse.ResolveLink(base, href); abs != "" {
			links = append(links, abs)
		}
	})

	classified := match.Classify(links, dc.LinkFiltering, dc.Dedupe)
	out := outcome{URLs: classified.Kept(dc.LinkFiltering)}
	for _, l := range classified.Links {
		out.Items = append(out.Items, map[string]any{"url": l.URL, "type": string(l.Type), "reason": l.Reason})
	}
	out.Summary = fmt.Sprintf("%d of %d links kept (%d excluded, %d duplicates)",
		len(out.URLs), len(links), classified.Excluded, classified.Duplicates)

	if dc.Pagination.Enabled && dc.Pagination.NextSelector != "" {
		if err := parse.ValidateSelector(dc.Pagination.NextSelector); err == nil && doc.Find(dc.Pagination.NextSelector).Length() > 0 {
			notes = append(notes, "next page link found")
		} else {
			notes = append(notes, "next page link not found")
		}
	}
	if len(notes) > 0 {
		out.Summary += "; " + strings.Join(notes, "; ")
	}
	return out, nil
}

func extractAPI(ec *models.APIExtractionConfig, origin, host string) (outcome, error) {
	data, err := jsonpath.Decode([]byte(fill(apiDetailFixture, origin, host)))
	if err != nil {
		return outcome{}, err
	}
	fields := jsonpath.Preview(data, ec.Fields)
	missing := 0
	for _, v := range fields {
		if v == nil {
			missing++
		}
	}
	return outcome{
		Items:   []map[string]any{fields},
		Summary: fmt.Sprintf("%d fields extracted, %d missing", len(fields)-missing, missing),
	}, nil
}

func (r *Runner) extractPage(ec *models.PageExtractionConfig, spec models.LLMParsing, origin, host string) (outcome, error) {
	pageURL, _ := url.Parse(origin + "/jobs/1042-senior-go-engineer")
	res, err := r.renderer.Render(fill(articleFixture, origin, host), pageURL, ec)
	if err != nil {
		return outcome{}, err
	}

	item := map[string]any{"title": res.Title, "url": pageURL.String()}
	for k, v := range res.Fields {
		item[k] = v
	}
	out := outcome{
		Items:    []map[string]any{item},
		Markdown: res.Markdown,
		Summary:  fmt.Sprintf("%d words of markdown, %d fields", res.WordCount, len(res.Fields)),
	}
	if res.Dropped > 0 {
		out.Summary += fmt.Sprintf(", %d short blocks dropped", res.Dropped)
	}
	if res.Truncated {
		out.Summary += ", preview truncated"
	}
	if len(res.Warnings) > 0 {
		out.Summary += "; " + strings.Join(res.Warnings, "; ")
	}

	if spec.Enabled {
		plan, err := llm.PlanChunks(res.Markdown, spec, r.tok)
		if err != nil {
			return outcome{}, err
		}
		out.Summary += fmt.Sprintf("; LLM input %d tokens in %d chunks", plan.TotalTokens, len(plan.Chunks))
	}
	return out, nil
}
