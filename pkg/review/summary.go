// Package review renders the final step of the wizard: a markdown summary of a
// SourceConfig, its HTML form and a YAML export.
package review

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/schedule"
)

// nextRunCount is how many upcoming cron runs the summary lists.
const nextRunCount = 3

// Summary renders cfg as markdown. now anchors the upcoming-run preview.
func Summary(cfg models.SourceConfig, now time.Time) string {
	var b strings.Builder
	name := cfg.Name
	if strings.TrimSpace(name) == "" {
		name = "Untitled source"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "Site: %s\n\n", orNone(cfg.SiteURL))

	b.WriteString("## Discovery\n\n")
	writeDiscovery(&b, cfg.Discovery)

	b.WriteString("## Extraction\n\n")
	writeExtraction(&b, cfg.Extraction)

	b.WriteString("## LLM Parsing\n\n")
	writeLLM(&b, cfg.Extraction.LLM)

	b.WriteString("## Schedule\n\n")
	writeTrigger(&b, "Discovery", cfg.Schedule.Discovery, now)
	writeTrigger(&b, "Extraction", cfg.Schedule.Extraction, now)
	rl := cfg.Schedule.RateLimits
	fmt.Fprintf(&b, "- Rate limits: %d requests/min, concurrency %d, %d ms delay\n\n", rl.RequestsPerMinute, rl.Concurrency, rl.DelayMs)

	b.WriteString("## Save\n\n")
	fmt.Fprintf(&b, "- Upsert keys: %s\n", orNone(strings.Join(cfg.Save.UpsertKeys, ", ")))
	if cfg.Save.SoftDelete.Enabled {
		fmt.Fprintf(&b, "- Soft delete after %d missing runs\n", cfg.Save.SoftDelete.MissingRuns)
	} else {
		b.WriteString("- Soft delete: off\n")
	}
	v := cfg.Save.Validation
	fmt.Fprintf(&b, "- Require title: %s, require URL: %s, dedupe by URL: %s\n", yesNo(v.RequireTitle), yesNo(v.RequireURL), yesNo(v.DedupeByURL))

	if tr := cfg.TestResults; tr != nil {
		b.WriteString("\n## Test Results\n\n")
		writeTestResult(&b, "Discovery", tr.Discovery)
		writeTestResult(&b, "Extraction", tr.Extraction)
	}
	return b.String()
}

func writeDiscovery(b *strings.Builder, d models.Discovery) {
	if !d.Enabled {
		b.WriteString("Disabled.\n\n")
		return
	}
	fmt.Fprintf(b, "Technique: **%s**\n\n", d.Technique)
	switch dc := d.Config.(type) {
	case *models.APIDiscoveryConfig:
		fmt.Fprintf(b, "- Request: `%s %s`\n", dc.Request.Method, orNone(dc.Request.URL))
		fmt.Fprintf(b, "- Items: `%s`\n", orNone(dc.ItemsPath))
		fmt.Fprintf(b, "- Pagination: %s\n", dc.Pagination.Type)
		fmt.Fprintf(b, "- Stop when %s of %d conditions hold\n", dc.Stop.Operator, len(dc.Stop.Conditions))
	case *models.RSSDiscoveryConfig:
		fmt.Fprintf(b, "- Feed: %s (links from `%s`)\n", orNone(dc.FeedURL), dc.LinkField)
	case *models.SitemapDiscoveryConfig:
		fmt.Fprintf(b, "- Sitemap: %s\n", orNone(dc.SitemapURL))
		fmt.Fprintf(b, "- Follow indexes: %s\n", yesNo(dc.FollowIndexes))
		if dc.LastModAfter != "" {
			fmt.Fprintf(b, "- Modified after %s\n", dc.LastModAfter)
		}
		writePatterns(b, dc.LinkFiltering.IncludePatterns, dc.LinkFiltering.ExcludePatterns)
	case *models.ScrapeDiscoveryConfig:
		fmt.Fprintf(b, "- Start URLs: %s\n", orNone(strings.Join(dc.StartURLs, ", ")))
		writePatterns(b, dc.LinkFiltering.IncludePatterns, dc.LinkFiltering.ExcludePatterns)
		if n := len(dc.Render.Interactions); n > 0 {
			fmt.Fprintf(b, "- Interactions: %d\n", n)
		}
		if dc.Render.PopupHandling.Enabled {
			b.WriteString("- Popup handling: on\n")
		}
		if dc.Pagination.Enabled {
			fmt.Fprintf(b, "- Pagination: `%s`, up to %d pages, stop when %s of %d conditions hold\n",
				dc.Pagination.NextSelector, dc.Pagination.MaxPages, dc.Pagination.Stop.Operator, len(dc.Pagination.Stop.Conditions))
		}
	}
	b.WriteString("\n")
}

func writePatterns(b *strings.Builder, include, exclude []string) {
	if len(include) > 0 {
		fmt.Fprintf(b, "- Include: `%s`\n", strings.Join(include, "`, `"))
	}
	if len(exclude) > 0 {
		fmt.Fprintf(b, "- Exclude: `%s`\n", strings.Join(exclude, "`, `"))
	}
}

func writeExtraction(b *strings.Builder, e models.Extraction) {
	if !e.Enabled {
		b.WriteString("Disabled.\n\n")
		return
	}
	fmt.Fprintf(b, "Technique: **%s**\n\n", e.Technique)
	switch ec := e.Config.(type) {
	case *models.APIExtractionConfig:
		fmt.Fprintf(b, "- Request: `%s %s`\n", ec.Request.Method, orNone(ec.Request.URL))
		if len(ec.Fields) > 0 {
			b.WriteString("\n| Field | Path |\n|---|---|\n")
			for _, f := range ec.Fields {
				fmt.Fprintf(b, "| %s | `%s` |\n", f.Key, f.Path)
			}
		}
	case *models.PageExtractionConfig:
		fmt.Fprintf(b, "- Wait until %s, timeout %d ms\n", ec.Navigation.WaitUntil, ec.Navigation.TimeoutMs)
		if ec.Content.CSSSelector != "" {
			fmt.Fprintf(b, "- Content: `%s`\n", ec.Content.CSSSelector)
		}
		fmt.Fprintf(b, "- Parallelism: %d, %d ms delay\n", ec.Parallelism.MaxConcurrent, ec.Parallelism.DelayMs)
		if len(ec.Selectors) > 0 {
			names := make([]string, 0, len(ec.Selectors))
			for n := range ec.Selectors {
				names = append(names, n)
			}
			sort.Strings(names)
			b.WriteString("\n| Field | Selector |\n|---|---|\n")
			for _, n := range names {
				fmt.Fprintf(b, "| %s | `%s` |\n", n, ec.Selectors[n])
			}
		}
	}
	b.WriteString("\n")
}

func writeLLM(b *strings.Builder, l models.LLMParsing) {
	if !l.Enabled {
		b.WriteString("Disabled.\n\n")
		return
	}
	fmt.Fprintf(b, "- Model: %s/%s on %s input\n", l.Provider, l.Model, l.InputFormat)
	fmt.Fprintf(b, "- Chunks of %d tokens, %.0f%% overlap\n", l.ChunkTokenThreshold, l.OverlapRate*100)
	if len(l.SchemaFields) > 0 {
		b.WriteString("\n| Field | Type | Required |\n|---|---|---|\n")
		for _, f := range l.SchemaFields {
			fmt.Fprintf(b, "| %s | %s | %s |\n", f.Name, f.Type, yesNo(f.Required))
		}
	}
	b.WriteString("\n")
}

func writeTrigger(b *strings.Builder, label string, t models.Trigger, now time.Time) {
	if t.Mode != models.TriggerCron {
		fmt.Fprintf(b, "- %s: manual\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: `%s` (%s)\n", label, t.Cron, schedule.Describe(schedule.ParseCron(t.Cron)))
	runs, err := schedule.NextRuns(t.Cron, now, nextRunCount)
	if err != nil {
		fmt.Fprintf(b, "  - invalid expression: %v\n", err)
		return
	}
	for _, r := range runs {
		fmt.Fprintf(b, "  - %s\n", r.Format("Mon 2006-01-02 15:04"))
	}
}

func writeTestResult(b *strings.Builder, label string, r *models.TestResult) {
	if r == nil {
		fmt.Fprintf(b, "- %s: not run\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: %s", label, r.Status)
	if r.Summary != "" {
		fmt.Fprintf(b, ", %s", r.Summary)
	}
	if r.Error != "" {
		fmt.Fprintf(b, " (%s)", r.Error)
	}
	b.WriteString("\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "_none_"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
