package wizard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Sriram-PR/source-wizard/pkg/interact"
	"github.com/Sriram-PR/source-wizard/pkg/jsonpath"
	"github.com/Sriram-PR/source-wizard/pkg/match"
	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/parse"
	"github.com/Sriram-PR/source-wizard/pkg/schedule"
)

// Severity of an Issue. Only errors block Next.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding, keyed by a dotted field path.
type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// Blocking returns the error-severity issues.
func Blocking(issues []Issue) []Issue {
	var out []Issue
	for _, is := range issues {
		if is.Severity == SeverityError {
			out = append(out, is)
		}
	}
	return out
}

type issues []Issue

func (is *issues) fail(field, format string, args ...any) {
	*is = append(*is, Issue{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (is *issues) warn(field, format string, args ...any) {
	*is = append(*is, Issue{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Validate runs the validator of step against cfg.
func Validate(step StepID, cfg models.SourceConfig) []Issue {
	switch step {
	case StepBasics:
		return validateBasics(cfg)
	case StepDiscoverySetup:
		return validateDiscovery(cfg)
	case StepExtractionSetup:
		return validateExtraction(cfg)
	case StepLLM:
		return validateLLM(cfg)
	case StepSchedule:
		return validateSchedule(cfg)
	case StepReview:
		return validateReview(cfg)
	}
	return nil
}

func validateBasics(cfg models.SourceConfig) []Issue {
	var is issues
	if strings.TrimSpace(cfg.Name) == "" {
		is.fail("name", "source name is required")
	}
	requireURL(&is, "siteUrl", cfg.SiteURL)
	return is
}

func requireURL(is *issues, field, raw string) {
	switch {
	case strings.TrimSpace(raw) == "":
		is.fail(field, "URL is required")
	case !parse.IsHTTPURL(raw):
		is.fail(field, "%q is not an http(s) URL", raw)
	}
}

func validateDiscovery(cfg models.SourceConfig) []Issue {
	var is issues
	d := cfg.Discovery
	if !d.Enabled {
		return nil
	}
	if !d.Matches() {
		is.fail("discovery.technique", "config does not match technique %q", d.Technique)
		return is
	}
	switch dc := d.Config.(type) {
	case *models.APIDiscoveryConfig:
		validateAPIDiscovery(&is, dc)
	case *models.RSSDiscoveryConfig:
		requireURL(&is, "discovery.config.feedUrl", dc.FeedURL)
		if dc.LinkField != "link" && dc.LinkField != "guid" {
			is.fail("discovery.config.linkField", "must be \"link\" or \"guid\"")
		}
	case *models.SitemapDiscoveryConfig:
		requireURL(&is, "discovery.config.sitemapUrl", dc.SitemapURL)
		if dc.LastModAfter != "" {
			if _, err := time.Parse(time.DateOnly, dc.LastModAfter); err != nil {
				is.fail("discovery.config.lastModAfter", "%q is not a YYYY-MM-DD date", dc.LastModAfter)
			}
		}
		patternWarnings(&is, "discovery.config.linkFiltering", dc.LinkFiltering)
	case *models.ScrapeDiscoveryConfig:
		validateScrapeDiscovery(&is, dc)
	}
	return is
}

func validateAPIDiscovery(is *issues, dc *models.APIDiscoveryConfig) {
	requireURL(is, "discovery.config.request.url", dc.Request.URL)
	if err := jsonpath.Validate(dc.ItemsPath); err != nil {
		is.fail("discovery.config.itemsPath", "%v", err)
	}
	if dc.URLField != "" {
		if err := jsonpath.Validate(dc.URLField); err != nil {
			is.fail("discovery.config.urlField", "%v", err)
		}
	}
	p := dc.Pagination
	if !p.Type.IsValid() {
		is.fail("discovery.config.pagination.type", "unknown pagination type %q", p.Type)
	}
	if p.Type != models.PaginationNone && p.Param == "" {
		is.fail("discovery.config.pagination.param", "%s pagination needs a query parameter", p.Type)
	}
	if p.Type == models.PaginationCursor {
		if err := jsonpath.Validate(p.CursorPath); err != nil {
			is.fail("discovery.config.pagination.cursorPath", "%v", err)
		}
	}
	for _, msg := range jsonpath.ValidateSelections(dc.Fields) {
		is.fail("discovery.config.fields", "%s", msg)
	}
	// Stop conditions only apply while paging.
	if p.Type != models.PaginationNone {
		if err := dc.Stop.Validate(); err != nil {
			is.fail("discovery.config.stop", "%v", err)
		}
	}
}

func validateScrapeDiscovery(is *issues, dc *models.ScrapeDiscoveryConfig) {
	if len(dc.StartURLs) == 0 {
		is.fail("discovery.config.startUrls", "at least one start URL is required")
	}
	for i, u := range dc.StartURLs {
		requireURL(is, fmt.Sprintf("discovery.config.startUrls[%d]", i), u)
	}
	if dc.ContentArea != "" {
		if err := parse.ValidateSelector(dc.ContentArea); err != nil {
			is.fail("discovery.config.contentArea", "%v", err)
		}
	}
	validateRender(is, "discovery.config.rendering", dc.Render)
	patternWarnings(is, "discovery.config.linkFiltering", dc.LinkFiltering)

	pg := dc.Pagination
	if pg.Enabled {
		if err := parse.ValidateSelector(pg.NextSelector); err != nil {
			is.fail("discovery.config.pagination.nextSelector", "%v", err)
		}
		if pg.MaxPages < 1 {
			is.fail("discovery.config.pagination.maxPages", "must be at least 1")
		}
		if err := pg.Stop.Validate(); err != nil {
			is.fail("discovery.config.pagination.stop", "%v", err)
		}
	}
}

func validateRender(is *issues, field string, r models.RenderConfig) {
	if r.TimeoutMs <= 0 {
		is.fail(field+".timeoutMs", "must be positive")
	}
	if r.WaitFor != "" {
		if err := parse.ValidateSelector(r.WaitFor); err != nil {
			is.fail(field+".waitFor", "%v", err)
		}
	}
	if err := interact.ValidateCustomJS(r.CustomJS); err != nil {
		is.fail(field+".customJS", "%v", err)
	}
	for _, w := range interact.Warnings(r.PopupHandling) {
		is.fail(field+".popupHandling", "%s", w)
	}
}

func patternWarnings(is *issues, field string, f match.Filters) {
	for _, w := range match.ValidatePatterns(f.IncludePatterns) {
		is.warn(field+".includePatterns", "%s", w)
	}
	for _, w := range match.ValidatePatterns(f.ExcludePatterns) {
		is.warn(field+".excludePatterns", "%s", w)
	}
}

var waitUntilValues = map[string]bool{"load": true, "domcontentloaded": true, "networkidle": true}

func validateExtraction(cfg models.SourceConfig) []Issue {
	var is issues
	e := cfg.Extraction
	if !e.Enabled {
		return nil
	}
	if !e.Matches() {
		is.fail("extraction.technique", "config does not match technique %q", e.Technique)
		return is
	}
	switch ec := e.Config.(type) {
	case *models.APIExtractionConfig:
		if strings.TrimSpace(ec.Request.URL) == "" {
			is.fail("extraction.config.request.url", "URL is required")
		}
		if len(ec.Fields) == 0 {
			is.fail("extraction.config.fields", "select at least one field")
		}
		for _, msg := range jsonpath.ValidateSelections(ec.Fields) {
			is.fail("extraction.config.fields", "%s", msg)
		}
	case *models.PageExtractionConfig:
		if ec.Navigation.TimeoutMs <= 0 {
			is.fail("extraction.config.navigation.timeoutMs", "must be positive")
		}
		if !waitUntilValues[ec.Navigation.WaitUntil] {
			is.fail("extraction.config.navigation.waitUntil", "%q is not load, domcontentloaded or networkidle", ec.Navigation.WaitUntil)
		}
		validateRender(&is, "extraction.config.rendering", ec.Render)
		names := make([]string, 0, len(ec.Selectors))
		for name := range ec.Selectors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := parse.ValidateSelector(ec.Selectors[name]); err != nil {
				is.fail("extraction.config.selectors."+name, "%v", err)
			}
		}
		if ec.Content.CSSSelector != "" {
			if err := parse.ValidateSelector(ec.Content.CSSSelector); err != nil {
				is.fail("extraction.config.contentSelection.cssSelector", "%v", err)
			}
		}
		if ec.Content.WordCountThreshold < 0 {
			is.fail("extraction.config.contentSelection.wordCountThreshold", "cannot be negative")
		}
		if ec.Parallelism.MaxConcurrent < 1 {
			is.fail("extraction.config.parallelism.maxConcurrent", "must be at least 1")
		}
		if ec.Parallelism.DelayMs < 0 {
			is.fail("extraction.config.parallelism.delayMs", "cannot be negative")
		}
	}
	return is
}

var (
	schemaTypes  = map[string]bool{"string": true, "number": true, "boolean": true, "date": true, "list": true}
	inputFormats = map[string]bool{"markdown": true, "html": true, "fit_markdown": true}
)

func validateLLM(cfg models.SourceConfig) []Issue {
	var is issues
	l := cfg.Extraction.LLM
	if !l.Enabled {
		return nil
	}
	if strings.TrimSpace(l.Provider) == "" {
		is.fail("extraction.llm.provider", "provider is required")
	}
	if strings.TrimSpace(l.Model) == "" {
		is.fail("extraction.llm.model", "model is required")
	}
	if strings.TrimSpace(l.Instruction) == "" {
		is.fail("extraction.llm.instruction", "instruction is required")
	}
	if len(l.SchemaFields) == 0 {
		is.fail("extraction.llm.schemaFields", "define at least one schema field")
	}
	seen := make(map[string]bool, len(l.SchemaFields))
	for i, f := range l.SchemaFields {
		field := fmt.Sprintf("extraction.llm.schemaFields[%d]", i)
		name := strings.TrimSpace(f.Name)
		switch {
		case name == "":
			is.fail(field+".name", "name is required")
		case seen[name]:
			is.fail(field+".name", "%q is used more than once", name)
		}
		seen[name] = true
		if !schemaTypes[f.Type] {
			is.fail(field+".type", "unknown type %q", f.Type)
		}
	}
	if l.ChunkTokenThreshold <= 0 {
		is.fail("extraction.llm.chunkTokenThreshold", "must be positive")
	}
	if l.OverlapRate < 0 || l.OverlapRate >= 1 {
		is.fail("extraction.llm.overlapRate", "must be within [0, 1)")
	}
	if !inputFormats[l.InputFormat] {
		is.fail("extraction.llm.inputFormat", "%q is not markdown, html or fit_markdown", l.InputFormat)
	}
	return is
}

// validateSchedule covers the schedule and save settings, which share a step.
func validateSchedule(cfg models.SourceConfig) []Issue {
	var is issues
	triggers := []struct {
		field string
		trig  models.Trigger
	}{
		{"schedule.discovery", cfg.Schedule.Discovery},
		{"schedule.extraction", cfg.Schedule.Extraction},
	}
	for _, t := range triggers {
		switch t.trig.Mode {
		case models.TriggerManual:
		case models.TriggerCron:
			if err := schedule.Validate(t.trig.Cron); err != nil {
				is.fail(t.field+".cron", "%v", err)
			}
		default:
			is.fail(t.field+".mode", "unknown trigger mode %q", t.trig.Mode)
		}
	}
	rl := cfg.Schedule.RateLimits
	if rl.RequestsPerMinute < 1 {
		is.fail("schedule.rateLimits.requestsPerMinute", "must be at least 1")
	}
	if rl.Concurrency < 1 {
		is.fail("schedule.rateLimits.concurrency", "must be at least 1")
	}
	if rl.DelayMs < 0 {
		is.fail("schedule.rateLimits.delayMs", "cannot be negative")
	}

	if len(cfg.Save.UpsertKeys) == 0 {
		is.fail("save.upsertKeys", "at least one upsert key is required")
	}
	if cfg.Save.SoftDelete.Enabled && cfg.Save.SoftDelete.MissingRuns < 1 {
		is.fail("save.softDelete.missingRuns", "must be at least 1")
	}
	if !cfg.Discovery.Enabled && !cfg.Extraction.Enabled {
		is.warn("schedule", "discovery and extraction are both disabled; runs will do nothing")
	}
	return is
}

// validateReview aggregates every earlier step plus the structural checks.
func validateReview(cfg models.SourceConfig) []Issue {
	var is issues
	for _, s := range steps[:len(steps)-1] {
		is = append(is, Validate(s, cfg)...)
	}
	if err := cfg.Validate(); err != nil {
		is.fail("config", "%v", err)
	}
	return is
}
