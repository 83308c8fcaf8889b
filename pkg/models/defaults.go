package models

import (
	"fmt"

	"github.com/Sriram-PR/source-wizard/pkg/interact"
	"github.com/Sriram-PR/source-wizard/pkg/jsonpath"
	"github.com/Sriram-PR/source-wizard/pkg/match"
	"github.com/Sriram-PR/source-wizard/pkg/schedule"
	"github.com/Sriram-PR/source-wizard/pkg/stop"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// Defaults shared by the page rendering configs.
const (
	DefaultRenderTimeoutMs = 30000
	DefaultMaxPages        = 10
)

// NewSourceConfig returns the configuration a fresh wizard starts from.
func NewSourceConfig() SourceConfig {
	discovery, _ := DefaultDiscoveryConfig(TechniqueHTML)
	extraction, _ := DefaultExtractionConfig(TechniqueHTML)
	return SourceConfig{
		Discovery: Discovery{
			Enabled:   true,
			Technique: TechniqueHTML,
			Config:    discovery,
		},
		Extraction: Extraction{
			Enabled:   true,
			Technique: TechniqueHTML,
			Config:    extraction,
			LLM:       DefaultLLMParsing(),
		},
		Save: Save{
			UpsertKeys: []string{"url"},
			SoftDelete: SoftDelete{Enabled: false, MissingRuns: 3},
			Validation: SaveValidation{RequireTitle: true, RequireURL: true, DedupeByURL: true},
		},
		Schedule: Schedule{
			Discovery:  Trigger{Mode: TriggerCron, Cron: schedule.BuildCron(schedule.DefaultCronState())},
			Extraction: Trigger{Mode: TriggerManual},
			RateLimits: RateLimits{RequestsPerMinute: 30, Concurrency: 2, DelayMs: 1000},
		},
	}
}

// DefaultDiscoveryConfig returns the fresh config for a discovery technique.
func DefaultDiscoveryConfig(t Technique) (DiscoveryConfig, error) {
	switch t {
	case TechniqueAPI:
		return &APIDiscoveryConfig{
			Request:    APIRequest{Method: "GET"},
			ItemsPath:  "$.data[*]",
			Pagination: APIPagination{Type: PaginationNone},
			Fields:     []jsonpath.FieldSelection{},
			Stop:       stop.DefaultAPIStopConfig(),
		}, nil
	case TechniqueRSS:
		return &RSSDiscoveryConfig{LinkField: "link"}, nil
	case TechniqueSitemap:
		return &SitemapDiscoveryConfig{FollowIndexes: true}, nil
	case TechniqueHTML, TechniqueJS:
		return &ScrapeDiscoveryConfig{
			StartURLs: []string{},
			Render:    defaultRender(),
			Pagination: ScrapePagination{
				MaxPages: DefaultMaxPages,
				Stop:     stop.DefaultScrapeStopConfig(),
			},
			Dedupe: match.Dedupe{Enabled: true},
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown discovery technique %q", utils.ErrParsing, t)
}

// DefaultExtractionConfig returns the fresh config for an extraction technique.
func DefaultExtractionConfig(t Technique) (ExtractionConfig, error) {
	switch t {
	case TechniqueAPI:
		return &APIExtractionConfig{
			Request: APIRequest{Method: "GET"},
			Fields:  []jsonpath.FieldSelection{},
		}, nil
	case TechniqueHTML, TechniqueJS:
		return &PageExtractionConfig{
			Navigation: Navigation{TimeoutMs: DefaultRenderTimeoutMs, WaitUntil: "domcontentloaded"},
			Render:     defaultRender(),
			Selectors:  map[string]string{},
			Content: ContentSelection{
				ExcludedTags:       []string{"nav", "footer", "header", "aside", "script", "style"},
				WordCountThreshold: 10,
			},
			Parallelism: Parallelism{MaxConcurrent: 2, DelayMs: 1000},
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown extraction technique %q", utils.ErrParsing, t)
}

// DefaultLLMParsing is disabled with a job-posting instruction ready to edit.
func DefaultLLMParsing() LLMParsing {
	return LLMParsing{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Instruction: "Extract the job posting fields from the page content.",
		SchemaFields: []SchemaField{
			{Name: "title", Type: "string", Required: true},
			{Name: "location", Type: "string"},
			{Name: "description", Type: "string"},
		},
		ChunkTokenThreshold: 2048,
		OverlapRate:         0.1,
		InputFormat:         "markdown",
	}
}

func defaultRender() RenderConfig {
	return RenderConfig{
		TimeoutMs:     DefaultRenderTimeoutMs,
		Interactions:  []string{},
		PopupHandling: interact.DefaultPopupHandlingState(),
	}
}

func supports(techniques []Technique, t Technique) bool {
	for _, candidate := range techniques {
		if candidate == t {
			return true
		}
	}
	return false
}

// Matches reports whether Config is the variant for Technique.
func (d Discovery) Matches() bool {
	return d.Config != nil && supports(d.Config.DiscoveryTechniques(), d.Technique)
}

// Matches reports whether Config is the variant for Technique.
func (e Extraction) Matches() bool {
	return e.Config != nil && supports(e.Config.ExtractionTechniques(), e.Technique)
}

// WithTechnique switches technique, installing the new technique's default config.
// Selecting the active technique again changes nothing.
func (d Discovery) WithTechnique(t Technique) (Discovery, error) {
	if t == d.Technique && d.Matches() {
		return d, nil
	}
	cfg, err := DefaultDiscoveryConfig(t)
	if err != nil {
		return d, err
	}
	d.Technique = t
	d.Config = cfg
	return d, nil
}

// WithTechnique switches technique, installing the new technique's default config.
// The LLM parsing spec is kept.
func (e Extraction) WithTechnique(t Technique) (Extraction, error) {
	if t == e.Technique && e.Matches() {
		return e, nil
	}
	cfg, err := DefaultExtractionConfig(t)
	if err != nil {
		return e, err
	}
	e.Technique = t
	e.Config = cfg
	return e, nil
}

// ScrapeDiscovery returns the scrape config when discovery uses html or js.
func (c SourceConfig) ScrapeDiscovery() (*ScrapeDiscoveryConfig, bool) {
	sc, ok := c.Discovery.Config.(*ScrapeDiscoveryConfig)
	return sc, ok
}

// APIDiscovery returns the API config when discovery uses api.
func (c SourceConfig) APIDiscovery() (*APIDiscoveryConfig, bool) {
	ac, ok := c.Discovery.Config.(*APIDiscoveryConfig)
	return ac, ok
}
