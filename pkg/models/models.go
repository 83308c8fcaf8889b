package models

import (
	"time"

	"github.com/Sriram-PR/source-wizard/pkg/interact"
	"github.com/Sriram-PR/source-wizard/pkg/jsonpath"
	"github.com/Sriram-PR/source-wizard/pkg/match"
	"github.com/Sriram-PR/source-wizard/pkg/stop"
)

// Technique is the method used for discovery or extraction
type Technique string

const (
	TechniqueAPI     Technique = "api"
	TechniqueRSS     Technique = "rss"
	TechniqueSitemap Technique = "sitemap"
	TechniqueHTML    Technique = "html"
	TechniqueJS      Technique = "js"
)

// DiscoveryTechniques lists every technique usable for discovery
func DiscoveryTechniques() []Technique {
	return []Technique{TechniqueAPI, TechniqueRSS, TechniqueSitemap, TechniqueHTML, TechniqueJS}
}

// ExtractionTechniques lists every technique usable for extraction
func ExtractionTechniques() []Technique {
	return []Technique{TechniqueAPI, TechniqueHTML, TechniqueJS}
}

// IsDiscovery returns true if t can drive discovery
func (t Technique) IsDiscovery() bool {
	switch t {
	case TechniqueAPI, TechniqueRSS, TechniqueSitemap, TechniqueHTML, TechniqueJS:
		return true
	}
	return false
}

// IsExtraction returns true if t can drive extraction
func (t Technique) IsExtraction() bool {
	switch t {
	case TechniqueAPI, TechniqueHTML, TechniqueJS:
		return true
	}
	return false
}

// SourceConfig is the configuration the wizard assembles for one source
type SourceConfig struct {
	Name        string       `json:"name"`
	SiteURL     string       `json:"siteUrl"`
	Discovery   Discovery    `json:"discovery"`
	Extraction  Extraction   `json:"extraction"`
	Save        Save         `json:"save"`
	Schedule    Schedule     `json:"schedule"`
	TestResults *TestResults `json:"testResults,omitempty"`
}

// Discovery selects how candidate listing URLs are found.
// Config always holds the variant for Technique; see MarshalJSON.
type Discovery struct {
	Enabled   bool
	Technique Technique
	Config    DiscoveryConfig
}

// DiscoveryConfig is one of *APIDiscoveryConfig, *RSSDiscoveryConfig,
// *SitemapDiscoveryConfig or *ScrapeDiscoveryConfig.
type DiscoveryConfig interface {
	DiscoveryTechniques() []Technique
}

// Extraction selects how fields are pulled from each discovered URL.
type Extraction struct {
	Enabled   bool
	Technique Technique
	Config    ExtractionConfig
	LLM       LLMParsing
}

// ExtractionConfig is one of *APIExtractionConfig or *PageExtractionConfig.
type ExtractionConfig interface {
	ExtractionTechniques() []Technique
}

// APIRequest describes an HTTP request, usually imported from a pasted cURL command
type APIRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Cookies string            `json:"cookies,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// PaginationType selects how API pages are requested
type PaginationType string

const (
	PaginationNone   PaginationType = "none"
	PaginationCursor PaginationType = "cursor"
	PaginationPage   PaginationType = "page"
	PaginationOffset PaginationType = "offset"
)

// IsValid returns true if the pagination type is known
func (p PaginationType) IsValid() bool {
	switch p {
	case PaginationNone, PaginationCursor, PaginationPage, PaginationOffset:
		return true
	}
	return false
}

// APIPagination configures paging through an API listing
type APIPagination struct {
	Type       PaginationType `json:"type"`
	Param      string         `json:"param,omitempty"`      // Query parameter carrying the cursor/page/offset
	CursorPath string         `json:"cursorPath,omitempty"` // JSONPath of the next cursor (cursor only)
	PageSize   int            `json:"pageSize,omitempty"`
	StartAt    int            `json:"startAt,omitempty"`
}

// APIDiscoveryConfig discovers URLs from a JSON API listing
type APIDiscoveryConfig struct {
	Request    APIRequest                `json:"request"`
	ItemsPath  string                    `json:"itemsPath"`
	URLField   string                    `json:"urlField"` // JSONPath of each item's URL
	Pagination APIPagination             `json:"pagination"`
	Fields     []jsonpath.FieldSelection `json:"fields"`
	Stop       stop.APIStopConfig        `json:"stop"`
}

// RSSDiscoveryConfig discovers URLs from a feed
type RSSDiscoveryConfig struct {
	FeedURL   string `json:"feedUrl"`
	LinkField string `json:"linkField"` // "link" or "guid"
}

// SitemapDiscoveryConfig discovers URLs from a sitemap
type SitemapDiscoveryConfig struct {
	SitemapURL    string        `json:"sitemapUrl"`
	FollowIndexes bool          `json:"followIndexes"`
	LastModAfter  string        `json:"lastModAfter,omitempty"` // YYYY-MM-DD; empty keeps everything
	LinkFiltering match.Filters `json:"linkFiltering"`
}

// RenderConfig controls page loading for html and js techniques
type RenderConfig struct {
	WaitFor       string                      `json:"waitFor,omitempty"`
	TimeoutMs     int                         `json:"timeoutMs"`
	Interactions  []string                    `json:"interactions"`
	CustomJS      string                      `json:"customJS,omitempty"`
	PopupHandling interact.PopupHandlingState `json:"popupHandling"`
}

// ScrapePagination configures following listing pages
type ScrapePagination struct {
	Enabled      bool                  `json:"enabled"`
	NextSelector string                `json:"nextSelector,omitempty"`
	MaxPages     int                   `json:"maxPages"`
	Stop         stop.ScrapeStopConfig `json:"stop"`
}

// ScrapeDiscoveryConfig discovers URLs by scraping listing pages (html and js)
type ScrapeDiscoveryConfig struct {
	StartURLs     []string         `json:"startUrls"`
	Render        RenderConfig     `json:"rendering"`
	ContentArea   string           `json:"contentArea,omitempty"` // Selector limiting where links are collected
	LinkFiltering match.Filters    `json:"linkFiltering"`
	Pagination    ScrapePagination `json:"pagination"`
	Dedupe        match.Dedupe     `json:"deduplication"`
}

func (*APIDiscoveryConfig) DiscoveryTechniques() []Technique     { return []Technique{TechniqueAPI} }
func (*RSSDiscoveryConfig) DiscoveryTechniques() []Technique     { return []Technique{TechniqueRSS} }
func (*SitemapDiscoveryConfig) DiscoveryTechniques() []Technique { return []Technique{TechniqueSitemap} }
func (*ScrapeDiscoveryConfig) DiscoveryTechniques() []Technique {
	return []Technique{TechniqueHTML, TechniqueJS}
}

// APIExtractionConfig extracts fields from a per-item API call
type APIExtractionConfig struct {
	Request APIRequest                `json:"request"`
	Fields  []jsonpath.FieldSelection `json:"fields"`
}

// Navigation controls how a detail page is opened
type Navigation struct {
	TimeoutMs int    `json:"timeoutMs"`
	WaitUntil string `json:"waitUntil"` // "load", "domcontentloaded" or "networkidle"
}

// ContentSelection narrows a page down before conversion
type ContentSelection struct {
	CSSSelector        string   `json:"cssSelector,omitempty"`
	ExcludedTags       []string `json:"excludedTags"`
	WordCountThreshold int      `json:"wordCountThreshold"`
}

// MarkdownStrategy controls HTML to markdown conversion
type MarkdownStrategy struct {
	IgnoreLinks  bool `json:"ignoreLinks"`
	IgnoreImages bool `json:"ignoreImages"`
}

// Parallelism limits extraction throughput
type Parallelism struct {
	MaxConcurrent int `json:"maxConcurrent"`
	DelayMs       int `json:"delayMs"`
}

// PageExtractionConfig extracts fields from detail pages (html and js)
type PageExtractionConfig struct {
	Navigation  Navigation        `json:"navigation"`
	Render      RenderConfig      `json:"rendering"`
	Selectors   map[string]string `json:"selectors"` // Legacy field -> CSS selector
	Content     ContentSelection  `json:"contentSelection"`
	Markdown    MarkdownStrategy  `json:"markdown"`
	Parallelism Parallelism       `json:"parallelism"`
}

func (*APIExtractionConfig) ExtractionTechniques() []Technique { return []Technique{TechniqueAPI} }
func (*PageExtractionConfig) ExtractionTechniques() []Technique {
	return []Technique{TechniqueHTML, TechniqueJS}
}

// SchemaField is one output field the LLM is asked to fill
type SchemaField struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, boolean, date, list
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// LLMParsing describes the LLM extraction pass. Nothing here invokes a model.
type LLMParsing struct {
	Enabled             bool          `json:"enabled"`
	Provider            string        `json:"provider"`
	Model               string        `json:"model"`
	Instruction         string        `json:"instruction"`
	SchemaFields        []SchemaField `json:"schemaFields"`
	ChunkTokenThreshold int           `json:"chunkTokenThreshold"`
	OverlapRate         float64       `json:"overlapRate"`
	InputFormat         string        `json:"inputFormat"` // markdown, html or fit_markdown
}

// SoftDelete marks records missing from consecutive runs as deleted
type SoftDelete struct {
	Enabled     bool `json:"enabled"`
	MissingRuns int  `json:"missingRuns"`
}

// SaveValidation are record-level checks applied before saving
type SaveValidation struct {
	RequireTitle bool `json:"requireTitle"`
	RequireURL   bool `json:"requireUrl"`
	DedupeByURL  bool `json:"dedupeByUrl"`
}

// Save configures how extracted records are stored
type Save struct {
	UpsertKeys []string       `json:"upsertKeys"`
	SoftDelete SoftDelete     `json:"softDelete"`
	Validation SaveValidation `json:"validation"`
}

// TriggerMode selects how a phase is started
type TriggerMode string

const (
	TriggerCron   TriggerMode = "cron"
	TriggerManual TriggerMode = "manual"
)

// Trigger starts a phase on a cron expression or by hand
type Trigger struct {
	Mode TriggerMode `json:"mode"`
	Cron string      `json:"cron,omitempty"`
}

// RateLimits bounds request volume across both phases
type RateLimits struct {
	RequestsPerMinute int `json:"requestsPerMinute"`
	Concurrency       int `json:"concurrency"`
	DelayMs           int `json:"delayMs"`
}

// Schedule holds the run triggers of a source
type Schedule struct {
	Discovery  Trigger    `json:"discovery"`
	Extraction Trigger    `json:"extraction"`
	RateLimits RateLimits `json:"rateLimits"`
}

// TestResult caches the outcome of a simulated test
type TestResult struct {
	JobID     string           `json:"jobId,omitempty"`
	Status    TestStatus       `json:"status"`
	Technique Technique        `json:"technique"`
	RanAt     time.Time        `json:"ranAt"`
	Summary   string           `json:"summary,omitempty"`
	URLs      []string         `json:"urls,omitempty"`
	Items     []map[string]any `json:"items,omitempty"`
	Markdown  string           `json:"markdown,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// TestResults holds the last discovery and extraction test outcomes
type TestResults struct {
	Discovery  *TestResult `json:"discovery,omitempty"`
	Extraction *TestResult `json:"extraction,omitempty"`
}
