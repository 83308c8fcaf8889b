package wizard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sriram-PR/source-wizard/pkg/jsonpath"
	"github.com/Sriram-PR/source-wizard/pkg/match"
	"github.com/Sriram-PR/source-wizard/pkg/models"
)

func fieldsOf(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Field)
	}
	return out
}

func TestValidate_Steps(t *testing.T) {
	tests := []struct {
		name    string
		step    StepID
		actions []Action
		want    []string
	}{
		{
			name: "basics needs http url",
			step: StepBasics,
			actions: []Action{
				SetBasics{Name: "Acme", SiteURL: "ftp://acme.example"},
			},
			want: []string{"siteUrl"},
		},
		{
			name:    "disabled discovery has nothing to check",
			step:    StepDiscoverySetup,
			actions: []Action{SetDiscoveryEnabled{Enabled: false}},
			want:    []string{},
		},
		{
			name: "scrape pagination selectors",
			step: StepDiscoverySetup,
			actions: []Action{
				startURLs,
				UpdateDiscoveryConfig{Patch: json.RawMessage(`{"pagination":{"enabled":true,"nextSelector":"a[rel=next","maxPages":0}}`)},
			},
			want: []string{"discovery.config.pagination.nextSelector", "discovery.config.pagination.maxPages"},
		},
		{
			name: "broken custom js",
			step: StepDiscoverySetup,
			actions: []Action{
				startURLs,
				UpdateDiscoveryConfig{Patch: json.RawMessage(`{"rendering":{"customJS":"document.querySelector(("}}`)},
			},
			want: []string{"discovery.config.rendering.customJS"},
		},
		{
			name: "api discovery",
			step: StepDiscoverySetup,
			actions: []Action{
				SetDiscoveryTechnique{Technique: models.TechniqueAPI},
				SetItemsPath{Path: "$.data..items"},
				UpdateDiscoveryConfig{Patch: json.RawMessage(`{"pagination":{"type":"cursor","param":"after","cursorPath":"$.meta.next"}}`)},
			},
			want: []string{"discovery.config.request.url", "discovery.config.itemsPath", "discovery.config.stop"},
		},
		{
			name: "sitemap date",
			step: StepDiscoverySetup,
			actions: []Action{
				SetDiscoveryTechnique{Technique: models.TechniqueSitemap},
				UpdateDiscoveryConfig{Patch: json.RawMessage(`{"sitemapUrl":"https://acme.example/sitemap.xml","lastModAfter":"03/01/2024"}`)},
			},
			want: []string{"discovery.config.lastModAfter"},
		},
		{
			name: "api extraction needs fields",
			step: StepExtractionSetup,
			actions: []Action{
				SetExtractionTechnique{Technique: models.TechniqueAPI},
				SetAPIRequest{Phase: PhaseExtraction, Request: models.APIRequest{URL: "https://api.acme.example/jobs/{id}", Method: "GET"}},
			},
			want: []string{"extraction.config.fields"},
		},
		{
			name: "duplicate field keys",
			step: StepExtractionSetup,
			actions: []Action{
				SetExtractionTechnique{Technique: models.TechniqueAPI},
				SetAPIRequest{Phase: PhaseExtraction, Request: models.APIRequest{URL: "https://api.acme.example/jobs/{id}"}},
				SetFieldSelections{Phase: PhaseExtraction, Fields: []jsonpath.FieldSelection{
					{Key: "title", Path: "$.title"},
					{Key: "title", Path: "$.name"},
				}},
			},
			want: []string{"extraction.config.fields"},
		},
		{
			name: "page selectors in key order",
			step: StepExtractionSetup,
			actions: []Action{
				SetSelectors{Selectors: map[string]string{"title": "h1[", "company": "#"}},
			},
			want: []string{"extraction.config.selectors.company", "extraction.config.selectors.title"},
		},
		{
			name:    "disabled llm",
			step:    StepLLM,
			actions: nil,
			want:    []string{},
		},
		{
			name: "llm schema",
			step: StepLLM,
			actions: []Action{
				SetLLM{LLM: models.LLMParsing{
					Enabled:             true,
					Provider:            "openai",
					Model:               "gpt-4o-mini",
					Instruction:         "Extract.",
					SchemaFields:        []models.SchemaField{{Name: "title", Type: "string"}, {Name: "title", Type: "blob"}},
					ChunkTokenThreshold: 1024,
					OverlapRate:         1,
					InputFormat:         "pdf",
				}},
			},
			want: []string{
				"extraction.llm.schemaFields[1].name",
				"extraction.llm.schemaFields[1].type",
				"extraction.llm.overlapRate",
				"extraction.llm.inputFormat",
			},
		},
		{
			name: "schedule and save",
			step: StepSchedule,
			actions: []Action{
				SetTrigger{Phase: PhaseExtraction, Mode: models.TriggerCron, Expression: "0 9 * * 1"},
				SetRateLimits{RateLimits: models.RateLimits{RequestsPerMinute: 0, Concurrency: 1}},
				SetSave{Save: models.Save{SoftDelete: models.SoftDelete{Enabled: true}}},
			},
			want: []string{"schedule.rateLimits.requestsPerMinute", "save.upsertKeys", "save.softDelete.missingRuns"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.NewSourceConfig()
			for _, a := range tt.actions {
				next, err := Reduce(cfg, a)
				if !assert.NoError(t, err) {
					return
				}
				cfg = next
			}
			assert.Equal(t, tt.want, fieldsOf(Blocking(Validate(tt.step, cfg))))
		})
	}
}

func TestValidate_PatternWarningsDoNotBlock(t *testing.T) {
	cfg := models.NewSourceConfig()
	cfg, err := Reduce(cfg, startURLs)
	assert.NoError(t, err)
	cfg, err = Reduce(cfg, SetLinkFilters{Filters: match.Filters{IncludePatterns: []string{"/jobs/(unclosed"}}})
	assert.NoError(t, err)

	issues := Validate(StepDiscoverySetup, cfg)
	assert.Empty(t, Blocking(issues))
	if assert.Len(t, issues, 1) {
		assert.Equal(t, SeverityWarning, issues[0].Severity)
		assert.Equal(t, "discovery.config.linkFiltering.includePatterns", issues[0].Field)
	}
}

func TestValidate_ReviewAggregates(t *testing.T) {
	issues := Blocking(Validate(StepReview, models.NewSourceConfig()))
	assert.Equal(t, []string{"name", "siteUrl", "discovery.config.startUrls"}, fieldsOf(issues))
}

func TestStepIndex(t *testing.T) {
	i, ok := StepIndex(StepSchedule)
	assert.True(t, ok)
	assert.Equal(t, 4, i)
	_, ok = StepIndex("publish")
	assert.False(t, ok)
	assert.Equal(t, StepBasics, Steps()[0])
	assert.Equal(t, "LLM Parsing", StepLLM.Title())
}
