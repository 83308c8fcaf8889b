package review

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/source-wizard/pkg/models"
)

func sampleConfig(t *testing.T) models.SourceConfig {
	t.Helper()
	cfg := models.NewSourceConfig()
	cfg.Name = "Acme Careers"
	cfg.SiteURL = "https://acme.example"

	sc, ok := cfg.ScrapeDiscovery()
	require.True(t, ok)
	sc.StartURLs = []string{"https://acme.example/jobs"}
	sc.LinkFiltering.IncludePatterns = []string{"/jobs/*"}

	cfg.Schedule.Discovery = models.Trigger{Mode: models.TriggerCron, Cron: "0 9 * * 1-5"}
	cfg.Save.UpsertKeys = []string{"url"}
	cfg.TestResults = &models.TestResults{
		Discovery: &models.TestResult{Status: models.TestStatusSuccess, Summary: "12 links"},
	}
	return cfg
}

func TestSummary(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) // Monday
	out := Summary(sampleConfig(t), now)

	assert.True(t, strings.HasPrefix(out, "# Acme Careers\n"))
	assert.Contains(t, out, "Site: https://acme.example")
	assert.Contains(t, out, "https://acme.example/jobs")
	assert.Contains(t, out, "- Include: `/jobs/*`")
	assert.Contains(t, out, "`0 9 * * 1-5`")
	assert.Contains(t, out, "Mon 2026-03-02 09:00")
	assert.Contains(t, out, "Tue 2026-03-03 09:00")
	assert.Contains(t, out, "- Upsert keys: url")
	assert.Contains(t, out, "- Discovery: success, 12 links")
	assert.Contains(t, out, "- Extraction: not run")
}

func TestSummary_Defaults(t *testing.T) {
	out := Summary(models.NewSourceConfig(), time.Now())
	assert.Contains(t, out, "# Untitled source")
	assert.Contains(t, out, "Site: _none_")
	assert.NotContains(t, out, "## Test Results")
}

func TestHTMLAndOutline(t *testing.T) {
	md := Summary(sampleConfig(t), time.Now())

	html, err := HTML(md)
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Acme Careers</h1>")
	assert.Contains(t, html, "<h2>Discovery</h2>")

	outline := Outline([]byte(md))
	require.NotEmpty(t, outline)
	assert.Equal(t, "Acme Careers", outline[0])
	assert.Contains(t, outline, "  Discovery")
	assert.Contains(t, outline, "  Save")
}

func TestHTML_Tables(t *testing.T) {
	html, err := HTML("| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := sampleConfig(t)
	out, err := ExportYAML(cfg)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "name: Acme Careers")
	assert.Contains(t, text, "siteUrl:")
	assert.NotContains(t, text, "{\"", "export should be block style")

	back, err := ImportYAML(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, back.Name)
	sc, ok := back.ScrapeDiscovery()
	require.True(t, ok)
	assert.Equal(t, []string{"https://acme.example/jobs"}, sc.StartURLs)
	assert.Equal(t, cfg.Schedule, back.Schedule)
}

func TestImportYAML_Partial(t *testing.T) {
	cfg, err := ImportYAML([]byte("name: Partial\nsiteUrl: https://p.example\n"))
	require.NoError(t, err)
	assert.Equal(t, "Partial", cfg.Name)
	assert.Equal(t, models.NewSourceConfig().Schedule, cfg.Schedule)
}

func TestImportYAML_Invalid(t *testing.T) {
	_, err := ImportYAML([]byte("name: [unclosed"))
	assert.Error(t, err)
}
