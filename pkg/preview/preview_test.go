package preview

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/source-wizard/pkg/log"
	"github.com/Sriram-PR/source-wizard/pkg/models"
)

const page = `<html>
<head><title>Senior Go Engineer | Acme Careers</title></head>
<body>
  <nav><a href="/">Home</a> <a href="/jobs">Jobs</a></nav>
  <article class="posting">
    <h1>Senior Go Engineer <a class="headerlink" href="#top">¶</a></h1>
    <span class="location">Berlin, Germany</span>
    <p>You will build and operate the crawler fleet that keeps our job index fresh for millions of candidates.</p>
    <p>Apply today.</p>
    <p>Read more about the team on <a href="/teams/platform">our platform page</a> before you apply to this role.</p>
    <img src="/img/office.jpg" alt="Office">
  </article>
  <footer>Copyright Acme</footer>
</body>
</html>`

func pageConfig(t *testing.T) *models.PageExtractionConfig {
	t.Helper()
	ec, err := models.DefaultExtractionConfig(models.TechniqueHTML)
	require.NoError(t, err)
	return ec.(*models.PageExtractionConfig)
}

func pageURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://careers.acme.example/jobs/42")
	require.NoError(t, err)
	return u
}

func TestRender_Defaults(t *testing.T) {
	cfg := pageConfig(t)
	cfg.Selectors = map[string]string{"title": "article h1", "location": ".location", "broken": "div["}
	cfg.Content.CSSSelector = "article.posting"

	res, err := NewRenderer(0, log.Discard()).Render(page, pageURL(t), cfg)
	require.NoError(t, err)

	assert.Equal(t, "Senior Go Engineer | Acme Careers", res.Title)
	assert.Equal(t, "Senior Go Engineer ¶", res.Fields["title"])
	assert.Equal(t, "Berlin, Germany", res.Fields["location"])
	assert.NotContains(t, res.Fields, "broken")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `selector "broken" skipped`)

	assert.Contains(t, res.Markdown, "# Senior Go Engineer")
	assert.NotContains(t, res.Markdown, "¶")
	assert.Contains(t, res.Markdown, "crawler fleet")
	assert.NotContains(t, res.Markdown, "Apply today.", "short paragraphs fall under the threshold")
	assert.Equal(t, 1, res.Dropped)
	assert.Contains(t, res.Markdown, "https://careers.acme.example/teams/platform")
	assert.NotContains(t, res.Markdown, "Copyright")
	assert.False(t, res.Truncated)
}

func TestRender_ExcludedTagsOnBody(t *testing.T) {
	cfg := pageConfig(t)
	res, err := NewRenderer(0, nil).Render(page, nil, cfg)
	require.NoError(t, err)
	assert.NotContains(t, res.Markdown, "Home")
	assert.NotContains(t, res.Markdown, "Copyright")
	assert.Contains(t, res.Markdown, "crawler fleet")
}

func TestRender_MarkdownStrategy(t *testing.T) {
	cfg := pageConfig(t)
	cfg.Content.CSSSelector = "article"
	cfg.Content.WordCountThreshold = 0
	cfg.Markdown = models.MarkdownStrategy{IgnoreLinks: true, IgnoreImages: true}

	res, err := NewRenderer(0, nil).Render(page, pageURL(t), cfg)
	require.NoError(t, err)
	assert.Contains(t, res.Markdown, "our platform page")
	assert.NotContains(t, res.Markdown, "](")
	assert.NotContains(t, res.Markdown, "office.jpg")
	assert.Contains(t, res.Markdown, "Apply today.")
	assert.Zero(t, res.Dropped)
}

func TestRender_MissingContentSelector(t *testing.T) {
	cfg := pageConfig(t)
	cfg.Content.CSSSelector = "main#content"
	res, err := NewRenderer(0, nil).Render(page, nil, cfg)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "matched nothing")
	assert.Contains(t, res.Markdown, "crawler fleet")
}

func TestRender_Truncates(t *testing.T) {
	cfg := pageConfig(t)
	cfg.Content.WordCountThreshold = 0
	res, err := NewRenderer(40, nil).Render(page, nil, cfg)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.LessOrEqual(t, len(res.Markdown), 40)
}

func TestTruncate_RuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes each
	out, cut := truncate(s, 5)
	assert.True(t, cut)
	assert.Equal(t, "éé", out)

	out, cut = truncate("short", 64)
	assert.False(t, cut)
	assert.Equal(t, "short", out)
}
