// Package preview renders what the extraction step would produce for one page:
// legacy selector fields and the markdown handed to the LLM pass.
package preview

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/parse"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// Result is the extraction preview of a page.
type Result struct {
	Title     string            `json:"title"`
	Fields    map[string]string `json:"fields"`
	Markdown  string            `json:"markdown"`
	WordCount int               `json:"wordCount"`
	Dropped   int               `json:"droppedBlocks"` // Blocks under the word count threshold
	Truncated bool              `json:"truncated"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// Renderer converts page HTML according to a PageExtractionConfig.
type Renderer struct {
	maxBytes int
	log      *logrus.Entry
}

// NewRenderer returns a renderer that truncates markdown past maxBytes (0 for no limit).
func NewRenderer(maxBytes int, log *logrus.Entry) *Renderer {
	return &Renderer{maxBytes: maxBytes, log: log}
}

// blockTags are the text blocks the word count threshold applies to.
const blockTags = "p, li, blockquote, dd"

// Render extracts fields and markdown from html. pageURL, when set, resolves relative links.
func (r *Renderer) Render(html string, pageURL *url.URL, cfg *models.PageExtractionConfig) (Result, error) {
	res := Result{Fields: map[string]string{}}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return res, fmt.Errorf("%w: HTML: %w", utils.ErrParsing, err)
	}

	res.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if res.Title == "" {
		res.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	names := make([]string, 0, len(cfg.Selectors))
	for name := range cfg.Selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sel := cfg.Selectors[name]
		if err := parse.ValidateSelector(sel); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("selector %q skipped: %v", name, err))
			continue
		}
		res.Fields[name] = strings.Join(strings.Fields(doc.Find(sel).First().Text()), " ")
	}

	var content *goquery.Selection
	if sel := cfg.Content.CSSSelector; sel != "" {
		if err := parse.ValidateSelector(sel); err != nil {
			return res, err
		}
		found := doc.Find(sel)
		if found.Length() == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("content selector %q matched nothing, using <body>", sel))
			content = doc.Find("body").First().Clone()
		} else {
			content = found.First().Clone()
		}
	} else {
		content = doc.Find("body").First().Clone()
	}

	for _, tag := range cfg.Content.ExcludedTags {
		if err := parse.ValidateSelector(tag); err == nil {
			content.Find(tag).Remove()
		}
	}
	cleanupHTML(content)
	res.Dropped = dropShortBlocks(content, cfg.Content.WordCountThreshold)
	if cfg.Markdown.IgnoreImages {
		content.Find("img, picture, figure").Remove()
	}
	absolutizeLinks(content, pageURL, cfg.Markdown.IgnoreLinks)

	inner, err := content.Html()
	if err != nil {
		return res, fmt.Errorf("failed getting content HTML: %w", err)
	}
	domain := ""
	if pageURL != nil {
		domain = pageURL.Host
	}
	converter := md.NewConverter(domain, true, nil)
	markdown, err := converter.ConvertString(inner)
	if err != nil {
		return res, fmt.Errorf("%w: %w", utils.ErrMarkdown, err)
	}
	markdown = strings.TrimSpace(markdown)
	res.WordCount = len(strings.Fields(content.Text()))
	res.Markdown, res.Truncated = truncate(markdown, r.maxBytes)

	if r.log != nil {
		r.log.WithFields(logrus.Fields{
			"title":   res.Title,
			"words":   res.WordCount,
			"dropped": res.Dropped,
		}).Debug("Rendered extraction preview")
	}
	return res, nil
}

// cleanupHTML removes anchor noise that survives content selection.
func cleanupHTML(content *goquery.Selection) {
	content.Find("a.headerlink, a.permalink, a.anchor-link").Remove()
	content.Find("a").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		if text == "¶" || text == "#" || (text == "" && strings.HasPrefix(href, "#")) {
			s.Remove()
		}
	})
}

func dropShortBlocks(content *goquery.Selection, threshold int) int {
	if threshold <= 0 {
		return 0
	}
	dropped := 0
	content.Find(blockTags).Each(func(i int, s *goquery.Selection) {
		if len(strings.Fields(s.Text())) < threshold {
			s.Remove()
			dropped++
		}
	})
	return dropped
}

// absolutizeLinks resolves hrefs against base, or unwraps every link when strip is set.
func absolutizeLinks(content *goquery.Selection, base *url.URL, strip bool) {
	content.Find("a").Each(func(i int, s *goquery.Selection) {
		if strip {
			s.ReplaceWithSelection(s.Contents())
			return
		}
		href, ok := s.Attr("href")
		if !ok || base == nil {
			return
		}
		if abs := parse.ResolveLink(base, href); abs != "" {
			s.SetAttr("href", abs)
		}
	})
}

func truncate(s string, maxBytes int) (string, bool) {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s, false
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
