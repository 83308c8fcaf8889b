package review

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

var renderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders a review summary to HTML. Tables use the GFM extension.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("%w: render review: %w", utils.ErrMarkdown, err)
	}
	return buf.String(), nil
}

// Outline returns the headings of markdown in document order, indented two
// spaces per level below the first.
func Outline(markdown []byte) []string {
	doc := renderer.Parser().Parse(text.NewReader(markdown))

	var headings []string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
			if textNode, ok := child.(*ast.Text); ok {
				buf.Write(textNode.Segment.Value(markdown))
			}
		}
		if buf.Len() > 0 {
			headings = append(headings, strings.Repeat("  ", heading.Level-1)+buf.String())
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}
