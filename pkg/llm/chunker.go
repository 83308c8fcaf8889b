package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/Sriram-PR/source-wizard/pkg/models"
)

// Chunk is one piece of page content as the LLM would receive it.
type Chunk struct {
	Content          string   `json:"content"`          // Includes heading context from the markdown splitter
	HeadingHierarchy []string `json:"headingHierarchy"` // Headings found in the chunk, in document order
	TokenCount       int      `json:"tokenCount"`
}

// Plan summarizes how a document would be chunked for an LLMParsing config.
type Plan struct {
	Encoding     string  `json:"encoding"`
	Exact        bool    `json:"exact"` // False when token counts are estimates
	ChunkSize    int     `json:"chunkSize"`
	ChunkOverlap int     `json:"chunkOverlap"`
	TotalTokens  int     `json:"totalTokens"`
	Chunks       []Chunk `json:"chunks"`
}

var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// Overlap converts the overlap rate of spec into a token count.
func Overlap(spec models.LLMParsing) int {
	if spec.OverlapRate <= 0 || spec.ChunkTokenThreshold <= 0 {
		return 0
	}
	return int(float64(spec.ChunkTokenThreshold) * spec.OverlapRate)
}

// PlanChunks splits markdown the way the extraction pass would: by headings first,
// with a recursive character split for sections over the token threshold.
func PlanChunks(markdown string, spec models.LLMParsing, tok *Tokenizer) (Plan, error) {
	plan := Plan{
		Encoding:     tok.Encoding(),
		Exact:        tok.Exact(),
		ChunkSize:    spec.ChunkTokenThreshold,
		ChunkOverlap: Overlap(spec),
	}
	if plan.ChunkSize <= 0 {
		return plan, fmt.Errorf("chunk token threshold must be positive, got %d", plan.ChunkSize)
	}
	if strings.TrimSpace(markdown) == "" {
		return plan, nil
	}
	plan.TotalTokens = tok.Count(markdown)

	recursiveSplitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(plan.ChunkSize),
		textsplitter.WithChunkOverlap(plan.ChunkOverlap),
		textsplitter.WithLenFunc(tok.Count),
	)
	splitter := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithHeadingHierarchy(true),
		textsplitter.WithChunkSize(plan.ChunkSize),
		textsplitter.WithChunkOverlap(plan.ChunkOverlap),
		textsplitter.WithSecondSplitter(recursiveSplitter),
		textsplitter.WithLenFunc(tok.Count),
	)

	parts, err := splitter.SplitText(markdown)
	if err != nil {
		return plan, fmt.Errorf("split markdown: %w", err)
	}
	plan.Chunks = make([]Chunk, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		plan.Chunks = append(plan.Chunks, Chunk{
			Content:          part,
			HeadingHierarchy: headingHierarchy(part),
			TokenCount:       tok.Count(part),
		})
	}
	return plan, nil
}

func headingHierarchy(content string) []string {
	matches := headingRegex.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	hierarchy := make([]string, 0, len(matches))
	for _, m := range matches {
		if heading := strings.TrimSpace(m[2]); heading != "" {
			hierarchy = append(hierarchy, heading)
		}
	}
	return hierarchy
}
