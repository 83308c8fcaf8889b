package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

const systemTemplate = `You extract structured data from the {{.format}} content of a single web page.
Reply with one JSON object that matches this schema and nothing else:
{{.schema}}
Use null for fields the page does not state.`

const humanTemplate = `{{.instruction}}

Page content:
{{.content}}`

var chatTemplate = prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
	prompts.NewSystemMessagePromptTemplate(systemTemplate, []string{"format", "schema"}),
	prompts.NewHumanMessagePromptTemplate(humanTemplate, []string{"instruction", "content"}),
})

// Message is one rendered chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// jsonSchemaTypes maps schema field types to JSON schema types.
var jsonSchemaTypes = map[string]string{
	"string":  "string",
	"number":  "number",
	"boolean": "boolean",
	"date":    "string",
	"list":    "array",
}

// Schema renders the schema fields of spec as a JSON schema object.
func Schema(spec models.LLMParsing) (string, error) {
	props := make(map[string]any, len(spec.SchemaFields))
	required := []string{}
	for _, f := range spec.SchemaFields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		typ, ok := jsonSchemaTypes[f.Type]
		if !ok {
			typ = "string"
		}
		prop := map[string]any{"type": typ}
		if f.Type == "date" {
			prop["format"] = "date"
		}
		if f.Type == "list" {
			prop["items"] = map[string]any{"type": "string"}
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		props[name] = prop
		if f.Required {
			required = append(required, name)
		}
	}
	out, err := json.MarshalIndent(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: schema: %w", utils.ErrParsing, err)
	}
	return string(out), nil
}

// RenderPrompt builds the messages the extraction pass would send for one chunk.
func RenderPrompt(spec models.LLMParsing, content string) ([]Message, error) {
	schema, err := Schema(spec)
	if err != nil {
		return nil, err
	}
	format := spec.InputFormat
	if format == "" {
		format = "markdown"
	}
	msgs, err := chatTemplate.FormatMessages(map[string]any{
		"format":      strings.ReplaceAll(format, "_", " "),
		"schema":      schema,
		"instruction": strings.TrimSpace(spec.Instruction),
		"content":     content,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{Role: string(m.GetType()), Content: m.GetContent()})
	}
	return out, nil
}

// PromptTokens counts the tokens of rendered messages.
func PromptTokens(msgs []Message, tok *Tokenizer) int {
	total := 0
	for _, m := range msgs {
		total += tok.Count(m.Content)
	}
	return total
}
