// Package llm prepares the LLM parsing pass: token estimates, chunk plans and
// rendered prompts. It never calls a model.
package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Tokenizer counts tokens with a tiktoken encoding.
// A nil or failed codec falls back to a len/4 estimate.
type Tokenizer struct {
	mu       sync.RWMutex
	codec    tokenizer.Codec
	encoding tokenizer.Encoding
}

// NewTokenizer loads the named encoding. Common encodings: "cl100k_base" (GPT-4),
// "o200k_base" (GPT-4o), "p50k_base" (GPT-3). Empty or unknown names use cl100k_base.
func NewTokenizer(encoding string) (*Tokenizer, error) {
	enc := encodingFor(encoding)
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return &Tokenizer{encoding: enc}, err
	}
	return &Tokenizer{codec: codec, encoding: enc}, nil
}

func encodingFor(name string) tokenizer.Encoding {
	switch name {
	case "p50k_base":
		return tokenizer.P50kBase
	case "p50k_edit":
		return tokenizer.P50kEdit
	case "r50k_base":
		return tokenizer.R50kBase
	case "o200k_base":
		return tokenizer.O200kBase
	default:
		return tokenizer.Cl100kBase
	}
}

// Encoding returns the encoding name in use.
func (t *Tokenizer) Encoding() string {
	if t == nil {
		return ""
	}
	return string(t.encoding)
}

// Exact reports whether counts come from the codec rather than the estimate.
func (t *Tokenizer) Exact() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.codec != nil
}

// Count returns the token count of text.
func (t *Tokenizer) Count(text string) int {
	if t == nil {
		return estimateTokens(text)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.codec == nil {
		return estimateTokens(text)
	}
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return estimateTokens(text)
	}
	return len(ids)
}

func estimateTokens(text string) int {
	return len(text) / 4
}
