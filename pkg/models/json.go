package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// wireDiscovery is the technique-tagged JSON form of Discovery
type wireDiscovery struct {
	Enabled   bool            `json:"enabled"`
	Technique Technique       `json:"technique"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// wireExtraction is the technique-tagged JSON form of Extraction
type wireExtraction struct {
	Enabled   bool            `json:"enabled"`
	Technique Technique       `json:"technique"`
	Config    json.RawMessage `json:"config,omitempty"`
	LLM       *LLMParsing     `json:"llm,omitempty"`
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (d Discovery) MarshalJSON() ([]byte, error) {
	wire := wireDiscovery{Enabled: d.Enabled, Technique: d.Technique}
	if d.Config != nil {
		raw, err := json.Marshal(d.Config)
		if err != nil {
			return nil, err
		}
		wire.Config = raw
	}
	return json.Marshal(wire)
}

// UnmarshalJSON picks the config variant from technique. Fields absent from
// config keep the technique's defaults.
func (d *Discovery) UnmarshalJSON(data []byte) error {
	var wire wireDiscovery
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: discovery: %w", utils.ErrParsing, err)
	}
	cfg, err := DefaultDiscoveryConfig(wire.Technique)
	if err != nil {
		return err
	}
	if !isNull(wire.Config) {
		if err := json.Unmarshal(wire.Config, cfg); err != nil {
			return fmt.Errorf("%w: discovery %s config: %w", utils.ErrParsing, wire.Technique, err)
		}
	}
	d.Enabled = wire.Enabled
	d.Technique = wire.Technique
	d.Config = cfg
	return nil
}

func (e Extraction) MarshalJSON() ([]byte, error) {
	llm := e.LLM
	wire := wireExtraction{Enabled: e.Enabled, Technique: e.Technique, LLM: &llm}
	if e.Config != nil {
		raw, err := json.Marshal(e.Config)
		if err != nil {
			return nil, err
		}
		wire.Config = raw
	}
	return json.Marshal(wire)
}

// UnmarshalJSON picks the config variant from technique. A missing llm block
// decodes to DefaultLLMParsing.
func (e *Extraction) UnmarshalJSON(data []byte) error {
	var wire wireExtraction
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: extraction: %w", utils.ErrParsing, err)
	}
	cfg, err := DefaultExtractionConfig(wire.Technique)
	if err != nil {
		return err
	}
	if !isNull(wire.Config) {
		if err := json.Unmarshal(wire.Config, cfg); err != nil {
			return fmt.Errorf("%w: extraction %s config: %w", utils.ErrParsing, wire.Technique, err)
		}
	}
	e.Enabled = wire.Enabled
	e.Technique = wire.Technique
	e.Config = cfg
	e.LLM = DefaultLLMParsing()
	if wire.LLM != nil {
		e.LLM = *wire.LLM
	}
	return nil
}

// Decode parses a stored SourceConfig. Sections missing from data keep the
// values of NewSourceConfig.
func Decode(data []byte) (SourceConfig, error) {
	cfg := NewSourceConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		if errors.Is(err, utils.ErrParsing) {
			return SourceConfig{}, err
		}
		return SourceConfig{}, fmt.Errorf("%w: source config: %w", utils.ErrParsing, err)
	}
	return cfg, nil
}

// Clone returns a deep copy so edits never reach shared slices, maps or configs.
// A config that cannot round-trip through JSON yields an error, never a shallow copy.
func (c SourceConfig) Clone() (SourceConfig, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return SourceConfig{}, fmt.Errorf("%w: clone source config: %w", utils.ErrParsing, err)
	}
	var out SourceConfig
	if err := json.Unmarshal(data, &out); err != nil {
		if errors.Is(err, utils.ErrParsing) {
			return SourceConfig{}, fmt.Errorf("clone source config: %w", err)
		}
		return SourceConfig{}, fmt.Errorf("%w: clone source config: %w", utils.ErrParsing, err)
	}
	return out, nil
}

// Validate checks the structural invariants of the config: known techniques
// and a config variant matching each technique.
func (c SourceConfig) Validate() error {
	var errs []error
	if !c.Discovery.Technique.IsDiscovery() {
		errs = append(errs, fmt.Errorf("discovery technique %q is not supported", c.Discovery.Technique))
	} else if !c.Discovery.Matches() {
		errs = append(errs, fmt.Errorf("discovery config does not match technique %q", c.Discovery.Technique))
	}
	if !c.Extraction.Technique.IsExtraction() {
		errs = append(errs, fmt.Errorf("extraction technique %q is not supported", c.Extraction.Technique))
	} else if !c.Extraction.Matches() {
		errs = append(errs, fmt.Errorf("extraction config does not match technique %q", c.Extraction.Technique))
	}
	for _, trig := range []Trigger{c.Schedule.Discovery, c.Schedule.Extraction} {
		if trig.Mode != TriggerCron && trig.Mode != TriggerManual {
			errs = append(errs, fmt.Errorf("trigger mode %q is not supported", trig.Mode))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", utils.ErrConfigValidation, errors.Join(errs...))
}
