package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// Storage backends for drafts
const (
	StorageBadger = "badger"
	StorageMemory = "memory"
)

// MCP transports
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	StateDir   string        `yaml:"state_dir"`
	Storage    string        `yaml:"storage"`   // "badger" or "memory"
	DraftKey   string        `yaml:"draft_key"` // Key the wizard draft is persisted under
	LogLevel   string        `yaml:"log_level"`
	GCInterval time.Duration `yaml:"gc_interval,omitempty"`
	MCP        MCPConfig     `yaml:"mcp"`
	TestRun    TestRunConfig `yaml:"test_run"`
	Wizard     WizardConfig  `yaml:"wizard"`
	LLM        LLMConfig     `yaml:"llm"`
}

// MCPConfig holds settings for the MCP tool server
type MCPConfig struct {
	Transport string `yaml:"transport"` // "stdio" or "sse"
	Port      int    `yaml:"port,omitempty"`
}

// TestRunConfig controls the simulated discovery/extraction tests
type TestRunConfig struct {
	Delay        time.Duration `yaml:"delay"`                    // Artificial latency before a canned result
	Jitter       time.Duration `yaml:"jitter,omitempty"`         // Random extra latency, up to this much
	FailureRate  float64       `yaml:"failure_rate,omitempty"`   // Probability a run ends in a simulated failure
	Seed         int64         `yaml:"seed,omitempty"`           // 0 = seeded from the clock
	RunsPerMin   int           `yaml:"runs_per_minute"`          // Pacing for starting test jobs
	RetainFor    time.Duration `yaml:"retain_for,omitempty"`     // How long finished jobs stay queryable
	MaxPreviewKB int           `yaml:"max_preview_kb,omitempty"` // Cap on markdown previews
}

// WizardConfig seeds new drafts and names the navigator parameter
type WizardConfig struct {
	StepParam           string `yaml:"step_param"`
	DiscoveryTechnique  string `yaml:"discovery_technique"`
	ExtractionTechnique string `yaml:"extraction_technique"`
	DiscoveryCron       string `yaml:"discovery_cron,omitempty"`
}

// LLMConfig controls token estimates and chunk planning for the LLM step
type LLMConfig struct {
	Encoding string `yaml:"encoding"` // tiktoken encoding, e.g. "cl100k_base"
}

// Default returns an AppConfig with every default applied
func Default() AppConfig {
	var c AppConfig
	_, _ = c.Validate()
	return c
}

// Load reads a YAML config file and validates it.
// A missing file is not an error: defaults are used and a warning is returned.
func Load(path string) (AppConfig, []string, error) {
	var cfg AppConfig
	var warnings []string

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		warnings = append(warnings, fmt.Sprintf("config file '%s' not found, using defaults", path))
	case err != nil:
		return cfg, nil, fmt.Errorf("%w: read config file '%s': %w", utils.ErrFilesystem, path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, nil, fmt.Errorf("%w: parse config file '%s': %w", utils.ErrParsing, path, err)
		}
	}

	more, err := cfg.Validate()
	warnings = append(warnings, more...)
	if err != nil {
		return cfg, warnings, err
	}
	return cfg, warnings, nil
}
