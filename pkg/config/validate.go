package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tiktoken-go/tokenizer"

	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/schedule"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './wizard_state'")
		c.StateDir = "./wizard_state"
	}

	// Storage
	switch c.Storage {
	case StorageBadger, StorageMemory:
	case "":
		c.Storage = StorageBadger
	default:
		warnings = append(warnings, fmt.Sprintf("storage '%s' is not supported, defaulting to '%s'", c.Storage, StorageBadger))
		c.Storage = StorageBadger
	}

	// DraftKey
	if c.DraftKey == "" {
		c.DraftKey = "source-wizard-draft"
	} else if sanitized := utils.SanitizeKey(c.DraftKey); sanitized != c.DraftKey {
		warnings = append(warnings, fmt.Sprintf("draft_key '%s' contains unsupported characters, using '%s'", c.DraftKey, sanitized))
		c.DraftKey = sanitized
	}

	// LogLevel
	if c.LogLevel == "" {
		c.LogLevel = "info"
	} else if _, errLevel := logrus.ParseLevel(c.LogLevel); errLevel != nil {
		warnings = append(warnings, fmt.Sprintf("log_level '%s' is invalid, defaulting to 'info'", c.LogLevel))
		c.LogLevel = "info"
	}

	// GCInterval
	if c.GCInterval <= 0 {
		c.GCInterval = 10 * time.Minute
	}

	warnings = append(warnings, c.validateMCP()...)
	warnings = append(warnings, c.validateTestRun()...)
	warnings = append(warnings, c.validateLLM()...)

	wizardWarnings, err := c.validateWizard()
	warnings = append(warnings, wizardWarnings...)
	return warnings, err
}

func (c *AppConfig) validateMCP() (warnings []string) {
	m := &c.MCP
	switch strings.ToLower(m.Transport) {
	case TransportStdio, TransportSSE:
		m.Transport = strings.ToLower(m.Transport)
	case "":
		m.Transport = TransportStdio
	default:
		warnings = append(warnings, fmt.Sprintf("mcp.transport '%s' is not supported, defaulting to 'stdio'", m.Transport))
		m.Transport = TransportStdio
	}
	if m.Port < 0 || m.Port > 65535 {
		warnings = append(warnings, fmt.Sprintf("mcp.port %d is out of range, defaulting to 8080", m.Port))
		m.Port = 0
	}
	if m.Port == 0 {
		m.Port = 8080
	}
	return warnings
}

func (c *AppConfig) validateTestRun() (warnings []string) {
	tr := &c.TestRun
	if tr.Delay < 0 {
		warnings = append(warnings, "test_run.delay cannot be negative, setting to 0")
		tr.Delay = 0
	}
	if tr.Delay == 0 && tr.Jitter == 0 {
		tr.Delay = 800 * time.Millisecond
	}
	if tr.Jitter < 0 {
		warnings = append(warnings, "test_run.jitter cannot be negative, setting to 0")
		tr.Jitter = 0
	}
	if tr.FailureRate < 0 || tr.FailureRate > 1 {
		warnings = append(warnings, fmt.Sprintf("test_run.failure_rate %.2f must be within [0, 1], setting to 0", tr.FailureRate))
		tr.FailureRate = 0
	}
	if tr.RunsPerMin <= 0 {
		tr.RunsPerMin = 60
	}
	if tr.RetainFor <= 0 {
		tr.RetainFor = time.Hour
	}
	if tr.MaxPreviewKB <= 0 {
		tr.MaxPreviewKB = 64
	}
	return warnings
}

func (c *AppConfig) validateLLM() (warnings []string) {
	if c.LLM.Encoding == "" {
		c.LLM.Encoding = string(tokenizer.Cl100kBase)
		return nil
	}
	switch tokenizer.Encoding(c.LLM.Encoding) {
	case tokenizer.Cl100kBase, tokenizer.O200kBase, tokenizer.P50kBase, tokenizer.P50kEdit, tokenizer.R50kBase:
	default:
		warnings = append(warnings, fmt.Sprintf("llm.encoding '%s' is unknown, defaulting to '%s'", c.LLM.Encoding, tokenizer.Cl100kBase))
		c.LLM.Encoding = string(tokenizer.Cl100kBase)
	}
	return warnings
}

// validateWizard fails on an unknown technique or an invalid seed cron expression.
func (c *AppConfig) validateWizard() (warnings []string, err error) {
	w := &c.Wizard
	if w.StepParam == "" {
		w.StepParam = "step"
	}
	if w.DiscoveryTechnique == "" {
		w.DiscoveryTechnique = string(models.TechniqueHTML)
	}
	if w.ExtractionTechnique == "" {
		w.ExtractionTechnique = string(models.TechniqueHTML)
	}
	if !models.Technique(w.DiscoveryTechnique).IsDiscovery() {
		return warnings, fmt.Errorf("%w: wizard.discovery_technique '%s' is not one of %v",
			utils.ErrConfigValidation, w.DiscoveryTechnique, models.DiscoveryTechniques())
	}
	if !models.Technique(w.ExtractionTechnique).IsExtraction() {
		return warnings, fmt.Errorf("%w: wizard.extraction_technique '%s' is not one of %v",
			utils.ErrConfigValidation, w.ExtractionTechnique, models.ExtractionTechniques())
	}
	if w.DiscoveryCron != "" {
		if errCron := schedule.Validate(w.DiscoveryCron); errCron != nil {
			return warnings, fmt.Errorf("%w: wizard.discovery_cron: %w", utils.ErrConfigValidation, errCron)
		}
	}
	return warnings, nil
}

// NewSourceConfig returns the defaults a fresh draft starts from, seeded by the wizard settings.
func (c AppConfig) NewSourceConfig() models.SourceConfig {
	cfg := models.NewSourceConfig()
	if d, err := cfg.Discovery.WithTechnique(models.Technique(c.Wizard.DiscoveryTechnique)); err == nil {
		cfg.Discovery = d
	}
	if e, err := cfg.Extraction.WithTechnique(models.Technique(c.Wizard.ExtractionTechnique)); err == nil {
		cfg.Extraction = e
	}
	if c.Wizard.DiscoveryCron != "" {
		cfg.Schedule.Discovery = models.Trigger{Mode: models.TriggerCron, Cron: c.Wizard.DiscoveryCron}
	}
	return cfg
}
