package review

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// ExportYAML renders cfg as block-style YAML. Keys keep the JSON field names
// so the export reads back through ImportYAML.
func ExportYAML(cfg models.SourceConfig) ([]byte, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: encode config: %w", utils.ErrParsing, err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("%w: encode config: %w", utils.ErrParsing, err)
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("%w: encode config: %w", utils.ErrParsing, err)
	}
	return out, nil
}

// JSON is a subset of YAML, so the decoded node tree is all flow style.
func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// ImportYAML reads a config written by ExportYAML (or hand-edited YAML with
// the same keys).
func ImportYAML(data []byte) (models.SourceConfig, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return models.SourceConfig{}, fmt.Errorf("%w: config YAML: %w", utils.ErrParsing, err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return models.SourceConfig{}, fmt.Errorf("%w: config YAML: %w", utils.ErrParsing, err)
	}
	return models.Decode(raw)
}
