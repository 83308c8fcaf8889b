package wizard

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// Envelope is the wire form of an action.
type Envelope struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var actionFactories = map[ActionType]func() Action{
	ActionSetBasics:              func() Action { return &SetBasics{} },
	ActionSetDiscoveryEnabled:    func() Action { return &SetDiscoveryEnabled{} },
	ActionSetDiscoveryTechnique:  func() Action { return &SetDiscoveryTechnique{} },
	ActionUpdateDiscoveryConfig:  func() Action { return &UpdateDiscoveryConfig{} },
	ActionSetLinkFilters:         func() Action { return &SetLinkFilters{} },
	ActionSetDedupe:              func() Action { return &SetDedupe{} },
	ActionSetPopupHandling:       func() Action { return &SetPopupHandling{} },
	ActionEditScrapeStop:         func() Action { return &EditScrapeStop{} },
	ActionEditAPIStop:            func() Action { return &EditAPIStop{} },
	ActionSetAPIRequest:          func() Action { return &SetAPIRequest{} },
	ActionImportCurl:             func() Action { return &ImportCurl{} },
	ActionSetItemsPath:           func() Action { return &SetItemsPath{} },
	ActionSetFieldSelections:     func() Action { return &SetFieldSelections{} },
	ActionSetExtractionEnabled:   func() Action { return &SetExtractionEnabled{} },
	ActionSetExtractionTechnique: func() Action { return &SetExtractionTechnique{} },
	ActionUpdateExtractionConfig: func() Action { return &UpdateExtractionConfig{} },
	ActionSetSelectors:           func() Action { return &SetSelectors{} },
	ActionSetLLM:                 func() Action { return &SetLLM{} },
	ActionSetSave:                func() Action { return &SetSave{} },
	ActionSetTrigger:             func() Action { return &SetTrigger{} },
	ActionSetRateLimits:          func() Action { return &SetRateLimits{} },
	ActionSetTestResult:          func() Action { return &SetTestResult{} },
}

// ActionTypes lists every action type DecodeAction accepts, sorted.
func ActionTypes() []ActionType {
	out := make([]ActionType, 0, len(actionFactories))
	for t := range actionFactories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DecodeAction parses {"type": ..., "payload": {...}} into a typed action.
func DecodeAction(raw []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: action envelope: %w", utils.ErrParsing, err)
	}
	factory, ok := actionFactories[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action type %q", utils.ErrInvalidAction, env.Type)
	}
	a := factory()
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, a); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %w", utils.ErrParsing, env.Type, err)
		}
	}
	return a, nil
}

// EncodeAction is the inverse of DecodeAction.
func EncodeAction(a Action) ([]byte, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: a.Type(), Payload: payload})
}
