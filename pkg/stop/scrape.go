package stop

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Sriram-PR/source-wizard/pkg/parse"
)

// ScrapeConditionType names a scrape-pagination stop condition.
type ScrapeConditionType string

const (
	NoNewLinks      ScrapeConditionType = "no_new_links"
	SelectorPresent ScrapeConditionType = "selector_present"
	SelectorAbsent  ScrapeConditionType = "selector_absent"
	TextContains    ScrapeConditionType = "text_contains"
	MaxPages        ScrapeConditionType = "max_pages"
	OlderThan       ScrapeConditionType = "older_than"
)

// ScrapeConditionTypes lists the scrape vocabulary in display order.
func ScrapeConditionTypes() []ScrapeConditionType {
	return []ScrapeConditionType{NoNewLinks, SelectorPresent, SelectorAbsent, TextContains, MaxPages, OlderThan}
}

// ScrapeCondition is one scrape-pagination stop rule.
type ScrapeCondition interface {
	ScrapeType() ScrapeConditionType
	Validate() error
}

// NoNewLinksCondition stops after pages that yield no unseen links.
type NoNewLinksCondition struct {
	ConsecutivePages int `json:"consecutivePages"`
}

// SelectorPresentCondition stops once the selector matches on a page.
type SelectorPresentCondition struct {
	Selector string `json:"selector"`
}

// SelectorAbsentCondition stops once the selector no longer matches.
type SelectorAbsentCondition struct {
	Selector string `json:"selector"`
}

// TextContainsCondition stops when the text under Selector contains Text.
type TextContainsCondition struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

// MaxPagesCondition stops after Count pages.
type MaxPagesCondition struct {
	Count int `json:"count"`
}

// OlderThanCondition stops once the dates under DateSelector are older than MaxAgeDays.
type OlderThanCondition struct {
	DateSelector string `json:"dateSelector"`
	MaxAgeDays   int    `json:"maxAgeDays"`
}

func (NoNewLinksCondition) ScrapeType() ScrapeConditionType      { return NoNewLinks }
func (SelectorPresentCondition) ScrapeType() ScrapeConditionType { return SelectorPresent }
func (SelectorAbsentCondition) ScrapeType() ScrapeConditionType  { return SelectorAbsent }
func (TextContainsCondition) ScrapeType() ScrapeConditionType    { return TextContains }
func (MaxPagesCondition) ScrapeType() ScrapeConditionType        { return MaxPages }
func (OlderThanCondition) ScrapeType() ScrapeConditionType       { return OlderThan }

func (c NoNewLinksCondition) Validate() error {
	if c.ConsecutivePages < 1 {
		return invalid("no_new_links: consecutivePages must be at least 1")
	}
	return nil
}

func (c SelectorPresentCondition) Validate() error {
	if err := parse.ValidateSelector(c.Selector); err != nil {
		return invalid("selector_present: %v", err)
	}
	return nil
}

func (c SelectorAbsentCondition) Validate() error {
	if err := parse.ValidateSelector(c.Selector); err != nil {
		return invalid("selector_absent: %v", err)
	}
	return nil
}

func (c TextContainsCondition) Validate() error {
	if err := parse.ValidateSelector(c.Selector); err != nil {
		return invalid("text_contains: %v", err)
	}
	if strings.TrimSpace(c.Text) == "" {
		return invalid("text_contains: text is required")
	}
	return nil
}

func (c MaxPagesCondition) Validate() error {
	if c.Count < 1 {
		return invalid("max_pages: count must be at least 1")
	}
	return nil
}

func (c OlderThanCondition) Validate() error {
	if err := parse.ValidateSelector(c.DateSelector); err != nil {
		return invalid("older_than: dateSelector: %v", err)
	}
	if c.MaxAgeDays < 1 {
		return invalid("older_than: maxAgeDays must be at least 1")
	}
	return nil
}

// DefaultScrapeCondition returns the fresh fields for a condition type.
func DefaultScrapeCondition(t ScrapeConditionType) (ScrapeCondition, error) {
	switch t {
	case NoNewLinks:
		return NoNewLinksCondition{ConsecutivePages: 1}, nil
	case SelectorPresent:
		return SelectorPresentCondition{}, nil
	case SelectorAbsent:
		return SelectorAbsentCondition{}, nil
	case TextContains:
		return TextContainsCondition{Selector: "body"}, nil
	case MaxPages:
		return MaxPagesCondition{Count: 10}, nil
	case OlderThan:
		return OlderThanCondition{MaxAgeDays: 30}, nil
	}
	return nil, fmt.Errorf("%w: %q (scrape)", ErrUnknownConditionType, t)
}

// ScrapeStopConfig is the stop rule set for scrape-based pagination.
type ScrapeStopConfig struct {
	Operator   Operator
	Conditions []ScrapeCondition
}

// DefaultScrapeStopConfig stops as soon as a page yields no new links.
func DefaultScrapeStopConfig() ScrapeStopConfig {
	return ScrapeStopConfig{
		Operator:   OperatorAny,
		Conditions: []ScrapeCondition{NoNewLinksCondition{ConsecutivePages: 1}},
	}
}

// ChangeType replaces condition idx with the defaults of newType.
func (s ScrapeStopConfig) ChangeType(idx int, newType ScrapeConditionType) (ScrapeStopConfig, error) {
	fresh, err := DefaultScrapeCondition(newType)
	if err != nil {
		return s, err
	}
	conds, err := replaceAt(s.Conditions, idx, fresh)
	if err != nil {
		return s, err
	}
	s.Conditions = conds
	return s, nil
}

// Update replaces condition idx with c, which must keep the existing type.
func (s ScrapeStopConfig) Update(idx int, c ScrapeCondition) (ScrapeStopConfig, error) {
	if err := checkIndex(len(s.Conditions), idx); err != nil {
		return s, err
	}
	if c == nil || c.ScrapeType() != s.Conditions[idx].ScrapeType() {
		return s, ErrConditionTypeChange
	}
	conds, err := replaceAt(s.Conditions, idx, c)
	if err != nil {
		return s, err
	}
	s.Conditions = conds
	return s, nil
}

// Patch overlays the JSON fields in raw onto condition idx, keeping its type.
func (s ScrapeStopConfig) Patch(idx int, raw json.RawMessage) (ScrapeStopConfig, error) {
	if err := checkIndex(len(s.Conditions), idx); err != nil {
		return s, err
	}
	current := s.Conditions[idx]
	merged, err := patched(string(current.ScrapeType()), current, raw)
	if err != nil {
		return s, err
	}
	c, err := decodeScrapeCondition(merged)
	if err != nil {
		return s, err
	}
	return s.Update(idx, c)
}

// Remove drops condition idx.
func (s ScrapeStopConfig) Remove(idx int) (ScrapeStopConfig, error) {
	conds, err := removeAt(s.Conditions, idx)
	if err != nil {
		return s, err
	}
	s.Conditions = conds
	return s, nil
}

// Add appends a default condition of type t.
func (s ScrapeStopConfig) Add(t ScrapeConditionType) (ScrapeStopConfig, error) {
	fresh, err := DefaultScrapeCondition(t)
	if err != nil {
		return s, err
	}
	s.Conditions = appendTo(s.Conditions, fresh)
	return s, nil
}

// WithOperator sets the combining operator.
func (s ScrapeStopConfig) WithOperator(op Operator) (ScrapeStopConfig, error) {
	if err := checkOperator(op); err != nil {
		return s, err
	}
	s.Operator = op
	return s, nil
}

// Validate checks the operator and every condition, joining all problems.
func (s ScrapeStopConfig) Validate() error {
	errs := []error{checkOperator(s.Operator)}
	for i, c := range s.Conditions {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("condition %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

func (s ScrapeStopConfig) MarshalJSON() ([]byte, error) {
	wire := wireConfig{Operator: s.Operator, Conditions: make([]json.RawMessage, 0, len(s.Conditions))}
	if wire.Operator == "" {
		wire.Operator = OperatorAny
	}
	for _, c := range s.Conditions {
		raw, err := withType(string(c.ScrapeType()), c)
		if err != nil {
			return nil, err
		}
		wire.Conditions = append(wire.Conditions, raw)
	}
	return json.Marshal(wire)
}

func (s *ScrapeStopConfig) UnmarshalJSON(data []byte) error {
	var wire wireConfig
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.Operator = wire.Operator
	if s.Operator == "" {
		s.Operator = OperatorAny
	}
	s.Conditions = make([]ScrapeCondition, 0, len(wire.Conditions))
	for _, raw := range wire.Conditions {
		c, err := decodeScrapeCondition(raw)
		if err != nil {
			return err
		}
		s.Conditions = append(s.Conditions, c)
	}
	return nil
}

func decodeScrapeCondition(raw json.RawMessage) (ScrapeCondition, error) {
	kind, err := peekType(raw)
	if err != nil {
		return nil, err
	}
	switch ScrapeConditionType(kind) {
	case NoNewLinks:
		return decoded(raw, NoNewLinksCondition{ConsecutivePages: 1})
	case SelectorPresent:
		return decoded(raw, SelectorPresentCondition{})
	case SelectorAbsent:
		return decoded(raw, SelectorAbsentCondition{})
	case TextContains:
		return decoded(raw, TextContainsCondition{Selector: "body"})
	case MaxPages:
		return decoded(raw, MaxPagesCondition{Count: 10})
	case OlderThan:
		return decoded(raw, OlderThanCondition{MaxAgeDays: 30})
	}
	return nil, fmt.Errorf("%w: %q (scrape)", ErrUnknownConditionType, kind)
}
