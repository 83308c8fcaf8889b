package stop

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sriram-PR/source-wizard/pkg/jsonpath"
)

// APIConditionType names an API-pagination stop condition.
type APIConditionType string

const (
	NoNextToken    APIConditionType = "no_next_token"
	EmptyResults   APIConditionType = "empty_results"
	HTTPStatus     APIConditionType = "http_status"
	MaxAge         APIConditionType = "max_age"
	CustomJSONPath APIConditionType = "custom_jsonpath"
	MaxRequests    APIConditionType = "max_requests"
)

// APIConditionTypes lists the API vocabulary in display order.
func APIConditionTypes() []APIConditionType {
	return []APIConditionType{NoNextToken, EmptyResults, HTTPStatus, MaxAge, CustomJSONPath, MaxRequests}
}

// APICondition is one API-pagination stop rule.
type APICondition interface {
	APIType() APIConditionType
	Validate() error
}

// NoNextTokenCondition stops when the cursor at CursorPath is missing or empty.
type NoNextTokenCondition struct {
	CursorPath string `json:"cursorPath"`
}

// EmptyResultsCondition stops when the array at ItemsPath is empty.
type EmptyResultsCondition struct {
	ItemsPath string `json:"itemsPath"`
}

// HTTPStatusCondition stops on any of the listed response codes.
type HTTPStatusCondition struct {
	Codes []int `json:"codes"`
}

// MaxAgeCondition stops once items at DatePath are older than MaxAgeDays.
type MaxAgeCondition struct {
	DatePath   string `json:"datePath"`
	MaxAgeDays int    `json:"maxAgeDays"`
}

// CustomJSONPathCondition stops when the value at Path equals Equals.
type CustomJSONPathCondition struct {
	Path   string `json:"path"`
	Equals string `json:"equals"`
}

// MaxRequestsCondition stops after Count requests.
type MaxRequestsCondition struct {
	Count int `json:"count"`
}

func (NoNextTokenCondition) APIType() APIConditionType    { return NoNextToken }
func (EmptyResultsCondition) APIType() APIConditionType   { return EmptyResults }
func (HTTPStatusCondition) APIType() APIConditionType     { return HTTPStatus }
func (MaxAgeCondition) APIType() APIConditionType         { return MaxAge }
func (CustomJSONPathCondition) APIType() APIConditionType { return CustomJSONPath }
func (MaxRequestsCondition) APIType() APIConditionType    { return MaxRequests }

func (c NoNextTokenCondition) Validate() error {
	if err := jsonpath.Validate(c.CursorPath); err != nil {
		return invalid("no_next_token: cursorPath: %v", err)
	}
	return nil
}

func (c EmptyResultsCondition) Validate() error {
	if err := jsonpath.Validate(c.ItemsPath); err != nil {
		return invalid("empty_results: itemsPath: %v", err)
	}
	return nil
}

func (c HTTPStatusCondition) Validate() error {
	if len(c.Codes) == 0 {
		return invalid("http_status: at least one status code is required")
	}
	for _, code := range c.Codes {
		if code < 100 || code > 599 || http.StatusText(code) == "" {
			return invalid("http_status: %d is not an HTTP status code", code)
		}
	}
	return nil
}

func (c MaxAgeCondition) Validate() error {
	if err := jsonpath.Validate(c.DatePath); err != nil {
		return invalid("max_age: datePath: %v", err)
	}
	if c.MaxAgeDays < 1 {
		return invalid("max_age: maxAgeDays must be at least 1")
	}
	return nil
}

func (c CustomJSONPathCondition) Validate() error {
	if err := jsonpath.Validate(c.Path); err != nil {
		return invalid("custom_jsonpath: path: %v", err)
	}
	return nil
}

func (c MaxRequestsCondition) Validate() error {
	if c.Count < 1 {
		return invalid("max_requests: count must be at least 1")
	}
	return nil
}

// DefaultAPICondition returns the fresh fields for a condition type.
func DefaultAPICondition(t APIConditionType) (APICondition, error) {
	switch t {
	case NoNextToken:
		return NoNextTokenCondition{CursorPath: ""}, nil
	case EmptyResults:
		return EmptyResultsCondition{}, nil
	case HTTPStatus:
		return HTTPStatusCondition{Codes: []int{http.StatusNotFound}}, nil
	case MaxAge:
		return MaxAgeCondition{MaxAgeDays: 30}, nil
	case CustomJSONPath:
		return CustomJSONPathCondition{}, nil
	case MaxRequests:
		return MaxRequestsCondition{Count: 50}, nil
	}
	return nil, fmt.Errorf("%w: %q (api)", ErrUnknownConditionType, t)
}

// APIStopConfig is the stop rule set for API pagination.
type APIStopConfig struct {
	Operator   Operator
	Conditions []APICondition
}

// DefaultAPIStopConfig stops when the API returns no next-page cursor.
func DefaultAPIStopConfig() APIStopConfig {
	return APIStopConfig{
		Operator:   OperatorAny,
		Conditions: []APICondition{NoNextTokenCondition{}},
	}
}

// ChangeType replaces condition idx with the defaults of newType.
func (s APIStopConfig) ChangeType(idx int, newType APIConditionType) (APIStopConfig, error) {
	fresh, err := DefaultAPICondition(newType)
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
func (s APIStopConfig) Update(idx int, c APICondition) (APIStopConfig, error) {
	if err := checkIndex(len(s.Conditions), idx); err != nil {
		return s, err
	}
	if c == nil || c.APIType() != s.Conditions[idx].APIType() {
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
func (s APIStopConfig) Patch(idx int, raw json.RawMessage) (APIStopConfig, error) {
	if err := checkIndex(len(s.Conditions), idx); err != nil {
		return s, err
	}
	current := s.Conditions[idx]
	merged, err := patched(string(current.APIType()), current, raw)
	if err != nil {
		return s, err
	}
	c, err := decodeAPICondition(merged)
	if err != nil {
		return s, err
	}
	return s.Update(idx, c)
}

// Remove drops condition idx.
func (s APIStopConfig) Remove(idx int) (APIStopConfig, error) {
	conds, err := removeAt(s.Conditions, idx)
	if err != nil {
		return s, err
	}
	s.Conditions = conds
	return s, nil
}

// Add appends a default condition of type t.
func (s APIStopConfig) Add(t APIConditionType) (APIStopConfig, error) {
	fresh, err := DefaultAPICondition(t)
	if err != nil {
		return s, err
	}
	s.Conditions = appendTo(s.Conditions, fresh)
	return s, nil
}

// WithOperator sets the combining operator.
func (s APIStopConfig) WithOperator(op Operator) (APIStopConfig, error) {
	if err := checkOperator(op); err != nil {
		return s, err
	}
	s.Operator = op
	return s, nil
}

// Validate checks the operator and every condition, joining all problems.
func (s APIStopConfig) Validate() error {
	errs := []error{checkOperator(s.Operator)}
	for i, c := range s.Conditions {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("condition %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

func (s APIStopConfig) MarshalJSON() ([]byte, error) {
	wire := wireConfig{Operator: s.Operator, Conditions: make([]json.RawMessage, 0, len(s.Conditions))}
	if wire.Operator == "" {
		wire.Operator = OperatorAny
	}
	for _, c := range s.Conditions {
		raw, err := withType(string(c.APIType()), c)
		if err != nil {
			return nil, err
		}
		wire.Conditions = append(wire.Conditions, raw)
	}
	return json.Marshal(wire)
}

func (s *APIStopConfig) UnmarshalJSON(data []byte) error {
	var wire wireConfig
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.Operator = wire.Operator
	if s.Operator == "" {
		s.Operator = OperatorAny
	}
	s.Conditions = make([]APICondition, 0, len(wire.Conditions))
	for _, raw := range wire.Conditions {
		c, err := decodeAPICondition(raw)
		if err != nil {
			return err
		}
		s.Conditions = append(s.Conditions, c)
	}
	return nil
}

func decodeAPICondition(raw json.RawMessage) (APICondition, error) {
	kind, err := peekType(raw)
	if err != nil {
		return nil, err
	}
	switch APIConditionType(kind) {
	case NoNextToken:
		return decoded(raw, NoNextTokenCondition{})
	case EmptyResults:
		return decoded(raw, EmptyResultsCondition{})
	case HTTPStatus:
		return decoded(raw, HTTPStatusCondition{Codes: []int{http.StatusNotFound}})
	case MaxAge:
		return decoded(raw, MaxAgeCondition{MaxAgeDays: 30})
	case CustomJSONPath:
		return decoded(raw, CustomJSONPathCondition{})
	case MaxRequests:
		return decoded(raw, MaxRequestsCondition{Count: 50})
	}
	return nil, fmt.Errorf("%w: %q (api)", ErrUnknownConditionType, kind)
}
