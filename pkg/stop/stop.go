// Package stop models the pagination stop conditions of a source. It is a data
// model with editing operations only; nothing here evaluates a condition.
package stop

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// Operator combines the conditions of a stop config.
type Operator string

const (
	OperatorAny Operator = "any" // Stop when any condition holds
	OperatorAll Operator = "all" // Stop when every condition holds
)

// IsValid returns true if the operator is known
func (o Operator) IsValid() bool {
	return o == OperatorAny || o == OperatorAll
}

var (
	ErrUnknownConditionType = errors.New("unknown stop condition type")
	ErrConditionIndex       = errors.New("stop condition index out of range")
	ErrConditionTypeChange  = errors.New("update cannot change a condition's type")
	ErrInvalidCondition     = errors.New("invalid stop condition")
)

// --- shared list operations ---

func checkIndex(n, idx int) error {
	if idx < 0 || idx >= n {
		return fmt.Errorf("%w: %d (have %d)", ErrConditionIndex, idx, n)
	}
	return nil
}

// replaceAt returns a copy of conds with conds[idx] replaced.
func replaceAt[C any](conds []C, idx int, c C) ([]C, error) {
	if err := checkIndex(len(conds), idx); err != nil {
		return nil, err
	}
	out := make([]C, len(conds))
	copy(out, conds)
	out[idx] = c
	return out, nil
}

// removeAt returns a copy of conds without conds[idx].
func removeAt[C any](conds []C, idx int) ([]C, error) {
	if err := checkIndex(len(conds), idx); err != nil {
		return nil, err
	}
	out := make([]C, 0, len(conds)-1)
	out = append(out, conds[:idx]...)
	return append(out, conds[idx+1:]...), nil
}

// appendTo returns a copy of conds with c appended.
func appendTo[C any](conds []C, c C) []C {
	out := make([]C, 0, len(conds)+1)
	out = append(out, conds...)
	return append(out, c)
}

// --- JSON helpers ---

// withType marshals a condition's fields and adds its "type" discriminator.
func withType(kind string, fields any) (json.RawMessage, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["type"], _ = json.Marshal(kind)
	return json.Marshal(m)
}

func peekType(raw json.RawMessage) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("%w: stop condition JSON: %w", utils.ErrParsing, err)
	}
	return head.Type, nil
}

// decoded unmarshals raw over a default-initialised condition so absent fields keep their defaults.
func decoded[C any](raw json.RawMessage, c C) (C, error) {
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: stop condition JSON: %w", utils.ErrParsing, err)
	}
	return c, nil
}

type wireConfig struct {
	Operator   Operator          `json:"operator"`
	Conditions []json.RawMessage `json:"conditions"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCondition, fmt.Sprintf(format, args...))
}

func checkOperator(op Operator) error {
	if !op.IsValid() {
		return invalid("operator %q must be %q or %q", op, OperatorAny, OperatorAll)
	}
	return nil
}

// patched overlays the fields in raw onto the JSON form of existing. A "type"
// in raw that differs from kind is rejected.
func patched(kind string, existing any, raw json.RawMessage) (json.RawMessage, error) {
	base, err := withType(kind, existing)
	if err != nil {
		return nil, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	overlay := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("%w: stop condition patch: %w", utils.ErrParsing, err)
	}
	if t, ok := overlay["type"]; ok {
		var newKind string
		if err := json.Unmarshal(t, &newKind); err != nil || newKind != kind {
			return nil, ErrConditionTypeChange
		}
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return json.Marshal(merged)
}
