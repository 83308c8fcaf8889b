package jsonpath

import (
	"fmt"
	"sort"
	"strings"
)

// FieldSelection marks one field of a tested API response as an extraction output.
type FieldSelection struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// SuggestKey derives an output key from the last named segment of path.
func SuggestKey(path string) string {
	segments, err := Parse(path)
	if err != nil {
		return ""
	}
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].Key != "" {
			return segments[i].Key
		}
	}
	return ""
}

// Select builds a FieldSelection for the value the user picked out of root.
func Select(root, target any) (FieldSelection, bool) {
	path, ok := Generate(root, target)
	if !ok {
		return FieldSelection{}, false
	}
	return FieldSelection{Key: SuggestKey(path), Path: path}, true
}

// Preview extracts the representative value of every selection. Missing paths map to nil.
func Preview(data any, selections []FieldSelection) map[string]any {
	out := make(map[string]any, len(selections))
	for _, sel := range selections {
		v, _ := Extract(data, sel.Path)
		out[sel.Key] = v
	}
	return out
}

// ValidateSelections reports empty or duplicate keys and unparseable paths.
func ValidateSelections(selections []FieldSelection) []string {
	var problems []string
	seen := make(map[string]bool, len(selections))
	for i, sel := range selections {
		key := strings.TrimSpace(sel.Key)
		switch {
		case key == "":
			problems = append(problems, fmt.Sprintf("field #%d has no key", i+1))
		case seen[key]:
			problems = append(problems, fmt.Sprintf("field key %q is used more than once", key))
		}
		seen[key] = true
		if err := Validate(sel.Path); err != nil {
			problems = append(problems, fmt.Sprintf("field %q: %v", key, err))
		}
	}
	return problems
}

// Leaves lists the wildcard paths of every scalar reachable through first array
// elements, in sorted order. It is the selectable-field menu for a response.
func Leaves(root any) []string {
	var out []string
	collectLeaves(root, Root, &out)
	sort.Strings(out)
	return out
}

func collectLeaves(node any, current string, out *[]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			collectLeaves(child, current+"."+k, out)
		}
	case []any:
		if len(v) > 0 {
			collectLeaves(v[0], current+Wildcard, out)
		}
	case nil:
	default:
		*out = append(*out, current)
	}
}
