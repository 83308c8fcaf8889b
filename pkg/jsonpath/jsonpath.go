// Package jsonpath implements the simplified dot/bracket path notation used to
// select fields from a tested API response. It is a representative-sample
// extractor: a wildcard segment always resolves to the first array element.
package jsonpath

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

const (
	Root     = "$"
	Wildcard = "[*]"
)

var concreteIndex = regexp.MustCompile(`\[\d+\]`)

// segmentPattern matches `key`, `key[*]`, `key[3]`, `[*]` and `[3]`.
var segmentPattern = regexp.MustCompile(`^([^\[\]]*)(?:\[(\*|\d+)\])?$`)

// Decode parses raw JSON into the generic tree the walker operates on.
func Decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: JSON response: %w", utils.ErrParsing, err)
	}
	return v, nil
}

// Generate finds the first path from root to a value reference-equal to target and
// rewrites every concrete array index in it to [*]. Maps and slices compare by
// identity; scalars by value. Object keys are visited in sorted order.
func Generate(root, target any) (string, bool) {
	path, ok := generate(root, target, Root)
	if !ok {
		return "", false
	}
	return concreteIndex.ReplaceAllString(path, Wildcard), true
}

func generate(node, target any, current string) (string, bool) {
	if sameRef(node, target) {
		return current, true
	}
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if p, ok := generate(v[k], target, current+"."+k); ok {
				return p, true
			}
		}
	case []any:
		for i, item := range v {
			if p, ok := generate(item, target, current+"["+strconv.Itoa(i)+"]"); ok {
				return p, true
			}
		}
	}
	return "", false
}

func sameRef(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		return ok && av != nil && bv != nil && reflect.ValueOf(av).Pointer() == reflect.ValueOf(bv).Pointer()
	case []any:
		bv, ok := b.([]any)
		return ok && len(av) > 0 && len(bv) > 0 && &av[0] == &bv[0] && len(av) == len(bv)
	case nil:
		return false
	}
	switch b.(type) {
	case map[string]any, []any, nil:
		return false
	}
	if !reflect.TypeOf(a).Comparable() || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return a == b
}

// Segment is one parsed step of a path.
type Segment struct {
	Key      string // Empty for bare index segments such as `[*]`
	Wildcard bool
	Index    int // -1 when the segment has no concrete index
}

// Parse splits a path such as `$.data.jobs[*].url` into segments. The leading `$`
// is optional and may carry an index (`$[*]`).
func Parse(path string) ([]Segment, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty JSONPath", utils.ErrParsing)
	}

	parts := strings.Split(path, ".")
	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		if i == 0 && strings.HasPrefix(part, Root) {
			part = strings.TrimPrefix(part, Root)
			if part == "" {
				continue
			}
		}
		m := segmentPattern.FindStringSubmatch(part)
		if m == nil || (m[1] == "" && m[2] == "") {
			return nil, fmt.Errorf("%w: invalid JSONPath segment %q in %q", utils.ErrParsing, part, path)
		}
		seg := Segment{Key: m[1], Index: -1}
		switch m[2] {
		case "":
		case "*":
			seg.Wildcard = true
		default:
			seg.Index, _ = strconv.Atoi(m[2])
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// Validate reports whether path parses.
func Validate(path string) error {
	_, err := Parse(path)
	return err
}

// Extract returns the value at path. A wildcard segment requires a non-empty array
// and descends into its first element only. A leaf holding JSON null yields
// (nil, true); a missing value or a step through null yields (nil, false).
func Extract(data any, path string) (any, bool) {
	segments, err := Parse(path)
	if err != nil {
		return nil, false
	}

	current := data
	for _, seg := range segments {
		if seg.Key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = obj[seg.Key]
			if !ok {
				return nil, false
			}
		}
		if seg.Wildcard || seg.Index >= 0 {
			arr, ok := current.([]any)
			if !ok || len(arr) == 0 {
				return nil, false
			}
			idx := 0
			if !seg.Wildcard {
				idx = seg.Index
			}
			if idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}
