package mockroute

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Difference is one field where an actual value does not satisfy the expected shape.
type Difference struct {
	Path     string `json:"path"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Reason   string `json:"reason"`
}

func (d Difference) String() string {
	path := d.Path
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("%s: %s (expected %s, got %s)", path, d.Reason, render(d.Expected), render(d.Actual))
}

// MatchSubset reports how actual fails to structurally contain expected.
// An empty result means actual matches.
//
// Objects match when every expected key is present in actual with a matching
// value; extra keys in actual are ignored. Arrays must have the same length
// and match element by element. Scalars compare by JSON value, so 2 and 2.0
// are equal but 2 and "2" are not.
func MatchSubset(expected, actual any) ([]Difference, error) {
	exp, err := normalize(expected)
	if err != nil {
		return nil, fmt.Errorf("normalizing expected value: %w", err)
	}
	act, err := normalize(actual)
	if err != nil {
		return nil, fmt.Errorf("normalizing actual value: %w", err)
	}
	var diffs []Difference
	matchValue("", exp, act, &diffs)
	return diffs, nil
}

func matchValue(path string, expected, actual any, diffs *[]Difference) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			*diffs = append(*diffs, Difference{Path: path, Expected: expected, Actual: actual, Reason: "expected an object"})
			return
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			childPath := joinPath(path, k)
			av, present := act[k]
			if !present {
				*diffs = append(*diffs, Difference{Path: childPath, Expected: exp[k], Reason: "missing field"})
				continue
			}
			matchValue(childPath, exp[k], av, diffs)
		}

	case []any:
		act, ok := actual.([]any)
		if !ok {
			*diffs = append(*diffs, Difference{Path: path, Expected: expected, Actual: actual, Reason: "expected an array"})
			return
		}
		if len(act) != len(exp) {
			*diffs = append(*diffs, Difference{
				Path:     path,
				Expected: len(exp),
				Actual:   len(act),
				Reason:   "array length differs",
			})
			return
		}
		for i := range exp {
			matchValue(path+"["+strconv.Itoa(i)+"]", exp[i], act[i], diffs)
		}

	default:
		if !scalarEqual(expected, actual) {
			*diffs = append(*diffs, Difference{Path: path, Expected: expected, Actual: actual, Reason: "value differs"})
		}
	}
}

func scalarEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// normalize converts v into the generic shape produced by encoding/json:
// map[string]any, []any, float64, string, bool or nil.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	case []byte:
		var out any
		if err := json.Unmarshal(v.([]byte), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func render(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
