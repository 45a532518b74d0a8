package contract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pf274/jwt-pizza/pkg/mockroute"
	"github.com/xeipuuv/gojsonschema"
)

// EvaluateBodyAssertions checks JSONPath assertions against a response body.
// A plain value must equal the value at the path; a map applies operators.
// Paths are evaluated in sorted order so the first failure is stable.
func EvaluateBodyAssertions(body []byte, assertions map[string]any) error {
	doc, err := parseJSONDoc(body)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(assertions))
	for p := range assertions {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		val, found, err := lookup(doc, p)
		if err != nil {
			return err
		}
		if ops, isOps := assertions[p].(map[string]any); isOps {
			if err := applyOperators(p, val, found, ops); err != nil {
				return err
			}
			continue
		}
		if !found {
			return fmt.Errorf("path %q: no match found", p)
		}
		if !valuesEqual(val, assertions[p]) {
			return fmt.Errorf("path %q: expected %v (%T), got %v (%T)", p, assertions[p], assertions[p], val, val)
		}
	}
	return nil
}

type operator func(actual, expected any) error

var operators = map[string]operator{
	"eq": func(actual, expected any) error {
		if !valuesEqual(actual, expected) {
			return fmt.Errorf("expected eq %v, got %v", expected, actual)
		}
		return nil
	},
	"gte": compare(">=", func(a, e float64) bool { return a >= e }),
	"lte": compare("<=", func(a, e float64) bool { return a <= e }),
	"contains": func(actual, expected any) error {
		a, e := fmt.Sprint(actual), fmt.Sprint(expected)
		if !strings.Contains(a, e) {
			return fmt.Errorf("expected to contain %q, got %q", e, a)
		}
		return nil
	},
	"regex": func(actual, expected any) error {
		pattern, ok := expected.(string)
		if !ok {
			return fmt.Errorf("'regex' operator requires a string pattern")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		if a := fmt.Sprint(actual); !re.MatchString(a) {
			return fmt.Errorf("value %q does not match regex %q", a, pattern)
		}
		return nil
	},
	"len": func(actual, expected any) error {
		want, err := toFloat64(expected)
		if err != nil {
			return fmt.Errorf("'len' requires a number: %w", err)
		}
		var n int
		switch v := actual.(type) {
		case []any:
			n = len(v)
		case map[string]any:
			n = len(v)
		case string:
			n = len(v)
		default:
			return fmt.Errorf("'len' needs an array, object or string, got %T", actual)
		}
		if float64(n) != want {
			return fmt.Errorf("expected length %v, got %d", want, n)
		}
		return nil
	},
}

func compare(symbol string, ok func(actual, expected float64) bool) operator {
	return func(actual, expected any) error {
		a, err := toFloat64(actual)
		if err != nil {
			return fmt.Errorf("%s requires numeric actual value: %w", symbol, err)
		}
		e, err := toFloat64(expected)
		if err != nil {
			return fmt.Errorf("%s requires numeric expected value: %w", symbol, err)
		}
		if !ok(a, e) {
			return fmt.Errorf("expected %s %v, got %v", symbol, e, a)
		}
		return nil
	}
}

func applyOperators(path string, actual any, found bool, ops map[string]any) error {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		expected := ops[name]
		if name == "exists" {
			want, ok := expected.(bool)
			if !ok {
				return fmt.Errorf("path %q: 'exists' operator requires a boolean value", path)
			}
			if want && !found {
				return fmt.Errorf("path %q: expected to exist but no match found", path)
			}
			if !want && found {
				return fmt.Errorf("path %q: expected not to exist but found %v", path, actual)
			}
			continue
		}
		op, known := operators[name]
		if !known {
			return fmt.Errorf("path %q: unknown operator %q", path, name)
		}
		if !found {
			return fmt.Errorf("path %q: no match found for %q check", path, name)
		}
		if err := op(actual, expected); err != nil {
			return fmt.Errorf("path %q: %w", path, err)
		}
	}
	return nil
}

// valuesEqual compares JSON scalars, treating all numeric types alike.
// A number never equals a string.
func valuesEqual(actual, expected any) bool {
	a, aErr := toFloat64(actual)
	e, eErr := toFloat64(expected)
	switch {
	case aErr == nil && eErr == nil:
		return a == e
	case (aErr == nil) != (eErr == nil):
		return false
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
}

// MatchBody checks that expected is a structural subset of body.
func MatchBody(body []byte, expected any) error {
	diffs, err := mockroute.MatchSubset(expected, body)
	if err != nil {
		return err
	}
	if len(diffs) == 0 {
		return nil
	}
	lines := make([]string, len(diffs))
	for i, d := range diffs {
		lines[i] = d.String()
	}
	return fmt.Errorf("body does not match:\n  %s", strings.Join(lines, "\n  "))
}

// ValidateSchema checks body against a JSON schema document.
func ValidateSchema(body, schema []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validating schema: %w", err)
	}
	if result.Valid() {
		return nil
	}
	lines := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		lines = append(lines, e.String())
	}
	return fmt.Errorf("body violates schema:\n  %s", strings.Join(lines, "\n  "))
}
