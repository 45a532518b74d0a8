package contract

import (
	"fmt"
	"os"
	"strings"
)

// ExpandTemplates replaces placeholders in s:
//   - {{env.VARIABLE}} from the environment
//   - {{name}} from scenario variables and captured values
func ExpandTemplates(s string, vars map[string]string) (string, error) {
	var out strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return "", fmt.Errorf("unterminated template expression in %q", s)
		}
		expr := strings.TrimSpace(rest[start+2 : start+end])
		value, err := resolveExpr(expr, vars)
		if err != nil {
			return "", err
		}
		out.WriteString(rest[:start])
		out.WriteString(value)
		rest = rest[start+end+2:]
	}
}

func resolveExpr(expr string, vars map[string]string) (string, error) {
	if key, ok := strings.CutPrefix(expr, "env."); ok {
		return os.Getenv(key), nil
	}
	if val, ok := vars[expr]; ok {
		return val, nil
	}
	return "", fmt.Errorf("unresolved template expression: %q", expr)
}

// expandValue expands templates inside every string of a decoded body.
func expandValue(v any, vars map[string]string) (any, error) {
	switch t := v.(type) {
	case string:
		return ExpandTemplates(t, vars)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			expanded, err := expandValue(val, vars)
			if err != nil {
				return nil, err
			}
			out[k] = expanded
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			expanded, err := expandValue(val, vars)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	}
	return v, nil
}
