package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonpointer"
)

// lookup evaluates a dot-notation path ($.field, $.list[0].field) against a
// decoded JSON document. ok is false when nothing is there.
func lookup(doc any, expr string) (val any, ok bool, err error) {
	ptr, err := toPointer(expr)
	if err != nil {
		return nil, false, err
	}
	p, err := gojsonpointer.NewJsonPointer(ptr)
	if err != nil {
		return nil, false, fmt.Errorf("path %q: %w", expr, err)
	}
	val, _, err = p.Get(doc)
	if err != nil {
		return nil, false, nil
	}
	return val, true, nil
}

// toPointer rewrites $.a.b[0] as the JSON pointer /a/b/0.
func toPointer(expr string) (string, error) {
	rest, ok := strings.CutPrefix(expr, "$")
	if !ok {
		return "", fmt.Errorf("path must start with $: %q", expr)
	}
	var b strings.Builder
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			if end == 0 {
				return "", fmt.Errorf("empty field name in %q", expr)
			}
			b.WriteString("/" + escapeToken(rest[:end]))
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", fmt.Errorf("unterminated index in %q", expr)
			}
			index := strings.Trim(rest[1:end], `"'`)
			if index == "" {
				return "", fmt.Errorf("empty index in %q", expr)
			}
			b.WriteString("/" + escapeToken(index))
			rest = rest[end+1:]
		default:
			return "", fmt.Errorf("unexpected %q in %q", rest[0], expr)
		}
	}
	return b.String(), nil
}

func escapeToken(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func parseJSONDoc(body []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("response body is not valid JSON: %w", err)
	}
	return doc, nil
}

// ExtractJSONPath returns the value at expr in a JSON body.
func ExtractJSONPath(body []byte, expr string) (any, error) {
	doc, err := parseJSONDoc(body)
	if err != nil {
		return nil, err
	}
	val, ok, err := lookup(doc, expr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("path %q: no match found", expr)
	}
	return val, nil
}
