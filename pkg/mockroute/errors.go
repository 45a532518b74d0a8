package mockroute

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	// ErrNoRoute is returned when no registered pattern matches a request.
	ErrNoRoute = errors.New("mockroute: no route matches request")

	// ErrContractMismatch is wrapped by every *MismatchError.
	ErrContractMismatch = errors.New("mockroute: request does not match contract")
)

// MismatchError reports an intercepted request that failed a rule's
// method, header or body expectations.
type MismatchError struct {
	Rule        Rule
	Method      string
	URL         string
	Differences []Difference
	Diff        string
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mockroute: %s %s does not match rule %q", e.Method, e.URL, e.Rule.String())
	for _, d := range e.Differences {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	if e.Diff != "" {
		b.WriteString("\n")
		b.WriteString(e.Diff)
	}
	return b.String()
}

func (e *MismatchError) Unwrap() error {
	return ErrContractMismatch
}

type requestShape struct {
	Method string `json:"method"`
	Header any    `json:"header,omitempty"`
	Body   any    `json:"body,omitempty"`
}

// unifiedDiff renders expected vs actual request shapes as a unified diff.
func unifiedDiff(r Rule, req *Request, actualBody any) string {
	expected := requestShape{Method: strings.ToUpper(r.Method), Body: r.Body}
	actual := requestShape{Method: req.Method}
	if r.Header != "" {
		expected.Header = map[string]string{r.Header: r.HeaderValue}
		got, _ := req.HeaderValue(r.Header)
		actual.Header = map[string]string{r.Header: got}
	}
	if r.Body != nil {
		if actualBody != nil {
			actual.Body = actualBody
		} else if len(req.Body) > 0 {
			actual.Body = string(req.Body)
		}
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(pretty(expected)),
		B:        difflib.SplitLines(pretty(actual)),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

func pretty(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v\n", v)
	}
	return string(data) + "\n"
}
