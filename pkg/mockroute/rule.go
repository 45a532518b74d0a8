package mockroute

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Rule binds an expected request shape to a canned response for every URL
// matching Pattern.
type Rule struct {
	// Name identifies the rule in diagnostics. Defaults to "METHOD pattern".
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Pattern string `json:"pattern" yaml:"pattern"`
	Method  string `json:"method" yaml:"method"`

	// Body, when set, must be structurally contained in the request body.
	Body any `json:"body,omitempty" yaml:"body,omitempty"`

	// Header, when set, must carry exactly HeaderValue.
	Header      string `json:"header,omitempty" yaml:"header,omitempty"`
	HeaderValue string `json:"header_value,omitempty" yaml:"header_value,omitempty"`

	Status   int `json:"status,omitempty" yaml:"status,omitempty"`
	Response any `json:"response,omitempty" yaml:"response,omitempty"`

	// RawBody is sent verbatim instead of the JSON encoding of Response.
	RawBody     string `json:"raw_body,omitempty" yaml:"raw_body,omitempty"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
}

// On starts a rule for method requests to pattern that answers 200 with no body.
func On(method, pattern string) Rule {
	return Rule{Method: strings.ToUpper(method), Pattern: pattern}
}

// Named sets the rule name.
func (r Rule) Named(name string) Rule {
	r.Name = name
	return r
}

// ExpectBody requires the request body to contain v.
func (r Rule) ExpectBody(v any) Rule {
	r.Body = v
	return r
}

// ExpectHeader requires header name to equal value.
func (r Rule) ExpectHeader(name, value string) Rule {
	r.Header = name
	r.HeaderValue = value
	return r
}

// ExpectBearer requires an Authorization header carrying token.
func (r Rule) ExpectBearer(token string) Rule {
	return r.ExpectHeader("Authorization", "Bearer "+token)
}

// RespondJSON answers with status and the JSON encoding of v.
func (r Rule) RespondJSON(status int, v any) Rule {
	r.Status = status
	r.Response = v
	r.RawBody = ""
	return r
}

// RespondRaw answers with status and body sent as-is.
func (r Rule) RespondRaw(status int, body string) Rule {
	r.Status = status
	r.Response = nil
	r.RawBody = body
	return r
}

// String returns the rule name.
func (r Rule) String() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Method + " " + r.Pattern
}

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Validate checks that the rule can be registered.
func (r Rule) Validate() error {
	if err := ValidatePattern(r.Pattern); err != nil {
		return fmt.Errorf("rule %s: %w", r, err)
	}
	if !knownMethods[strings.ToUpper(r.Method)] {
		return fmt.Errorf("rule %s: unsupported method %q", r, r.Method)
	}
	if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
		return fmt.Errorf("rule %s: invalid status %d", r, r.Status)
	}
	if r.HeaderValue != "" && r.Header == "" {
		return fmt.Errorf("rule %s: header_value set without header", r)
	}
	return nil
}

// Check compares req against the rule's expectations and returns a
// *MismatchError describing every difference found.
func (r Rule) Check(req *Request) error {
	var diffs []Difference

	if !strings.EqualFold(req.Method, r.Method) {
		diffs = append(diffs, Difference{
			Path:     "method",
			Expected: strings.ToUpper(r.Method),
			Actual:   req.Method,
			Reason:   "method differs",
		})
	}

	if r.Header != "" {
		got, ok := req.HeaderValue(r.Header)
		switch {
		case !ok:
			diffs = append(diffs, Difference{Path: "headers." + r.Header, Expected: r.HeaderValue, Reason: "missing header"})
		case got != r.HeaderValue:
			diffs = append(diffs, Difference{Path: "headers." + r.Header, Expected: r.HeaderValue, Actual: got, Reason: "header differs"})
		}
	}

	var actualBody any
	if r.Body != nil {
		body, err := req.JSON()
		if err != nil {
			diffs = append(diffs, Difference{Path: "body", Expected: r.Body, Actual: string(req.Body), Reason: "body is not JSON"})
		} else {
			actualBody = body
			bodyDiffs, err := MatchSubset(r.Body, body)
			if err != nil {
				return fmt.Errorf("rule %s: %w", r, err)
			}
			for _, d := range bodyDiffs {
				d.Path = joinPath("body", d.Path)
				diffs = append(diffs, d)
			}
		}
	}

	if len(diffs) == 0 {
		return nil
	}
	return &MismatchError{
		Rule:        r,
		Method:      req.Method,
		URL:         req.URL,
		Differences: diffs,
		Diff:        unifiedDiff(r, req, actualBody),
	}
}

// Normalized returns a copy of r whose Body and Response are plain JSON
// values (maps, slices, strings, float64s), so it encodes the same through
// YAML as through JSON.
func (r Rule) Normalized() (Rule, error) {
	body, err := normalize(r.Body)
	if err != nil {
		return r, fmt.Errorf("rule %s: body: %w", r, err)
	}
	resp, err := normalize(r.Response)
	if err != nil {
		return r, fmt.Errorf("rule %s: response: %w", r, err)
	}
	r.Body, r.Response = body, resp
	return r, nil
}

// Respond renders the canned response.
func (r Rule) Respond() (*Response, error) {
	resp := &Response{Status: r.Status, ContentType: r.ContentType}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	switch {
	case r.RawBody != "":
		resp.Body = []byte(r.RawBody)
	case r.Response != nil:
		data, err := json.Marshal(r.Response)
		if err != nil {
			return nil, fmt.Errorf("rule %s: encoding response: %w", r, err)
		}
		resp.Body = data
	}
	if resp.ContentType == "" {
		resp.ContentType = "application/json"
	}
	return resp, nil
}

// Request is an intercepted request as reported by the automation layer.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// HeaderValue looks up a header case-insensitively.
func (r *Request) HeaderValue(name string) (string, bool) {
	if r.Headers == nil {
		return "", false
	}
	vals := r.Headers.Values(name)
	if len(vals) == 0 {
		for k, v := range r.Headers {
			if strings.EqualFold(k, name) && len(v) > 0 {
				return v[0], true
			}
		}
		return "", false
	}
	return vals[0], true
}

// JSON decodes the request body.
func (r *Request) JSON() (any, error) {
	if len(r.Body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Response is the canned answer for a matched request.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}
