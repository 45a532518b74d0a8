// Package contract runs declarative API contract scenarios against a live
// JWT Pizza backend: ordered HTTP steps with captured variables, JSONPath
// assertions, subset matches and JSON-schema checks on response bodies.
package contract

// Scenario is a complete contract scenario loaded from a YAML or JSON file.
type Scenario struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Setup       *Setup            `json:"setup,omitempty" yaml:"setup,omitempty"`
	Variables   map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Steps       []Step            `json:"steps" yaml:"steps"`

	// Source is the file the scenario came from.
	Source string `json:"-" yaml:"-"`
}

// Setup runs before the first step against the backend's /admin plane.
type Setup struct {
	Reset bool `json:"reset,omitempty" yaml:"reset,omitempty"`
	// State is posted to /admin/state after the reset.
	State map[string]any `json:"state,omitempty" yaml:"state,omitempty"`
}

// Step is one request and what its response must look like.
type Step struct {
	Name    string            `json:"name" yaml:"name"`
	Request Request           `json:"request" yaml:"request"`
	Capture map[string]string `json:"capture,omitempty" yaml:"capture,omitempty"`
	Assert  *Assert           `json:"assert,omitempty" yaml:"assert,omitempty"`
}

// Request is the HTTP request of a step. Path is resolved against the
// runner's base URL unless it is absolute.
type Request struct {
	Method  string            `json:"method" yaml:"method"`
	Path    string            `json:"path" yaml:"path"`
	Token   string            `json:"token,omitempty" yaml:"token,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty" yaml:"body,omitempty"`
}

// Assert lists the expectations on a response. Every set field is checked.
type Assert struct {
	Status       int               `json:"status,omitempty" yaml:"status,omitempty"`
	BodyContains string            `json:"body_contains,omitempty" yaml:"body_contains,omitempty"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	// Body maps JSONPath expressions to values or operator maps.
	Body map[string]any `json:"body,omitempty" yaml:"body,omitempty"`
	// Match must be a structural subset of the response body.
	Match any `json:"match,omitempty" yaml:"match,omitempty"`
	// Schema names a bundled JSON schema the body must satisfy.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}
