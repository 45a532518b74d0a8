package testutil

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/pf274/jwt-pizza/pkg/mockroute"
)

// Response is a fully read reply. Assertions report through t.Errorf and
// return the response so they chain.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	t          testing.TB
}

// JSON decodes the body into v, failing the test if it is not JSON.
func (r *Response) JSON(v any) {
	r.t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		r.t.Fatalf("response is not JSON: %v\nbody: %s", err, r.Body)
	}
}

// JSONMap decodes an object body.
func (r *Response) JSONMap() map[string]any {
	r.t.Helper()
	m := map[string]any{}
	r.JSON(&m)
	return m
}

func (r *Response) AssertStatus(want int) *Response {
	r.t.Helper()
	if r.StatusCode != want {
		r.t.Errorf("status %d, want %d\nbody: %s", r.StatusCode, want, r.Body)
	}
	return r
}

func (r *Response) AssertBodyContains(substr string) *Response {
	r.t.Helper()
	if !strings.Contains(string(r.Body), substr) {
		r.t.Errorf("body does not contain %q\nbody: %s", substr, r.Body)
	}
	return r
}

// AssertHeader checks one response header value.
func (r *Response) AssertHeader(name, want string) *Response {
	r.t.Helper()
	if got := r.Headers.Get(name); got != want {
		r.t.Errorf("header %s is %q, want %q", name, got, want)
	}
	return r
}

// AssertMatches checks that the JSON body contains expected as a structural
// subset, compared the way mock routes compare request bodies.
func (r *Response) AssertMatches(expected any) *Response {
	r.t.Helper()
	diffs, err := mockroute.MatchSubset(expected, r.Body)
	if err != nil {
		r.t.Errorf("comparing body: %v\nbody: %s", err, r.Body)
		return r
	}
	for _, d := range diffs {
		r.t.Errorf("body mismatch: %s", d)
	}
	return r
}
