// Package testutil drives a JWT Pizza server from Go tests: a client that
// remembers its bearer token, fluent response assertions and a wrapper for
// the /admin plane.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Client sends JSON requests to one server under test. Failures to reach the
// server end the test; bad responses are left to the Response assertions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	token      string
	t          testing.TB
}

// NewClient points a client at an httptest server.
func NewClient(t testing.TB, server *httptest.Server) *Client {
	return &Client{BaseURL: server.URL, HTTPClient: server.Client(), t: t}
}

// Dial points a client at a server that is already listening on baseURL.
func Dial(t testing.TB, baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: &http.Client{}, t: t}
}

// WithToken returns a copy that sends "Authorization: Bearer token".
func (c *Client) WithToken(token string) *Client {
	authed := *c
	authed.token = token
	return &authed
}

// Login signs in through PUT /api/auth and returns a client holding the
// issued token. Anything but a 200 with a token fails the test.
func (c *Client) Login(email, password string) *Client {
	c.t.Helper()
	var auth struct {
		Token string `json:"token"`
	}
	c.Put("/api/auth", map[string]string{"email": email, "password": password}).
		AssertStatus(http.StatusOK).
		JSON(&auth)
	if auth.Token == "" {
		c.t.Fatalf("login as %s returned no token", email)
	}
	return c.WithToken(auth.Token)
}

func (c *Client) Get(path string) *Response {
	c.t.Helper()
	return c.send(http.MethodGet, path, nil, nil)
}

func (c *Client) Post(path string, body any) *Response {
	c.t.Helper()
	return c.send(http.MethodPost, path, body, nil)
}

func (c *Client) Put(path string, body any) *Response {
	c.t.Helper()
	return c.send(http.MethodPut, path, body, nil)
}

func (c *Client) Patch(path string, body any) *Response {
	c.t.Helper()
	return c.send(http.MethodPatch, path, body, nil)
}

func (c *Client) Delete(path string) *Response {
	c.t.Helper()
	return c.send(http.MethodDelete, path, nil, nil)
}

// DoWithHeaders sends a request with extra headers, which win over the
// client's own Authorization.
func (c *Client) DoWithHeaders(method, path string, body any, headers map[string]string) *Response {
	c.t.Helper()
	return c.send(method, path, body, headers)
}

func (c *Client) encode(body any) io.Reader {
	c.t.Helper()
	if body == nil {
		return http.NoBody
	}
	data, err := json.Marshal(body)
	if err != nil {
		c.t.Fatalf("encoding request body: %v", err)
	}
	return bytes.NewReader(data)
}

func (c *Client) send(method, path string, body any, headers map[string]string) *Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.BaseURL+path, c.encode(body))
	if err != nil {
		c.t.Fatalf("building %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("reading %s %s: %v", method, path, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data, Headers: resp.Header, t: c.t}
}
