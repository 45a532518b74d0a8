// Package client talks to the /admin/* endpoints of a running mock server
// or JWT Pizza twin.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// AdminClient talks to one server's admin plane.
type AdminClient struct {
	BaseURL string
	http    *http.Client
}

// New creates an AdminClient for baseURL with a 5-second timeout.
func New(baseURL string) *AdminClient {
	return &AdminClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// StatusError is a non-2xx admin response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Status, e.Body)
}

// do sends a request and returns the trimmed response body.
func (c *AdminClient) do(ctx context.Context, op, method, path string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	text := strings.TrimSpace(string(data))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Op: op, Status: resp.StatusCode, Body: text}
	}
	return text, nil
}

func (c *AdminClient) send(ctx context.Context, op, method, path string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%s: encoding body: %w", op, err)
	}
	return c.do(ctx, op, method, path, data)
}

// Health checks GET /admin/health. Returns (ok, response body or error message).
func (c *AdminClient) Health(ctx context.Context) (bool, string) {
	body, err := c.do(ctx, "health", http.MethodGet, "/admin/health", nil)
	if err != nil {
		return false, err.Error()
	}
	return true, body
}

// Reset calls POST /admin/reset.
func (c *AdminClient) Reset(ctx context.Context) (string, error) {
	return c.do(ctx, "reset", http.MethodPost, "/admin/reset", nil)
}

// State returns GET /admin/state.
func (c *AdminClient) State(ctx context.Context) (string, error) {
	return c.do(ctx, "state", http.MethodGet, "/admin/state", nil)
}

// LoadState POSTs the contents of a JSON file to /admin/state.
func (c *AdminClient) LoadState(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("reading state file: %w", err)
	}
	return c.do(ctx, "load state", http.MethodPost, "/admin/state", data)
}

// History returns GET /admin/history.
func (c *AdminClient) History(ctx context.Context) (string, error) {
	return c.do(ctx, "history", http.MethodGet, "/admin/history", nil)
}

// Requests returns GET /admin/requests.
func (c *AdminClient) Requests(ctx context.Context) (string, error) {
	return c.do(ctx, "requests", http.MethodGet, "/admin/requests", nil)
}

// Fault is the body of POST /admin/fault/{path}.
type Fault struct {
	Method     string        `json:"method,omitempty"`
	StatusCode int           `json:"status_code"`
	Body       string        `json:"body,omitempty"`
	Delay      time.Duration `json:"-"`
	Rate       float64       `json:"rate"`
}

// MarshalJSON sends Delay as whole milliseconds under "delay_ms".
func (f Fault) MarshalJSON() ([]byte, error) {
	type wire Fault
	return json.Marshal(struct {
		wire
		DelayMS int64 `json:"delay_ms,omitempty"`
	}{wire(f), f.Delay.Milliseconds()})
}

// InjectFault makes the server fail requests to path.
func (c *AdminClient) InjectFault(ctx context.Context, path string, f Fault) (string, error) {
	return c.send(ctx, "inject fault", http.MethodPost, faultPath(path), f)
}

// RemoveFault clears the fault on path.
func (c *AdminClient) RemoveFault(ctx context.Context, path string) (string, error) {
	return c.do(ctx, "remove fault", http.MethodDelete, faultPath(path), nil)
}

func faultPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/admin/fault/" + strings.Join(segments, "/")
}

// Faults returns GET /admin/faults.
func (c *AdminClient) Faults(ctx context.Context) (string, error) {
	return c.do(ctx, "faults", http.MethodGet, "/admin/faults", nil)
}

// Config returns GET /admin/config.
func (c *AdminClient) Config(ctx context.Context) (string, error) {
	return c.do(ctx, "config", http.MethodGet, "/admin/config", nil)
}

// UpdateConfig PATCHes /admin/config.
func (c *AdminClient) UpdateConfig(ctx context.Context, updates map[string]any) (string, error) {
	return c.send(ctx, "update config", http.MethodPatch, "/admin/config", updates)
}

// AdvanceTime moves the simulated clock forward by d.
func (c *AdminClient) AdvanceTime(ctx context.Context, d time.Duration) (string, error) {
	return c.send(ctx, "advance time", http.MethodPost, "/admin/time/advance", map[string]string{"duration": d.String()})
}
