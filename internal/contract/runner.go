package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pf274/jwt-pizza/internal/ident"
)

// StepResult records the outcome of a single step.
type StepResult struct {
	Name     string
	Passed   bool
	Duration time.Duration
	Error    string // empty when passed
}

// Result records the outcome of an entire scenario.
type Result struct {
	ScenarioName string
	Passed       bool
	Steps        []StepResult
	Duration     time.Duration
}

// Failed returns the failing steps.
func (r *Result) Failed() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if !s.Passed {
			out = append(out, s)
		}
	}
	return out
}

// Runner executes scenarios against one backend.
type Runner struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *slog.Logger
	// Schemas resolves Assert.Schema names. Defaults to the bundled schemas.
	Schemas func(name string) ([]byte, error)
}

// NewRunner creates a Runner for the backend at baseURL.
func NewRunner(baseURL string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Logger:  logger,
		Schemas: Schema,
	}
}

// Run executes a scenario. Steps keep running after a failure so one run
// reports every broken endpoint; the error is only for setup failures.
// Besides base_url, every run gets fresh random_id, random_email,
// random_name and random_password variables.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	start := time.Now()
	result := &Result{ScenarioName: s.Name, Passed: true}

	vars := map[string]string{
		"base_url":        r.BaseURL,
		"random_id":       ident.RandomID(),
		"random_email":    ident.RandomEmail(""),
		"random_name":     ident.RandomName("diner"),
		"random_password": ident.RandomPassword(),
	}
	for k, v := range s.Variables {
		vars[k] = v
	}

	if s.Setup != nil {
		if err := r.runSetup(ctx, s.Setup); err != nil {
			return nil, fmt.Errorf("setup failed: %w", err)
		}
	}

	for i := range s.Steps {
		sr := r.runStep(ctx, &s.Steps[i], vars)
		result.Steps = append(result.Steps, sr)
		if !sr.Passed {
			result.Passed = false
			r.Logger.Warn("step failed", "scenario", s.Name, "step", sr.Name, "error", sr.Error)
		} else {
			r.Logger.Debug("step passed", "scenario", s.Name, "step", sr.Name, "duration", sr.Duration)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// RunAll runs scenarios in order and reports whether all passed.
func (r *Runner) RunAll(ctx context.Context, scenarios []*Scenario) ([]*Result, bool, error) {
	passed := true
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		res, err := r.Run(ctx, s)
		if err != nil {
			return results, false, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		results = append(results, res)
		passed = passed && res.Passed
	}
	return results, passed, nil
}

func (r *Runner) runSetup(ctx context.Context, setup *Setup) error {
	if setup.Reset {
		if err := r.admin(ctx, "/admin/reset", nil); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if setup.State != nil {
		data, err := json.Marshal(setup.State)
		if err != nil {
			return fmt.Errorf("encoding state: %w", err)
		}
		if err := r.admin(ctx, "/admin/state", data); err != nil {
			return fmt.Errorf("load state: %w", err)
		}
	}
	return nil
}

func (r *Runner) admin(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step *Step, vars map[string]string) StepResult {
	start := time.Now()
	sr := StepResult{Name: step.Name}
	if err := r.doStep(ctx, step, vars); err != nil {
		sr.Error = err.Error()
	} else {
		sr.Passed = true
	}
	sr.Duration = time.Since(start)
	return sr
}

func (r *Runner) doStep(ctx context.Context, step *Step, vars map[string]string) error {
	path, err := ExpandTemplates(step.Request.Path, vars)
	if err != nil {
		return fmt.Errorf("template expansion in path: %w", err)
	}
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = r.BaseURL + path
	}

	var reqBody io.Reader
	if step.Request.Body != nil {
		data, err := r.buildBody(step.Request.Body, vars)
		if err != nil {
			return fmt.Errorf("building request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(step.Request.Method), url, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if step.Request.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if step.Request.Token != "" {
		token, err := ExpandTemplates(step.Request.Token, vars)
		if err != nil {
			return fmt.Errorf("template expansion in token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range step.Request.Headers {
		expanded, err := ExpandTemplates(v, vars)
		if err != nil {
			return fmt.Errorf("template expansion in header %q: %w", k, err)
		}
		req.Header.Set(k, expanded)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	// assertions run before capture so a failed status reports as such
	if step.Assert != nil {
		if err := r.runAssertions(step.Assert, resp, respBody, vars); err != nil {
			return err
		}
	}
	for name, expr := range step.Capture {
		val, err := ExtractJSONPath(respBody, expr)
		if err != nil {
			return fmt.Errorf("capture %q: %w", name, err)
		}
		vars[name] = fmt.Sprint(val)
	}
	return nil
}

func (r *Runner) buildBody(body any, vars map[string]string) ([]byte, error) {
	if s, ok := body.(string); ok {
		expanded, err := ExpandTemplates(s, vars)
		return []byte(expanded), err
	}
	expanded, err := expandValue(body, vars)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("marshaling body: %w", err)
	}
	return data, nil
}

func (r *Runner) runAssertions(a *Assert, resp *http.Response, body []byte, vars map[string]string) error {
	if a.Status != 0 && resp.StatusCode != a.Status {
		return fmt.Errorf("expected status %d, got %d: %s", a.Status, resp.StatusCode, truncate(body))
	}
	if a.BodyContains != "" && !strings.Contains(string(body), a.BodyContains) {
		return fmt.Errorf("body does not contain %q", a.BodyContains)
	}
	for key, expected := range a.Headers {
		if actual := resp.Header.Get(key); actual != expected {
			return fmt.Errorf("header %q: expected %q, got %q", key, expected, actual)
		}
	}
	if len(a.Body) > 0 {
		expanded := make(map[string]any, len(a.Body))
		for path, expected := range a.Body {
			v, err := expandValue(expected, vars)
			if err != nil {
				return fmt.Errorf("template expansion in assertion %q: %w", path, err)
			}
			expanded[path] = v
		}
		if err := EvaluateBodyAssertions(body, expanded); err != nil {
			return err
		}
	}
	if a.Match != nil {
		expected, err := expandValue(a.Match, vars)
		if err != nil {
			return fmt.Errorf("template expansion in match: %w", err)
		}
		if err := MatchBody(body, expected); err != nil {
			return err
		}
	}
	if a.Schema != "" {
		schema, err := r.Schemas(a.Schema)
		if err != nil {
			return err
		}
		if err := ValidateSchema(body, schema); err != nil {
			return fmt.Errorf("schema %s: %w", a.Schema, err)
		}
	}
	return nil
}

func truncate(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
