package twincore

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]any{"id": 4, "name": "New Store"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":4,"name":"New Store"}`, rec.Body.String())
}

func TestJSONNilBody(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "unknown user")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"unknown user"}`, rec.Body.String())
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

func TestParseFlagSet(t *testing.T) {
	fs := flag.NewFlagSet("pizza-twin", flag.ContinueOnError)
	cfg := ParseFlagSet(fs, "pizza-twin", []string{"-port", "3000", "-latency", "20ms", "-fail-rate", "0.25", "-verbose"})

	assert.Equal(t, "pizza-twin", cfg.Name)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 20*time.Millisecond, cfg.Latency)
	assert.Equal(t, 0.25, cfg.FailRate)
	assert.True(t, cfg.Verbose)
}

func TestParseFlagSetPortFromEnv(t *testing.T) {
	t.Setenv("PORT", "4100")
	fs := flag.NewFlagSet("pizza-twin", flag.ContinueOnError)
	cfg := ParseFlagSet(fs, "pizza-twin", nil)

	assert.Equal(t, 4100, cfg.Port)
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	cfg := &Config{Port: 9999, Name: "test-server"}
	srv := New(cfg)

	require.NotNil(t, srv)
	assert.Same(t, cfg, srv.Config)
	assert.NotNil(t, srv.Router)
	assert.NotNil(t, srv.Logger)
	assert.NotNil(t, srv.Metrics)
	assert.NotNil(t, srv.Middleware())
}

func TestServeHTTP(t *testing.T) {
	srv := New(&Config{Name: "test-server"})
	srv.Router.Get("/api/order/menu", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, []map[string]any{{"id": 1, "title": "Veggie"}})
	})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/order/menu", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"title":"Veggie"}]`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := New(&Config{Name: "metrics-server"})
	srv.Router.Get("/api/franchise", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, []any{})
	})
	srv.Metrics.ObserveDispatch("fulfilled")

	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/franchise")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	text := string(body)
	assert.Contains(t, text, `pizza_http_requests_total{code="200",method="GET",server="metrics-server"} 1`)
	assert.Contains(t, text, `pizza_mock_dispatch_total{outcome="fulfilled",server="metrics-server"} 1`)
}

// ---------------------------------------------------------------------------
// Runtime config
// ---------------------------------------------------------------------------

func TestUpdateConfig(t *testing.T) {
	srv := New(&Config{Name: "cfg-server", Port: 3000})
	assert.False(t, srv.Logger.Enabled(context.Background(), slog.LevelDebug))

	require.NoError(t, srv.UpdateConfig(map[string]any{
		"latency":   "15ms",
		"fail_rate": 0.5,
		"verbose":   true,
	}))

	got := srv.GetConfig()
	assert.Equal(t, "15ms", got["latency"])
	assert.Equal(t, 0.5, got["fail_rate"])
	assert.Equal(t, true, got["verbose"])
	assert.Equal(t, 3000, got["port"])
	assert.True(t, srv.Logger.Enabled(context.Background(), slog.LevelDebug))
	assert.Equal(t, 15*time.Millisecond, srv.Middleware().Tuning().Latency)
}

func TestUpdateConfigRejects(t *testing.T) {
	srv := New(&Config{Name: "cfg-server"})

	cases := []struct {
		name    string
		updates map[string]any
		want    string
	}{
		{"bad latency type", map[string]any{"latency": 10}, "duration string"},
		{"bad latency", map[string]any{"latency": "soon"}, "invalid latency"},
		{"negative latency", map[string]any{"latency": "-1s"}, "negative"},
		{"fail rate range", map[string]any{"fail_rate": 1.5}, "between"},
		{"verbose type", map[string]any{"verbose": "yes"}, "boolean"},
		{"immutable port", map[string]any{"port": 1}, "cannot be changed"},
		{"unknown key", map[string]any{"colour": "red"}, "unknown config key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := srv.UpdateConfig(tc.updates)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.want), err.Error())
		})
	}

	// nothing applied after a rejected batch
	err := srv.UpdateConfig(map[string]any{"fail_rate": 0.2, "latency": "nope"})
	require.Error(t, err)
	assert.Equal(t, 0.0, srv.GetConfig()["fail_rate"])
}
