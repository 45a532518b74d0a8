package twincore

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// ---------------------------------------------------------------------------
// Traffic ring
// ---------------------------------------------------------------------------

func TestTrafficKeepsNewest(t *testing.T) {
	tr := NewTraffic(3)
	for _, p := range []string{"/a", "/b", "/c", "/d", "/e"} {
		tr.Record(Exchange{Path: p})
	}

	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"/c", "/d", "/e"}, []string{entries[0].Path, entries[1].Path, entries[2].Path})
	assert.Equal(t, 3, tr.Len())

	entries[0].Path = "/mutated"
	assert.Equal(t, "/c", tr.Entries()[0].Path)

	tr.Clear()
	assert.Empty(t, tr.Entries())
	tr.Record(Exchange{Path: "/f"})
	assert.Equal(t, "/f", tr.Entries()[0].Path)
}

func TestTrafficPartiallyFilled(t *testing.T) {
	tr := NewTraffic(4)
	tr.Record(Exchange{Path: "/api/auth"})
	tr.Record(Exchange{Path: "/api/order"})

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "/api/auth", entries[0].Path)
}

// ---------------------------------------------------------------------------
// FaultTable
// ---------------------------------------------------------------------------

func TestFaultTable(t *testing.T) {
	ft := NewFaultTable()
	ft.Set("/api/order", Fault{StatusCode: 500})

	f := ft.Check(http.MethodPost, "/api/order/")
	require.NotNil(t, f)
	assert.Equal(t, 500, f.StatusCode)
	assert.Equal(t, 1.0, f.Rate)
	assert.Nil(t, ft.Check(http.MethodGet, "/api/franchise"))

	all := ft.All()
	all["/api/order"] = Fault{StatusCode: 200}
	assert.Equal(t, 500, ft.All()["/api/order"].StatusCode)

	assert.True(t, ft.Remove("api/order"))
	assert.False(t, ft.Remove("/api/order"))

	ft.Set("/x", Fault{StatusCode: 503})
	ft.Reset()
	assert.Empty(t, ft.All())
}

func TestFaultTableMethodFilter(t *testing.T) {
	ft := NewFaultTable()
	ft.Set("/api/auth", Fault{StatusCode: 500, Method: "put"})

	assert.NotNil(t, ft.Check(http.MethodPut, "/api/auth"))
	assert.Nil(t, ft.Check(http.MethodDelete, "/api/auth"))
	assert.Equal(t, "PUT", ft.All()["/api/auth"].Method)
}

func TestFaultKey(t *testing.T) {
	assert.Equal(t, "/api/order", FaultKey("api/order/"))
	assert.Equal(t, "/", FaultKey(""))
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestCORSPreflight(t *testing.T) {
	mw := NewMiddleware(&Config{}, slog.Default(), nil)

	called := false
	handler := mw.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/auth", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestObserve(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry(), "test")
	mw := NewMiddleware(&Config{Verbose: true}, slog.Default(), metrics)
	handler := chimw.RequestID(mw.Observe(okHandler(http.StatusCreated)))

	req := httptest.NewRequest("POST", "/api/franchise", nil)
	req.Header.Set("Authorization", "Bearer abcdef")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := mw.Traffic.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "POST", entries[0].Method)
	assert.Equal(t, "/api/franchise", entries[0].Path)
	assert.Equal(t, http.StatusCreated, entries[0].StatusCode)
	assert.NotEmpty(t, entries[0].RequestID)
	assert.Equal(t, "Bearer abcdef", entries[0].Headers["Authorization"])
	assert.True(t, entries[0].Bearer)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("POST", "201")))
}

func TestObserveQuiet(t *testing.T) {
	mw := NewMiddleware(&Config{}, slog.Default(), nil)
	mw.Observe(okHandler(http.StatusOK)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	entries := mw.Traffic.Entries()
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Headers)
}

func TestSlowdown(t *testing.T) {
	mw := NewMiddleware(&Config{Latency: 20 * time.Millisecond}, slog.Default(), nil)

	start := time.Now()
	mw.Slowdown(okHandler(http.StatusOK)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.GreaterOrEqual(t, time.Since(start), 16*time.Millisecond)
}

func TestChaos(t *testing.T) {
	mw := NewMiddleware(&Config{FailRate: 1.0}, slog.Default(), nil)

	rec := httptest.NewRecorder()
	mw.Chaos(okHandler(http.StatusOK)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"simulated random failure"}`, rec.Body.String())
}

func TestFaultInjection(t *testing.T) {
	mw := NewMiddleware(&Config{}, slog.Default(), nil)
	mw.Faults.Set("/api/order", Fault{StatusCode: 503})
	mw.Faults.Set("/api/auth", Fault{StatusCode: 404, Body: `{"message":"unknown user"}`})
	handler := mw.FaultInjection(okHandler(http.StatusOK))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/order", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"message":"injected fault","code":503}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/auth", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, `{"message":"unknown user"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/franchise", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFaultDelayOnlyPassesThrough(t *testing.T) {
	mw := NewMiddleware(&Config{}, slog.Default(), nil)
	mw.Faults.Set("/api/order/menu", Fault{Delay: 10 * time.Millisecond})

	rec := httptest.NewRecorder()
	start := time.Now()
	mw.FaultInjection(okHandler(http.StatusOK)).ServeHTTP(rec, httptest.NewRequest("GET", "/api/order/menu", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestTuneTakesEffect(t *testing.T) {
	mw := NewMiddleware(&Config{FailRate: 1}, slog.Default(), nil)
	handler := mw.Chaos(okHandler(http.StatusOK))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	mw.Tune(Tuning{})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFaultJSONUsesMilliseconds(t *testing.T) {
	var f Fault
	require.NoError(t, json.Unmarshal([]byte(`{"status_code":503,"delay_ms":300,"method":"GET"}`), &f))
	assert.Equal(t, 300*time.Millisecond, f.Delay)
	assert.Equal(t, http.MethodGet, f.Method)

	data, err := json.Marshal(Fault{StatusCode: 500, Delay: 1500 * time.Millisecond, Rate: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status_code":500,"delay_ms":1500,"rate":1}`, string(data))
}
