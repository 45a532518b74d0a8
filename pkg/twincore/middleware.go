package twincore

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Tuning is the part of the configuration that PATCH /admin/config may change
// while the server runs.
type Tuning struct {
	Latency  time.Duration
	FailRate float64
	Verbose  bool
}

// Middleware is the request chain every server mounts. It records traffic,
// slows and fails requests per the live Tuning, and applies injected faults.
type Middleware struct {
	tuning  atomic.Pointer[Tuning]
	logger  *slog.Logger
	metrics *Metrics

	Traffic *Traffic
	Faults  *FaultTable
}

// NewMiddleware seeds the live Tuning from cfg. metrics may be nil.
func NewMiddleware(cfg *Config, logger *slog.Logger, metrics *Metrics) *Middleware {
	m := &Middleware{
		logger:  logger,
		metrics: metrics,
		Traffic: NewTraffic(1000),
		Faults:  NewFaultTable(),
	}
	m.Tune(Tuning{Latency: cfg.Latency, FailRate: cfg.FailRate, Verbose: cfg.Verbose})
	return m
}

// Tuning returns the settings in effect.
func (m *Middleware) Tuning() Tuning {
	return *m.tuning.Load()
}

// Tune swaps in t for subsequent requests.
func (m *Middleware) Tune(t Tuning) {
	m.tuning.Store(&t)
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": "Accept, Authorization, Content-Type",
	"Access-Control-Max-Age":       "3600",
}

// CORS lets the pizza frontend, served from another origin, call the server.
// Preflights end here with 204.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders {
			w.Header().Set(k, v)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Observe records each exchange in Traffic and the metrics, and logs it at
// debug level. Headers are kept only in verbose mode.
func (m *Middleware) Observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		took := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ex := Exchange{
			Timestamp:  start,
			Method:     r.Method,
			Path:       r.URL.Path,
			Query:      r.URL.RawQuery,
			StatusCode: status,
			Duration:   took,
			RequestID:  chimw.GetReqID(r.Context()),
			Bearer:     strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "),
		}
		if m.Tuning().Verbose {
			ex.Headers = make(map[string]string, len(r.Header))
			for name := range r.Header {
				ex.Headers[name] = r.Header.Get(name)
			}
		}
		m.Traffic.Record(ex)
		if m.metrics != nil {
			m.metrics.ObserveRequest(r.Method, status, took)
		}
		m.logger.Debug("request",
			"method", ex.Method,
			"path", ex.Path,
			"status", status,
			"duration", took,
			"request_id", ex.RequestID,
		)
	})
}

// Slowdown delays each request by the tuned latency with 80-120% jitter.
func (m *Middleware) Slowdown(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if base := m.Tuning().Latency; base > 0 {
			time.Sleep(time.Duration(float64(base) * (0.8 + 0.4*rand.Float64())))
		}
		next.ServeHTTP(w, r)
	})
}

// Chaos fails a share of requests with 500, per the tuned fail rate.
func (m *Middleware) Chaos(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rate := m.Tuning().FailRate; rate > 0 && rand.Float64() < rate {
			Error(w, http.StatusInternalServerError, "simulated random failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FaultInjection answers requests that hit an injected fault. Only API routes
// mount it, so the admin plane stays reachable.
func (m *Middleware) FaultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := m.Faults.Check(r.Method, r.URL.Path)
		if f == nil {
			next.ServeHTTP(w, r)
			return
		}
		time.Sleep(f.Delay)
		if f.StatusCode == 0 {
			next.ServeHTTP(w, r)
			return
		}
		body := f.Body
		if body == "" {
			body = fmt.Sprintf(`{"message":"injected fault","code":%d}`, f.StatusCode)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.StatusCode)
		fmt.Fprint(w, body)
	})
}
