// Package admin mounts the /admin/* control plane shared by the JWT Pizza
// twin and the mock-route server.
//
// Tests drive a server through it: reset or replace what it holds, inject
// faults per path, read back the traffic it saw, retune latency and failure
// rates, and move the simulated clock.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pf274/jwt-pizza/pkg/store"
	"github.com/pf274/jwt-pizza/pkg/twincore"
)

// StateStore is what a server keeps in memory.
type StateStore interface {
	// Snapshot returns the full state as a JSON-serializable value.
	Snapshot() any
	// LoadState replaces the full state from a JSON body.
	LoadState(data []byte) error
	// Reset returns to the seed state.
	Reset()
}

// History is implemented by stores that log what they answered, such as the
// mock-route registrar.
type History interface {
	History() any
}

// Handler serves the admin endpoints for one server.
type Handler struct {
	state   StateStore
	srv     *twincore.Server
	clock   *store.Clock
	started time.Time
}

// NewHandler binds the admin plane to state and srv. clock may be nil, in
// which case time cannot be advanced.
func NewHandler(state StateStore, srv *twincore.Server, clock *store.Clock) *Handler {
	return &Handler{state: state, srv: srv, clock: clock, started: time.Now()}
}

// Routes mounts the admin endpoints on r under /admin.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Post("/reset", h.reset)

		r.Get("/state", h.snapshot)
		r.Post("/state", h.loadState)
		r.Get("/history", h.history)
		r.Get("/requests", h.requests)

		r.Get("/faults", h.faults)
		r.Post("/fault/*", h.injectFault)
		r.Delete("/fault/*", h.removeFault)

		r.Get("/config", h.config)
		r.Patch("/config", h.updateConfig)

		r.Get("/time", h.now)
		r.Post("/time/advance", h.advance)
	})
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, what string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		twincore.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %v", what, err))
		return false
	}
	return true
}

func status(w http.ResponseWriter, s string, extra ...any) {
	out := map[string]any{"status": s}
	for i := 0; i+1 < len(extra); i += 2 {
		out[extra[i].(string)] = extra[i+1]
	}
	twincore.JSON(w, http.StatusOK, out)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status(w, "ok", "name", h.srv.Config.Name, "uptime", time.Since(h.started).Round(time.Second).String())
}

// reset drops state, traffic, faults and clock offset in one go.
func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	h.state.Reset()
	h.srv.Middleware().Traffic.Clear()
	h.srv.Middleware().Faults.Reset()
	if h.clock != nil {
		h.clock.Reset()
	}
	h.srv.Logger.Info("state reset")
	status(w, "reset")
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.state.Snapshot())
}

func (h *Handler) loadState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = h.state.LoadState(body)
	}
	if err != nil {
		twincore.Error(w, http.StatusBadRequest, "failed to load state: "+err.Error())
		return
	}
	h.srv.Logger.Info("state loaded", "bytes", len(body))
	status(w, "loaded")
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if hist, ok := h.state.(History); ok {
		twincore.JSON(w, http.StatusOK, hist.History())
		return
	}
	twincore.JSON(w, http.StatusOK, []any{})
}

func (h *Handler) requests(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.srv.Middleware().Traffic.Entries())
}

func (h *Handler) faults(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.srv.Middleware().Faults.All())
}

// faultTarget turns /admin/fault/api/order into /api/order.
func faultTarget(r *http.Request) string {
	return twincore.FaultKey(chi.URLParam(r, "*"))
}

func checkFault(f twincore.Fault) error {
	switch {
	case f.Rate < 0 || f.Rate > 1:
		return errors.New("rate must be between 0.0 and 1.0")
	case f.StatusCode != 0 && (f.StatusCode < 100 || f.StatusCode > 599):
		return fmt.Errorf("status_code %d is not an HTTP status", f.StatusCode)
	case f.Delay < 0:
		return errors.New("delay must not be negative")
	case f.Method != "" && strings.ContainsAny(f.Method, " /"):
		return fmt.Errorf("bad method %q", f.Method)
	}
	return nil
}

func (h *Handler) injectFault(w http.ResponseWriter, r *http.Request) {
	var f twincore.Fault
	if !decode(w, r, "fault config", &f) {
		return
	}
	if err := checkFault(f); err != nil {
		twincore.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	path := faultTarget(r)
	h.srv.Middleware().Faults.Set(path, f)
	h.srv.Logger.Info("fault injected", "path", path, "status", f.StatusCode, "method", f.Method)
	status(w, "injected", "endpoint", path, "fault", f)
}

func (h *Handler) removeFault(w http.ResponseWriter, r *http.Request) {
	path := faultTarget(r)
	if !h.srv.Middleware().Faults.Remove(path) {
		twincore.Error(w, http.StatusNotFound, "no fault registered for "+path)
		return
	}
	status(w, "removed", "endpoint", path)
}

func (h *Handler) config(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.srv.GetConfig())
}

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if !decode(w, r, "config", &updates) {
		return
	}
	if err := h.srv.UpdateConfig(updates); err != nil {
		twincore.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.config(w, r)
}

func (h *Handler) now(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"real": time.Now().Format(time.RFC3339)}
	if h.clock != nil {
		out["simulated"] = h.clock.Now().Format(time.RFC3339)
		out["offset"] = h.clock.Offset().String()
	}
	twincore.JSON(w, http.StatusOK, out)
}

// advance moves the simulated clock, e.g. {"duration": "24h"} to age JWTs.
func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	if h.clock == nil {
		twincore.Error(w, http.StatusBadRequest, "simulated clock not configured")
		return
	}
	var req struct {
		Duration string `json:"duration"`
	}
	if !decode(w, r, "request", &req) {
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err == nil && d < 0 {
		err = errors.New("the clock only moves forward")
	}
	if err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid duration: "+err.Error())
		return
	}
	h.clock.Advance(d)
	status(w, "advanced", "offset", h.clock.Offset().String(), "simulated", h.clock.Now().Format(time.RFC3339))
}
