package mockroute

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pf274/jwt-pizza/pkg/twincore"
)

// Outcome labels passed to a Handler's observer.
const (
	OutcomeFulfilled = "fulfilled"
	OutcomeMismatch  = "mismatch"
	OutcomeUnmatched = "unmatched"
	OutcomeError     = "error"
)

// Handler serves a Registrar over HTTP, so a browser app can be pointed at
// a mock server instead of being intercepted in-process.
//
// Unmatched requests get 404. Contract mismatches get 417 with the
// differences and the diff in the body, and are logged at error level. A rule
// that cannot render its response gets 500.
type Handler struct {
	routes  *Registrar
	logger  *slog.Logger
	observe func(outcome string)
}

// NewHandler creates a Handler. observe may be nil.
func NewHandler(routes *Registrar, logger *slog.Logger, observe func(outcome string)) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if observe == nil {
		observe = func(string) {}
	}
	return &Handler{routes: routes, logger: logger, observe: observe}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		twincore.Error(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	req := &Request{
		Method:  r.Method,
		URL:     scheme + "://" + r.Host + r.URL.RequestURI(),
		Headers: r.Header.Clone(),
		Body:    body,
	}

	resp, err := h.routes.Dispatch(req)
	var mismatch *MismatchError
	switch {
	case errors.As(err, &mismatch):
		h.observe(OutcomeMismatch)
		h.logger.Error("contract mismatch",
			"rule", mismatch.Rule.String(),
			"method", req.Method,
			"url", req.URL,
			"differences", len(mismatch.Differences),
		)
		twincore.JSON(w, http.StatusExpectationFailed, map[string]any{
			"message":     "request does not match rule " + mismatch.Rule.String(),
			"differences": mismatch.Differences,
			"diff":        mismatch.Diff,
		})
		return
	case errors.Is(err, ErrNoRoute):
		h.observe(OutcomeUnmatched)
		h.logger.Warn("no route", "method", req.Method, "url", req.URL)
		twincore.Error(w, http.StatusNotFound, "no mock route for "+req.Method+" "+r.URL.Path)
		return
	case err != nil:
		h.observe(OutcomeError)
		h.logger.Error("dispatch failed", "method", req.Method, "url", req.URL, "error", err)
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.observe(OutcomeFulfilled)
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}
