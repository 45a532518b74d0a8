// Package mockroute intercepts outbound HTTP calls by URL pattern, checks each
// request against an expected method, header and body shape, and answers with a
// canned response without touching the network.
//
// Rules live in a Registrar: an ordered table keyed by pattern. Registering a
// pattern again replaces its rule and makes it the newest entry, and dispatch
// always prefers the newest matching pattern. The table is bound to a host by
// one of the adapters in this package: an http.RoundTripper, an http.Handler,
// a Playwright page or context, or a Chrome DevTools session.
package mockroute

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reporter receives contract failures. *testing.T satisfies it.
type Reporter interface {
	Helper()
	Errorf(format string, args ...any)
}

// Call records one dispatched request.
type Call struct {
	ID        string    `json:"id"`
	Rule      string    `json:"rule,omitempty"`
	Pattern   string    `json:"pattern,omitempty"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Status    int       `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type entry struct {
	rule Rule
	hits int
}

// watcher is a host binding plus the patterns it already routes. A host route
// outlives Reset, so a pattern is bound at most once per watcher.
type watcher struct {
	bind  func(pattern string) error
	bound map[string]bool
}

// Registrar is the per-context routing table. It is safe for concurrent use.
type Registrar struct {
	mu       sync.RWMutex
	entries  []*entry // oldest first
	calls    []Call
	watchers []*watcher
}

// NewRegistrar returns an empty table.
func NewRegistrar() *Registrar {
	return &Registrar{}
}

// Register adds rule, replacing any rule with the same pattern.
// Watchers are notified of patterns they have not bound yet. If a watcher
// fails, the table is put back as it was and the error returned.
func (r *Registrar) Register(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	added := &entry{rule: rule}
	var prev *entry
	prevAt := -1
	for i, e := range r.entries {
		if e.rule.Pattern == rule.Pattern {
			prev, prevAt = e, i
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.entries = append(r.entries, added)
	pending := r.claim(rule.Pattern)
	r.mu.Unlock()

	for i, w := range pending {
		if err := w.bind(rule.Pattern); err != nil {
			r.mu.Lock()
			for _, u := range pending[i:] {
				delete(u.bound, rule.Pattern)
			}
			r.rollback(added, prev, prevAt)
			r.mu.Unlock()
			return fmt.Errorf("binding %s: %w", rule, err)
		}
	}
	return nil
}

// claim marks pattern bound on every watcher still missing it and returns
// those watchers. Must be called with r.mu held.
func (r *Registrar) claim(pattern string) []*watcher {
	var out []*watcher
	for _, w := range r.watchers {
		if !w.bound[pattern] {
			w.bound[pattern] = true
			out = append(out, w)
		}
	}
	return out
}

// rollback removes added and puts prev back at its old position.
// Must be called with r.mu held.
func (r *Registrar) rollback(added, prev *entry, prevAt int) {
	for i, e := range r.entries {
		if e == added {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	if prev == nil {
		return
	}
	prevAt = min(prevAt, len(r.entries))
	r.entries = append(r.entries[:prevAt], append([]*entry{prev}, r.entries[prevAt:]...)...)
}

// MustRegister registers every rule and panics on the first invalid one.
func (r *Registrar) MustRegister(rules ...Rule) {
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
}

// Watch calls fn for every pattern already registered and for every pattern
// registered afterwards that fn has not seen. Bindings use it to install
// host routes.
func (r *Registrar) Watch(fn func(pattern string) error) error {
	w := &watcher{bind: fn, bound: map[string]bool{}}
	r.mu.Lock()
	r.watchers = append(r.watchers, w)
	patterns := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		w.bound[e.rule.Pattern] = true
		patterns = append(patterns, e.rule.Pattern)
	}
	r.mu.Unlock()

	for _, p := range patterns {
		if err := fn(p); err != nil {
			r.mu.Lock()
			delete(w.bound, p)
			r.mu.Unlock()
			return err
		}
	}
	return nil
}

// Rules returns the registered rules, oldest first.
func (r *Registrar) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.rule
	}
	return out
}

// Lookup returns the rule registered for exactly pattern.
func (r *Registrar) Lookup(pattern string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.rule.Pattern == pattern {
			return e.rule, true
		}
	}
	return Rule{}, false
}

// Hits returns how many requests the rule for pattern has answered.
func (r *Registrar) Hits(pattern string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.rule.Pattern == pattern {
			return e.hits
		}
	}
	return 0
}

// Calls returns a copy of the dispatch log.
func (r *Registrar) Calls() []Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset discards every rule and the dispatch log. Watchers stay attached
// and keep the routes they installed; those answer ErrNoRoute until the
// pattern is registered again.
func (r *Registrar) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.calls = nil
}

// Dispatch answers req from the newest rule whose pattern matches its URL.
// It returns ErrNoRoute when nothing matches and a *MismatchError when the
// matching rule rejects the request.
func (r *Registrar) Dispatch(req *Request) (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if Match(r.entries[i].rule.Pattern, req.URL) {
			return r.answer(r.entries[i], req)
		}
	}
	r.record(Call{Method: req.Method, URL: req.URL, Error: ErrNoRoute.Error()})
	return nil, ErrNoRoute
}

// DispatchPattern answers req from the rule registered for exactly pattern.
// Hosts that do their own URL matching (Playwright) call this.
func (r *Registrar) DispatchPattern(pattern string, req *Request) (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].rule.Pattern == pattern {
			return r.answer(r.entries[i], req)
		}
	}
	r.record(Call{Pattern: pattern, Method: req.Method, URL: req.URL, Error: ErrNoRoute.Error()})
	return nil, ErrNoRoute
}

// answer must be called with r.mu held.
func (r *Registrar) answer(e *entry, req *Request) (*Response, error) {
	call := Call{Rule: e.rule.String(), Pattern: e.rule.Pattern, Method: req.Method, URL: req.URL}
	if err := e.rule.Check(req); err != nil {
		call.Error = err.Error()
		r.record(call)
		return nil, err
	}
	resp, err := e.rule.Respond()
	if err != nil {
		call.Error = err.Error()
		r.record(call)
		return nil, err
	}
	e.hits++
	call.Status = resp.Status
	r.record(call)
	return resp, nil
}

func (r *Registrar) record(c Call) {
	c.ID = uuid.NewString()
	c.Timestamp = time.Now()
	r.calls = append(r.calls, c)
}
