package twincore

import (
	"sync"
	"time"
)

// Exchange is one request as seen by the server, listed by /admin/requests.
type Exchange struct {
	Timestamp  time.Time         `json:"timestamp"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Query      string            `json:"query,omitempty"`
	StatusCode int               `json:"status_code"`
	Duration   time.Duration     `json:"duration_ns"`
	RequestID  string            `json:"request_id,omitempty"`
	Bearer     bool              `json:"bearer"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Traffic keeps the most recent exchanges in a fixed-size ring.
type Traffic struct {
	mu    sync.Mutex
	ring  []Exchange
	next  int
	count int
}

// NewTraffic returns a ring holding up to size exchanges.
func NewTraffic(size int) *Traffic {
	if size < 1 {
		size = 1
	}
	return &Traffic{ring: make([]Exchange, size)}
}

// Record stores ex, overwriting the oldest exchange once the ring is full.
func (t *Traffic) Record(ex Exchange) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ring[t.next] = ex
	t.next = (t.next + 1) % len(t.ring)
	if t.count < len(t.ring) {
		t.count++
	}
}

// Entries returns the held exchanges, oldest first.
func (t *Traffic) Entries() []Exchange {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Exchange, 0, t.count)
	start := (t.next - t.count + len(t.ring)) % len(t.ring)
	for i := 0; i < t.count; i++ {
		out = append(out, t.ring[(start+i)%len(t.ring)])
	}
	return out
}

// Len reports how many exchanges are held.
func (t *Traffic) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Clear drops every exchange.
func (t *Traffic) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.ring)
	t.next, t.count = 0, 0
}
