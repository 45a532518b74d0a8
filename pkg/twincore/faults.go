package twincore

import (
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Fault makes requests to one path fail. Method narrows it to a single HTTP
// method; empty matches any. Rate is the chance of firing, 1 when unset.
// On the wire Delay is whole milliseconds under "delay_ms".
type Fault struct {
	Method     string        `json:"method,omitempty"`
	StatusCode int           `json:"status_code"`
	Body       string        `json:"body,omitempty"`
	Delay      time.Duration `json:"-"`
	Rate       float64       `json:"rate"`
}

type faultJSON struct {
	Method     string  `json:"method,omitempty"`
	StatusCode int     `json:"status_code"`
	Body       string  `json:"body,omitempty"`
	DelayMS    int64   `json:"delay_ms,omitempty"`
	Rate       float64 `json:"rate"`
}

func (f Fault) MarshalJSON() ([]byte, error) {
	return json.Marshal(faultJSON{
		Method:     f.Method,
		StatusCode: f.StatusCode,
		Body:       f.Body,
		DelayMS:    f.Delay.Milliseconds(),
		Rate:       f.Rate,
	})
}

func (f *Fault) UnmarshalJSON(data []byte) error {
	var w faultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*f = Fault{
		Method:     w.Method,
		StatusCode: w.StatusCode,
		Body:       w.Body,
		Delay:      time.Duration(w.DelayMS) * time.Millisecond,
		Rate:       w.Rate,
	}
	return nil
}

func (f Fault) fires() bool {
	return f.Rate >= 1 || rand.Float64() < f.Rate
}

// FaultTable maps request paths to injected faults.
type FaultTable struct {
	mu     sync.RWMutex
	faults map[string]Fault
}

// NewFaultTable returns an empty table.
func NewFaultTable() *FaultTable {
	return &FaultTable{faults: map[string]Fault{}}
}

// FaultKey normalizes a path so "/api/order/" and "api/order" share a fault.
func FaultKey(path string) string {
	return "/" + strings.Trim(path, "/")
}

// Set installs f on path, replacing any earlier fault there.
func (ft *FaultTable) Set(path string, f Fault) {
	if f.Rate == 0 {
		f.Rate = 1
	}
	f.Method = strings.ToUpper(f.Method)
	ft.mu.Lock()
	ft.faults[FaultKey(path)] = f
	ft.mu.Unlock()
}

// Remove deletes the fault on path and reports whether there was one.
func (ft *FaultTable) Remove(path string) bool {
	key := FaultKey(path)
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if _, ok := ft.faults[key]; !ok {
		return false
	}
	delete(ft.faults, key)
	return true
}

// Check returns the fault a method/path request should suffer, or nil.
func (ft *FaultTable) Check(method, path string) *Fault {
	ft.mu.RLock()
	f, ok := ft.faults[FaultKey(path)]
	ft.mu.RUnlock()
	if !ok || (f.Method != "" && !strings.EqualFold(f.Method, method)) || !f.fires() {
		return nil
	}
	return &f
}

// All returns a copy of the table.
func (ft *FaultTable) All() map[string]Fault {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	out := make(map[string]Fault, len(ft.faults))
	for path, f := range ft.faults {
		out[path] = f
	}
	return out
}

// Reset removes every fault.
func (ft *FaultTable) Reset() {
	ft.mu.Lock()
	clear(ft.faults)
	ft.mu.Unlock()
}
