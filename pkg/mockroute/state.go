package mockroute

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Snapshot returns the table as a RuleFile, oldest rule first.
func (r *Registrar) Snapshot() any {
	return RuleFile{Rules: r.Rules()}
}

// LoadState replaces the table with the rules of a JSON RuleFile.
// Nothing changes if any rule is invalid or a binding refuses one.
func (r *Registrar) LoadState(data []byte) error {
	var f RuleFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decoding rules: %w", err)
	}
	for i := range f.Rules {
		f.Rules[i].Method = strings.ToUpper(f.Rules[i].Method)
		if err := f.Rules[i].Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	before, calls := r.entries, r.calls
	r.mu.Unlock()

	r.Reset()
	for _, rule := range f.Rules {
		if err := r.Register(rule); err != nil {
			r.mu.Lock()
			r.entries, r.calls = before, calls
			r.mu.Unlock()
			return err
		}
	}
	return nil
}

// History returns the dispatch log.
func (r *Registrar) History() any {
	return r.Calls()
}
