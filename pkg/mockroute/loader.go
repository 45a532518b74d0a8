package mockroute

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk format of a rule file:
//
//	rules:
//	  - name: login
//	    pattern: "*/**/api/auth"
//	    method: PUT
//	    body: {email: d@jwt.com, password: a}
//	    response: {token: abcdef}
type RuleFile struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// LoadRules parses a YAML (.yaml, .yml) or JSON (.json) rule file and validates every rule.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}

	var f RuleFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing rules %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing rules %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("rules %s: unsupported extension %q", path, ext)
	}

	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules %s: no rules defined", path)
	}
	for i := range f.Rules {
		f.Rules[i].Method = strings.ToUpper(f.Rules[i].Method)
		if err := f.Rules[i].Validate(); err != nil {
			return nil, fmt.Errorf("rules %s: %w", path, err)
		}
	}
	return f.Rules, nil
}

// LoadRulesDir loads every rule file in dir in lexical order.
// Later files override earlier ones for the same pattern once registered.
func LoadRulesDir(dir string) ([]Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading rules directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var rules []Rule
	for _, name := range names {
		rs, err := LoadRules(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		rules = append(rules, rs...)
	}
	return rules, nil
}
