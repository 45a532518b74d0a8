package contract

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a scenario. name selects the format by extension.
func Parse(name string, data []byte) (*Scenario, error) {
	var s Scenario
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %w", name, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("scenario %s: unsupported extension %q", name, ext)
	}

	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", name)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one step is required", name)
	}
	for i, step := range s.Steps {
		if step.Request.Method == "" || step.Request.Path == "" {
			return nil, fmt.Errorf("scenario %s: step %d (%s): method and path are required", name, i+1, step.Name)
		}
	}
	s.Source = name
	return &s, nil
}

// Load reads one scenario file.
func Load(file string) (*Scenario, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", file, err)
	}
	return Parse(file, data)
}

// LoadDir loads every scenario file in dir, in file name order.
func LoadDir(dir string) ([]*Scenario, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS loads every scenario file in dir of fsys, in file name order.
func LoadFS(fsys fs.FS, dir string) ([]*Scenario, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() || !isScenarioFile(entry.Name()) {
			continue
		}
		name := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading scenario %s: %w", name, err)
		}
		s, err := Parse(name, data)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func isScenarioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
