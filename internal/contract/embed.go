package contract

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed scenarios/*.yaml
var bundledScenarios embed.FS

//go:embed schemas/*.json
var bundledSchemas embed.FS

// Bundled returns the scenarios covering the JWT Pizza API.
func Bundled() ([]*Scenario, error) {
	return LoadFS(bundledScenarios, "scenarios")
}

// Schema returns a bundled JSON schema by name, with or without ".json".
func Schema(name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".json")
	data, err := fs.ReadFile(bundledSchemas, "schemas/"+name+".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q (known: %v)", name, SchemaNames())
	}
	return data, nil
}

// SchemaNames lists the bundled schemas.
func SchemaNames() []string {
	entries, _ := fs.ReadDir(bundledSchemas, "schemas")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}
