package models

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios/*.yaml
var builtinScenarios embed.FS

const scenarioExt = ".yaml"

// BuiltinScenarios returns the scenarios compiled into the binary, ordered by ID.
func BuiltinScenarios() ([]Scenario, error) {
	return loadFS(builtinScenarios, "scenarios")
}

// LoadCatalog returns the built-in scenarios plus every scenario file found in
// dir. A file whose ID matches a built-in replaces it. An empty dir yields the
// built-ins only.
func LoadCatalog(dir string) ([]Scenario, error) {
	builtins, err := BuiltinScenarios()
	if err != nil {
		return nil, fmt.Errorf("load built-in scenarios: %w", err)
	}
	if dir == "" {
		return builtins, nil
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return builtins, nil
	}

	extra, err := loadFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, fmt.Errorf("load scenarios from %s: %w", dir, err)
	}
	return merge(builtins, extra), nil
}

// LoadScenario reads a single scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScenario(data, filepath.Base(path))
}

// FindScenario looks up a scenario by ID.
func FindScenario(scenarios []Scenario, id string) (*Scenario, bool) {
	for i := range scenarios {
		if scenarios[i].ID == id {
			return &scenarios[i], true
		}
	}
	return nil, false
}

func loadFS(fsys fs.FS, dir string) ([]Scenario, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var scenarios []Scenario
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != scenarioExt {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, entry.Name())))
		if err != nil {
			return nil, err
		}
		s, err := parseScenario(data, entry.Name())
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, *s)
	}
	sortByID(scenarios)
	return scenarios, nil
}

func parseScenario(data []byte, name string) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if s.ID == "" {
		s.ID = strings.TrimSuffix(name, scenarioExt)
	}
	return &s, nil
}

func merge(base, overrides []Scenario) []Scenario {
	out := slices.Clone(base)
	for _, o := range overrides {
		if i := slices.IndexFunc(out, func(s Scenario) bool { return s.ID == o.ID }); i >= 0 {
			out[i] = o
			continue
		}
		out = append(out, o)
	}
	sortByID(out)
	return out
}

func sortByID(scenarios []Scenario) {
	slices.SortFunc(scenarios, func(a, b Scenario) int {
		return strings.Compare(a.ID, b.ID)
	})
}
