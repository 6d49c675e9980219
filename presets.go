package main

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/buffos/go-weave/weave"
)

//go:embed presets/*.json
var presetFS embed.FS

// listPresets returns the embedded pattern names, sorted.
func listPresets() []string {
	entries, err := presetFS.ReadDir("presets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}

// loadPreset decodes one embedded command log.
func loadPreset(name string) ([]weave.Record, error) {
	data, err := presetFS.ReadFile(path.Join("presets", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("unknown preset '%s' (have %s)", name, strings.Join(listPresets(), ", "))
	}
	return weave.UnmarshalLog(data)
}
