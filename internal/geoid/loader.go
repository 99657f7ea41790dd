// Copyright 2025 Shadow Atlas Contributors

package geoid

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shadowatlas/core/internal/boundary"
)

// fileFormat mirrors the on-disk YAML shape: one entry per (layer,
// jurisdiction), each carrying a literal id list. This is a data artifact,
// not code — see spec.md §4.2 and the Open Questions in §9: the exact
// per-jurisdiction tables are configuration, not something to bake in.
type fileFormat struct {
	Entries []fileEntry `yaml:"entries"`
}

type fileEntry struct {
	Layer        string   `yaml:"layer"`
	Jurisdiction string   `yaml:"jurisdiction"`
	AllowedHere  bool     `yaml:"allowed_here"`
	IDs          []string `yaml:"ids"`
}

// LoadFile reads a YAML GEOID registry file from path and returns a
// populated Registry.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geoid: reading registry file: %w", err)
	}

	var doc fileFormat
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("geoid: parsing registry file: %w", err)
	}

	reg := New()
	for _, e := range doc.Entries {
		reg.LoadEntry(boundary.Type(e.Layer), e.Jurisdiction, e.IDs, e.AllowedHere)
	}
	return reg, nil
}
