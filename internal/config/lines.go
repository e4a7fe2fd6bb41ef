package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mes-staging/internal/warehouse"
)

// LineWarehouses maps one production line to its warehouses.
type LineWarehouses struct {
	Staging           string   `yaml:"staging"`
	WIP               string   `yaml:"wip"`
	Target            string   `yaml:"target"`
	Scrap             string   `yaml:"scrap"`
	AllowedItemGroups []string `yaml:"allowed_item_groups"`
}

// LineSettings is the per-line file: defaults plus per-line overrides.
type LineSettings struct {
	Defaults LineWarehouses            `yaml:"defaults"`
	Lines    map[string]LineWarehouses `yaml:"lines"`
}

type WarehouseKind string

const (
	WarehouseStaging WarehouseKind = "staging"
	WarehouseWIP     WarehouseKind = "wip"
	WarehouseTarget  WarehouseKind = "target"
	WarehouseScrap   WarehouseKind = "scrap"
)

func LoadLines(path string) (LineSettings, error) {
	const op = "config.LoadLines"

	data, err := os.ReadFile(path)
	if err != nil {
		return LineSettings{}, fmt.Errorf("%s: %w", op, err)
	}

	var raw LineSettings
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return LineSettings{}, fmt.Errorf("%s: %w", op, err)
	}

	return NewLineSettings(raw.Defaults, raw.Lines), nil
}

// NewLineSettings re-keys lines by their normalized name.
func NewLineSettings(defaults LineWarehouses, lines map[string]LineWarehouses) LineSettings {
	keyed := make(map[string]LineWarehouses, len(lines))
	for name, row := range lines {
		keyed[warehouse.Normalize(name)] = row
	}
	return LineSettings{Defaults: defaults, Lines: keyed}
}

// ForLine returns the line's warehouses merged over the defaults.
func (s LineSettings) ForLine(line string) LineWarehouses {
	if s.Lines != nil {
		if override, ok := s.Lines[warehouse.Normalize(line)]; ok {
			return mergeLine(s.Defaults, override)
		}
	}
	return s.Defaults
}

// ResolveWarehouseForLine returns the configured warehouse of the given kind.
func (s LineSettings) ResolveWarehouseForLine(line string, kind WarehouseKind) (string, bool) {
	row := s.ForLine(line)

	var name string
	switch kind {
	case WarehouseStaging:
		name = row.Staging
	case WarehouseWIP:
		name = row.WIP
	case WarehouseTarget:
		name = row.Target
	case WarehouseScrap:
		name = row.Scrap
	}

	return name, name != ""
}

// AllowedGroups returns the lower-cased item group allow-list for a line.
// An empty set means every group is allowed.
func (s LineSettings) AllowedGroups(line string) map[string]bool {
	groups := s.ForLine(line).AllowedItemGroups
	if len(groups) == 0 {
		return nil
	}
	out := make(map[string]bool, len(groups))
	for _, g := range groups {
		out[warehouse.Normalize(g)] = true
	}
	return out
}

func mergeLine(base, override LineWarehouses) LineWarehouses {
	if override.Staging != "" {
		base.Staging = override.Staging
	}
	if override.WIP != "" {
		base.WIP = override.WIP
	}
	if override.Target != "" {
		base.Target = override.Target
	}
	if override.Scrap != "" {
		base.Scrap = override.Scrap
	}
	if len(override.AllowedItemGroups) > 0 {
		base.AllowedItemGroups = override.AllowedItemGroups
	}
	return base
}
