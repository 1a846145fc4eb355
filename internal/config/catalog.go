package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MapDef describes a playable map. The team bounds are carried for clients
// but not enforced server-side.
type MapDef struct {
	Name     string `yaml:"name"`
	MinTeams int    `yaml:"min_teams"`
	MaxTeams int    `yaml:"max_teams"`
}

// Catalog is the set of maps and champions the server offers.
type Catalog struct {
	Maps      []MapDef `yaml:"maps"`
	Champions []string `yaml:"champions"`
}

// DefaultCatalog returns the built-in catalog: the Default map and the
// placeholder champion roster.
func DefaultCatalog() Catalog {
	champs := make([]string, 100)
	for i := range champs {
		champs[i] = fmt.Sprintf("Champ %d", i+1)
	}
	return Catalog{
		Maps:      []MapDef{{Name: "Default", MinTeams: 2, MaxTeams: 2}},
		Champions: champs,
	}
}

// LoadCatalog reads a YAML catalog file. Missing sections fall back to the
// defaults.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog file: %w", err)
	}
	catalog := DefaultCatalog()
	var loaded Catalog
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog file: %w", err)
	}
	if len(loaded.Maps) > 0 {
		catalog.Maps = loaded.Maps
	}
	if len(loaded.Champions) > 0 {
		catalog.Champions = loaded.Champions
	}
	return catalog, nil
}

// HasMap reports whether a map with the given name exists.
func (c Catalog) HasMap(name string) bool {
	for _, m := range c.Maps {
		if m.Name == name {
			return true
		}
	}
	return false
}
