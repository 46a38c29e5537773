package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"potato-prices/models"
)

//go:embed data/states-districts.json
var defaultDistricts []byte

// DefaultAliases maps known spelling variants to catalog names. Keys and
// values are slugs (lowercase, hyphenated).
var DefaultAliases = map[string]string{
	"nct-of-delhi": "delhi",
	"new-delhi":    "delhi",
	"uttarakhand":  "uttrakhand",
	"uttaranchal":  "uttrakhand",
	"chhattisgarh": "chattisgarh",
	"orissa":       "odisha",
	"pondicherry":  "puducherry",
	"tamilnadu":    "tamil-nadu",
}

// Catalog is the state reference data a run resolves against.
type Catalog struct {
	States        []string          `json:"states"`
	Aliases       map[string]string `json:"aliases"`
	DistrictsFile string            `json:"districts_file"`
}

// StateDistricts is one entry of the district reference file.
type StateDistricts struct {
	Name      string   `json:"name"`
	Districts []string `json:"districts"`
}

// CanonicalStates returns the catalog as typed identifiers, keeping order.
func (c *Catalog) CanonicalStates() []models.CanonicalState {
	out := make([]models.CanonicalState, 0, len(c.States))
	for _, s := range c.States {
		out = append(out, models.CanonicalState(s))
	}
	return out
}

// DefaultCatalog returns the built-in catalog and aliases.
func DefaultCatalog() *Catalog {
	states := make([]string, 0, len(models.DefaultCatalog))
	for _, s := range models.DefaultCatalog {
		states = append(states, string(s))
	}
	aliases := make(map[string]string, len(DefaultAliases))
	for k, v := range DefaultAliases {
		aliases[k] = v
	}
	return &Catalog{States: states, Aliases: aliases}
}

// LoadCatalog returns the built-in catalog, overridden by cfg.CatalogFile
// when one is configured. The file is json5; a sibling <name>.local.<ext>
// is merged on top of it.
func LoadCatalog(cfg *Config) (*Catalog, error) {
	out := DefaultCatalog()
	if cfg.CatalogFile != "" {
		fromFile, err := readCatalogFile(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %q: %w", cfg.CatalogFile, err)
		}
		if err := mergo.Merge(out, fromFile, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("catalog: merge %q: %w", cfg.CatalogFile, err)
		}
	}
	if cfg.DistrictsFile != "" {
		out.DistrictsFile = cfg.DistrictsFile
	}
	if len(out.States) == 0 {
		return nil, fmt.Errorf("catalog: no states configured")
	}
	return out, nil
}

// LoadDistricts reads the district reference file, or the embedded copy
// when path is empty.
func LoadDistricts(path string) ([]StateDistricts, error) {
	data := defaultDistricts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("districts: read %q: %w", path, err)
		}
		data = b
	}

	var out []StateDistricts
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("districts: decode: %w", err)
	}
	return out, nil
}

func readCatalogFile(name string) (Catalog, error) {
	var out Catalog

	b, err := os.ReadFile(name)
	if err != nil {
		return out, err
	}
	if err := json5.Unmarshal(b, &out); err != nil {
		return out, err
	}

	ext := filepath.Ext(name)
	localName := strings.TrimSuffix(name, ext) + ".local" + ext
	local, err := os.ReadFile(localName)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, err
	}

	var override Catalog
	if err := json5.Unmarshal(local, &override); err != nil {
		return out, err
	}
	if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
		return out, err
	}
	log.Printf("[config] Merged catalog with local overrides from %s", localName)
	return out, nil
}
