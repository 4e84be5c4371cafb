package disease

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Entry is one notifiable disease with the spellings reporters use for it
type Entry struct {
	Name       string   `yaml:"name"`
	Notifiable bool     `yaml:"notifiable"`
	Aliases    []string `yaml:"aliases"`
}

type catalogFile struct {
	Diseases []Entry `yaml:"diseases"`
}

// Catalog maps free-form disease labels to canonical names
type Catalog struct {
	entries []Entry
	byAlias map[string]string // lowercased alias or name -> canonical name
}

// DefaultCatalog parses the embedded catalog
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog file, or the embedded catalog when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read disease catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse disease catalog: %w", err)
	}

	c := &Catalog{byAlias: make(map[string]string)}
	for _, e := range f.Diseases {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("disease catalog entry without name")
		}
		e.Name = name
		c.entries = append(c.entries, e)
		c.byAlias[strings.ToLower(name)] = name
		for _, alias := range e.Aliases {
			key := strings.ToLower(strings.TrimSpace(alias))
			if key == "" {
				continue
			}
			if existing, ok := c.byAlias[key]; ok && existing != name {
				return nil, fmt.Errorf("alias %q maps to both %q and %q", alias, existing, name)
			}
			c.byAlias[key] = name
		}
	}
	return c, nil
}

// Canonical returns the canonical name for label. Unknown labels are
// returned trimmed but otherwise unchanged.
func (c *Catalog) Canonical(label string) string {
	label = strings.TrimSpace(label)
	if c == nil {
		return label
	}
	if name, ok := c.byAlias[strings.ToLower(label)]; ok {
		return name
	}
	return label
}

// Known reports whether label matches a catalog entry
func (c *Catalog) Known(label string) bool {
	if c == nil {
		return false
	}
	_, ok := c.byAlias[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// Entries returns the catalog entries in file order
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
