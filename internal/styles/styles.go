// Package styles holds the immutable style template store. Templates map a
// human-selected style name to the prompt fragments appended to every shot
// description sent to the generation service.
package styles

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"reelgen/internal/domain"
)

// Template is one named style preset. Fragments are ordered; they are joined
// into the prompt in the order listed.
type Template struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Fragments []string `json:"fragments"`
}

// Catalog is the set of templates loaded at startup. It is immutable after
// Load; lookups fail closed rather than returning a default.
type Catalog struct {
	templates map[string]Template
	names     []string
}

// Load reads the template store from a JSON file. The file must contain a
// non-empty array of templates with unique, non-empty names.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("styles: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a catalog from raw JSON.
func Parse(data []byte) (*Catalog, error) {
	var entries []Template
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("styles: decode: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("styles: template store is empty")
	}

	templates := make(map[string]Template, len(entries))
	for _, tmpl := range entries {
		name := strings.TrimSpace(tmpl.Name)
		if name == "" {
			return nil, fmt.Errorf("styles: template with empty name")
		}
		if _, dup := templates[name]; dup {
			return nil, fmt.Errorf("styles: duplicate template %q", name)
		}
		if len(tmpl.Fragments) == 0 {
			return nil, fmt.Errorf("styles: template %q has no fragments", name)
		}
		tmpl.Name = name
		templates[name] = tmpl
	}

	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Catalog{templates: templates, names: names}, nil
}

// Resolve returns the template for the given style name.
func (c *Catalog) Resolve(name string) (Template, error) {
	tmpl, ok := c.templates[strings.TrimSpace(name)]
	if !ok {
		return Template{}, fmt.Errorf("styles: %q: %w", name, domain.ErrUnknownStyle)
	}
	return tmpl, nil
}

// Names returns all style names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// ByCategory groups style names by their category for the selection UI.
func (c *Catalog) ByCategory() map[string][]string {
	grouped := make(map[string][]string)
	for _, name := range c.names {
		tmpl := c.templates[name]
		category := tmpl.Category
		if category == "" {
			category = "general"
		}
		grouped[category] = append(grouped[category], name)
	}
	return grouped
}

// Len returns the number of templates in the catalog.
func (c *Catalog) Len() int {
	return len(c.templates)
}
