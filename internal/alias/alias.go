// Package alias maps site category labels to stock photo provider category ids.
package alias

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Table looks up the provider category id for a site category label
type Table interface {
	Lookup(label string) (id string, ok bool)
}

// Map is a static alias table
type Map map[string]string

// Lookup returns the provider category id for a label, if it has one
func (m Map) Lookup(label string) (string, bool) {
	id, ok := m[label]
	if !ok || id == "" {
		return "", false
	}

	return id, true
}

// Parse reads an alias table from a YAML (or JSON) document of label: provider-id pairs
func Parse(data []byte) (Map, error) {
	m := Map{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid alias table: %w", err)
	}

	return m, nil
}
