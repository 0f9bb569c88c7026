package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is a per-workbook review policy. It overrides the global
// configuration for one model: which constants are acceptable in formulas
// and which columns identify a row.
type Policy struct {
	Name             string    `yaml:"name" json:"name"`
	AllowedConstants []float64 `yaml:"allowed_constants,omitempty" json:"allowedConstants,omitempty"`
	KeyColumns       []string  `yaml:"key_columns,omitempty" json:"keyColumns,omitempty"`
	Sheets           []string  `yaml:"sheets,omitempty" json:"sheets,omitempty"`
}

// LoadPolicy reads and parses a policy YAML file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("policy file not found: %s — check that the path is correct", path)
		}
		return nil, fmt.Errorf("could not read policy file %s: %w", path, err)
	}

	return ParsePolicy(data)
}

// ParsePolicy parses a policy from YAML bytes.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid policy YAML: %w", err)
	}

	if err := validatePolicy(&p); err != nil {
		return nil, err
	}

	return &p, nil
}

func validatePolicy(p *Policy) error {
	if p.Name == "" {
		return fmt.Errorf("policy is missing a 'name' field")
	}

	seen := make(map[string]bool)
	for _, col := range p.KeyColumns {
		if col == "" {
			return fmt.Errorf("policy %q has an empty key column", p.Name)
		}
		if seen[col] {
			return fmt.Errorf("duplicate key column %q — each key column must appear once", col)
		}
		seen[col] = true
	}

	return nil
}
