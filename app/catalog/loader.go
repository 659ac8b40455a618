package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Packages []Package `yaml:"packages"`
}

// Load builds the catalog from an optional YAML override file. An empty
// path yields the built-in defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New(Defaults()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read packages file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse packages file: %w", err)
	}

	if len(file.Packages) == 0 {
		return nil, fmt.Errorf("packages file %s defines no packages", path)
	}

	for i, p := range file.Packages {
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("invalid package at index %d: %w", i, err)
		}
	}

	return New(file.Packages), nil
}

func validate(p Package) error {
	if p.ID == "" {
		return fmt.Errorf("package id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("package name is required")
	}
	if p.DurationDays <= 0 {
		return fmt.Errorf("package duration must be positive")
	}
	if p.Price < 0 {
		return fmt.Errorf("package price must be non-negative")
	}
	return nil
}
