// Package catalog holds the immutable table of featuring packages.
// The catalog is built once at startup and injected into the engine;
// packages are looked up by id and never mutated afterwards.
package catalog

import "sort"

// Package is a named featuring bundle applied when a listing is featured.
type Package struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	DurationDays int     `yaml:"duration_days"`
	Priority     int     `yaml:"priority"`
	Price        float64 `yaml:"price"`
}

type Catalog struct {
	packages map[string]Package
}

// Defaults returns the built-in package set used when no override file
// is configured.
func Defaults() []Package {
	return []Package{
		{ID: "basic", Name: "Basic", DurationDays: 7, Priority: 1, Price: 499},
		{ID: "standard", Name: "Standard", DurationDays: 15, Priority: 2, Price: 899},
		{ID: "premium", Name: "Premium", DurationDays: 30, Priority: 3, Price: 1499},
	}
}

func New(packages []Package) *Catalog {
	m := make(map[string]Package, len(packages))
	for _, p := range packages {
		m[p.ID] = p
	}
	return &Catalog{packages: m}
}

// Get looks up a package by id. The second return value reports whether
// the id is known; unknown ids fall back to caller-supplied durations.
func (c *Catalog) Get(id string) (Package, bool) {
	p, ok := c.packages[id]
	return p, ok
}

func (c *Catalog) Count() int {
	return len(c.packages)
}

// All returns the packages ordered by ascending priority.
func (c *Catalog) All() []Package {
	out := make([]Package, 0, len(c.packages))
	for _, p := range c.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}
