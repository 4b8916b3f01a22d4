package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSpecNotFound is returned when a spec name is not in the catalog.
	ErrSpecNotFound = errors.New("spec not found")
	// ErrComponentNotFound is returned when a spec has no entry for a key.
	ErrComponentNotFound = errors.New("component not found")
)

// SpecCatalog is the read-only lookup the pipeline is given.
// Implementations must be safe for concurrent reads.
type SpecCatalog interface {
	GetSpec(name string) (*Spec, bool)
}

// Spec is one pipe specification (diameter class) and its fittings.
type Spec struct {
	Name                       string               `json:"name"`
	Diameter                   float64              `json:"diameter"`
	Thickness                  float64              `json:"thickness"`
	BendRadius                 float64              `json:"bend_radius"`
	DefaultPreferredMinTangent float64              `json:"default_preferred_min_tangent"`
	Components                 map[string]Component `json:"-"`
}

// Component returns the entry stored under key.
func (s *Spec) Component(key string) (Component, error) {
	c, ok := s.Components[key]
	if !ok {
		return nil, fmt.Errorf("catalog: %s has no %s: %w", s.Name, key, ErrComponentNotFound)
	}
	return c, nil
}

// Keys returns the component keys of the spec in sorted order.
func (s *Spec) Keys() []string {
	keys := make([]string, 0, len(s.Components))
	for k := range s.Components {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CleanName normalises a spec label the way sketches and catalog files are
// written by hand: surrounding blanks dropped, dashes turned into
// underscores ("SMS-25 " becomes "SMS_25").
func CleanName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
}

// Catalog is an in-memory SpecCatalog. It is not safe for concurrent
// mutation; populate it fully before sharing it.
type Catalog struct {
	specs map[string]*Spec
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{specs: make(map[string]*Spec)}
}

// Add registers a spec under its cleaned name.
func (c *Catalog) Add(s *Spec) error {
	s.Name = CleanName(s.Name)
	if s.Name == "" {
		return fmt.Errorf("catalog: spec has no name")
	}
	if _, dup := c.specs[s.Name]; dup {
		return fmt.Errorf("catalog: duplicate spec %q", s.Name)
	}
	if s.Components == nil {
		s.Components = make(map[string]Component)
	}
	c.specs[s.Name] = s
	return nil
}

// GetSpec implements SpecCatalog.
func (c *Catalog) GetSpec(name string) (*Spec, bool) {
	s, ok := c.specs[CleanName(name)]
	return s, ok
}

// Names returns every spec name in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.specs))
	for n := range c.specs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of specs.
func (c *Catalog) Len() int { return len(c.specs) }

// GenerateReducers adds a Reducer for every pair of specs with different
// diameters. Each reducer is stored on both specs under ReducerKey. Entries
// that already exist are left alone. It returns the number of keys added.
func (c *Catalog) GenerateReducers() int {
	names := c.Names()
	added := 0
	for i, an := range names {
		for _, bn := range names[i+1:] {
			a, b := c.specs[an], c.specs[bn]
			if a.Diameter == b.Diameter {
				continue
			}
			large, small := a.Diameter, b.Diameter
			if small > large {
				large, small = small, large
			}
			key := ReducerKey(large, small)
			r := Reducer{LargeDiameter: large, SmallDiameter: small}
			for _, s := range []*Spec{a, b} {
				if _, ok := s.Components[key]; !ok {
					s.Components[key] = r
					added++
				}
			}
		}
	}
	return added
}

// Lookup resolves a spec and one of its components in a single call.
func Lookup(cat SpecCatalog, spec, key string) (*Spec, Component, error) {
	s, ok := cat.GetSpec(spec)
	if !ok {
		return nil, nil, fmt.Errorf("catalog: %q: %w", spec, ErrSpecNotFound)
	}
	comp, err := s.Component(key)
	if err != nil {
		return s, nil, err
	}
	return s, comp, nil
}
