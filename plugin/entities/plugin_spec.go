// Package entities contains domain entities for the plugin management model.
package entities

import (
	"fmt"

	"github.com/mpm-dev/mpm/plugin/values"
)

// PluginSpec is a declared requirement: a plugin name and the version range a server accepts.
type PluginSpec struct {
	Name       string
	Constraint values.Constraint
}

// NewPluginSpec validates the name and parses the constraint.
// An empty constraint means any version.
func NewPluginSpec(name, constraint string) (PluginSpec, error) {
	if err := values.ValidateName(name); err != nil {
		return PluginSpec{}, fmt.Errorf("plugin spec: %w", err)
	}
	c, err := values.ParseConstraint(constraint)
	if err != nil {
		return PluginSpec{}, fmt.Errorf("invalid version spec for plugin %s: %w", name, err)
	}
	return PluginSpec{Name: name, Constraint: c}, nil
}

// MustNewPluginSpec creates a PluginSpec or panics.
func MustNewPluginSpec(name, constraint string) PluginSpec {
	spec, err := NewPluginSpec(name, constraint)
	if err != nil {
		panic(err)
	}
	return spec
}

// Contains reports whether v satisfies the spec's constraint.
func (s PluginSpec) Contains(v values.Version) bool {
	return s.Constraint.Contains(v)
}

// LinkName returns the managed symlink name for this spec.
func (s PluginSpec) LinkName() string {
	return values.LinkName(s.Name)
}

func (s PluginSpec) String() string {
	return fmt.Sprintf("%s %s", s.Name, s.Constraint)
}

// SpecSet is a server's requirement set keyed by plugin name.
// Iteration follows first-declaration order.
type SpecSet struct {
	order []string
	specs map[string]PluginSpec
}

// NewSpecSet creates an empty requirement set.
func NewSpecSet() *SpecSet {
	return &SpecSet{
		specs: make(map[string]PluginSpec),
	}
}

// Set stores spec, replacing any existing spec with the same name (last write wins).
func (s *SpecSet) Set(spec PluginSpec) {
	if s.specs == nil {
		s.specs = make(map[string]PluginSpec)
	}
	if _, ok := s.specs[spec.Name]; !ok {
		s.order = append(s.order, spec.Name)
	}
	s.specs[spec.Name] = spec
}

// Add stores spec and fails with DuplicateDeclarationError if the name is already declared.
func (s *SpecSet) Add(spec PluginSpec) error {
	if s.Has(spec.Name) {
		return &DuplicateDeclarationError{Name: spec.Name}
	}
	s.Set(spec)
	return nil
}

// Merge sets every spec of other, overriding entries with the same name.
func (s *SpecSet) Merge(other *SpecSet) {
	if other == nil {
		return
	}
	for _, spec := range other.All() {
		s.Set(spec)
	}
}

// Get returns the spec declared for name.
func (s *SpecSet) Get(name string) (PluginSpec, bool) {
	spec, ok := s.specs[name]
	return spec, ok
}

// Has reports whether name is declared.
func (s *SpecSet) Has(name string) bool {
	_, ok := s.specs[name]
	return ok
}

// Len returns the number of declared specs.
func (s *SpecSet) Len() int {
	return len(s.order)
}

// All returns the specs in declaration order.
func (s *SpecSet) All() []PluginSpec {
	out := make([]PluginSpec, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.specs[name])
	}
	return out
}
