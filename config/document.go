// Package config holds the mpm configuration document: the repositories
// artifacts are imported into and the servers synced from them.
package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/values"
)

// ErrInheritanceCycle is returned when servers inherit from each other in a loop.
var ErrInheritanceCycle = errors.New("inheritance cycle")

// Document is the root of the configuration file.
type Document struct {
	Repositories map[string]Repository `yaml:"repositories,omitempty" json:"repositories,omitempty" validate:"dive,keys,name,endkeys"`
	Servers      map[string]Server     `yaml:"servers,omitempty" json:"servers,omitempty" validate:"dive,keys,name,endkeys"`
}

// Repository is a directory of versioned artifacts.
type Repository struct {
	Path string `yaml:"path" json:"path" jsonschema:"minLength=1" validate:"required"`
}

// Server is a plugin directory with its declared requirements.
type Server struct {
	Path    string        `yaml:"path" json:"path" jsonschema:"minLength=1" validate:"required"`
	Plugins []PluginEntry `yaml:"plugins,omitempty" json:"plugins,omitempty" validate:"dive"`
	Inherit []string      `yaml:"inherit,omitempty" json:"inherit,omitempty" validate:"dive,name"`
}

// PluginEntry declares one plugin requirement. An empty version accepts any version.
type PluginEntry struct {
	Name    string `yaml:"name" json:"name" jsonschema:"minLength=1" validate:"required,name"`
	Version string `yaml:"version,omitempty" json:"version,omitempty" validate:"omitempty,constraint"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Repositories: make(map[string]Repository),
		Servers:      make(map[string]Server),
	}
}

// RepositoryNames returns the configured repository names, sorted.
func (d *Document) RepositoryNames() []string {
	return sortedKeys(d.Repositories)
}

// ServerNames returns the configured server names, sorted.
func (d *Document) ServerNames() []string {
	return sortedKeys(d.Servers)
}

// Repository returns the repository named name.
func (d *Document) Repository(name string) (Repository, error) {
	repo, ok := d.Repositories[name]
	if !ok {
		return Repository{}, entities.NewNotFoundError("repository", name, d.RepositoryNames())
	}
	return repo, nil
}

// Server returns the server named name.
func (d *Document) Server(name string) (Server, error) {
	server, ok := d.Servers[name]
	if !ok {
		return Server{}, entities.NewNotFoundError("server", name, d.ServerNames())
	}
	return server, nil
}

// AddRepository declares a repository. Existing names are rejected.
func (d *Document) AddRepository(name, path string) error {
	if err := values.ValidateName(name); err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	if _, ok := d.Repositories[name]; ok {
		return fmt.Errorf("repository %s: %w", name, entities.ErrAlreadyExists)
	}
	if d.Repositories == nil {
		d.Repositories = make(map[string]Repository)
	}
	d.Repositories[name] = Repository{Path: path}
	return nil
}

// AddServer declares a server. Existing names are rejected.
func (d *Document) AddServer(name, path string, inherit ...string) error {
	if err := values.ValidateName(name); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if _, ok := d.Servers[name]; ok {
		return fmt.Errorf("server %s: %w", name, entities.ErrAlreadyExists)
	}
	for _, parent := range inherit {
		if _, err := d.Server(parent); err != nil {
			return fmt.Errorf("server %s inherits: %w", name, err)
		}
	}
	if d.Servers == nil {
		d.Servers = make(map[string]Server)
	}
	d.Servers[name] = Server{Path: path, Inherit: inherit}
	return nil
}

// AddPlugin appends a requirement to the server's explicit plugin list.
func (d *Document) AddPlugin(server string, spec entities.PluginSpec) error {
	s, err := d.Server(server)
	if err != nil {
		return err
	}
	for _, p := range s.Plugins {
		if p.Name == spec.Name {
			return &entities.DuplicateDeclarationError{Server: server, Name: spec.Name}
		}
	}
	s.Plugins = append(s.Plugins, PluginEntry{Name: spec.Name, Version: spec.Constraint.String()})
	d.Servers[server] = s
	return nil
}

// Specs resolves the requirement set of a server. Inherited specs come first,
// in inherit order; explicit entries override inherited ones with the same name.
func (d *Document) Specs(server string) (*entities.SpecSet, error) {
	return d.specs(server, nil)
}

func (d *Document) specs(name string, chain []string) (*entities.SpecSet, error) {
	for _, seen := range chain {
		if seen == name {
			return nil, fmt.Errorf("%w: %v", ErrInheritanceCycle, append(chain, name))
		}
	}
	chain = append(chain, name)

	server, err := d.Server(name)
	if err != nil {
		return nil, err
	}

	set := entities.NewSpecSet()
	for _, parent := range server.Inherit {
		inherited, err := d.specs(parent, chain)
		if err != nil {
			return nil, err
		}
		set.Merge(inherited)
	}

	explicit := entities.NewSpecSet()
	for _, entry := range server.Plugins {
		spec, err := entities.NewPluginSpec(entry.Name, entry.Version)
		if err != nil {
			return nil, fmt.Errorf("server %s: %w", name, err)
		}
		// Repeated entries in a hand-edited file: the last one wins
		explicit.Set(spec)
	}
	set.Merge(explicit)
	return set, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
