package entities

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mpm-dev/mpm/plugin/values"
)

// Plugin identifies a versioned artifact on disk.
// Two plugins are equal iff name and version are equal; Path is ignored.
type Plugin struct {
	Name    string
	Version values.Version
	Path    string
}

// NewPluginFromPath derives a plugin from an artifact path named "<name>-<version>.jar".
func NewPluginFromPath(path string) (Plugin, error) {
	name, version, err := values.ParseArtifactFilename(path)
	if err != nil {
		return Plugin{}, err
	}
	return Plugin{Name: name, Version: version, Path: path}, nil
}

// Filename returns the canonical artifact file name.
func (p Plugin) Filename() string {
	return values.ArtifactFilename(p.Name, p.Version)
}

// Equals reports identity equality (name and version).
func (p Plugin) Equals(other Plugin) bool {
	return p.Name == other.Name && p.Version.Equals(other.Version)
}

// Compare orders by name, then by version.
func (p Plugin) Compare(other Plugin) int {
	if c := strings.Compare(p.Name, other.Name); c != 0 {
		return c
	}
	return p.Version.Compare(other.Version)
}

// String returns "name version".
func (p Plugin) String() string {
	return fmt.Sprintf("%s %s", p.Name, p.Version)
}

// SortPlugins sorts plugins by name then version, keeping input order for equal identities.
func SortPlugins(plugins []Plugin) {
	sort.SliceStable(plugins, func(i, j int) bool {
		return plugins[i].Compare(plugins[j]) < 0
	})
}

// MaxPlugin returns the highest plugin under Compare. The first of equal identities wins.
func MaxPlugin(plugins []Plugin) (Plugin, bool) {
	if len(plugins) == 0 {
		return Plugin{}, false
	}
	best := plugins[0]
	for _, p := range plugins[1:] {
		if best.Compare(p) < 0 {
			best = p
		}
	}
	return best, true
}

// ContainsPlugin reports whether an identity-equal plugin is in the slice.
func ContainsPlugin(plugins []Plugin, p Plugin) bool {
	for _, candidate := range plugins {
		if candidate.Equals(p) {
			return true
		}
	}
	return false
}

// BadFile is a file that could not be read as an artifact.
type BadFile struct {
	Path   string
	Reason error
}

// Name returns the base file name.
func (b BadFile) Name() string {
	return filepath.Base(b.Path)
}

func (b BadFile) String() string {
	return fmt.Sprintf("%s: %v", b.Path, b.Reason)
}
