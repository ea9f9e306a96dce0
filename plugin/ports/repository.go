package ports

import (
	"context"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/values"
)

// Catalog is a repository of versioned plugin artifacts.
// Implements Repository pattern for the Plugin aggregate.
type Catalog interface {
	// Name returns the configured repository name.
	Name() string

	// Root returns the repository directory.
	Root() string

	// List returns every artifact whose file name parses as "<name>-<version>.jar".
	List(ctx context.Context) ([]entities.Plugin, error)

	// BadFiles returns the jar files that could not be parsed.
	BadFiles(ctx context.Context) ([]entities.BadFile, error)

	// VersionsFor returns the versions available for name.
	VersionsFor(ctx context.Context, name string) ([]values.Version, error)

	// Import copies plugin.Path into the repository under its canonical name.
	// Returns the destination path.
	Import(ctx context.Context, plugin entities.Plugin) (string, error)
}

// LinkState describes what occupies a managed link path.
type LinkState int

const (
	// LinkAbsent: nothing exists at the link path.
	LinkAbsent LinkState = iota
	// LinkSymlink: the path is a symlink.
	LinkSymlink
	// LinkConflict: the path exists and is not a symlink.
	LinkConflict
)

// Inventory is the observed and declared plugin state of one server.
type Inventory interface {
	// Name returns the configured server name.
	Name() string

	// PluginDir returns the managed plugin directory.
	PluginDir() string

	// VersionsDir returns the directory managed links point into.
	VersionsDir() string

	// InstalledPlugins returns the plugins selected by a managed link.
	InstalledPlugins(ctx context.Context) ([]entities.Plugin, error)

	// StoredPlugins returns the artifacts for name present in the versions directory.
	StoredPlugins(ctx context.Context, name string) ([]entities.Plugin, error)

	// WantedPlugins returns the declared requirement set, inherited specs first.
	WantedPlugins() []entities.PluginSpec

	// CurrentVersionFor returns the version the name.jar link points at.
	CurrentVersionFor(ctx context.Context, name string) (values.Version, bool, error)

	// LinkState reports what occupies name.jar.
	LinkState(ctx context.Context, name string) (LinkState, error)

	// UnmanagedFiles returns plugin directory files that are not in expected.
	UnmanagedFiles(ctx context.Context, expected []string) ([]string, error)

	// Warnings returns links and stored files excluded because they could not be read.
	Warnings(ctx context.Context) ([]entities.BadFile, error)
}
