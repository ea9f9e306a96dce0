// Package inventory observes the plugin state of a server directory.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/filesystem"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/mpm-dev/mpm/plugin/values"
	"github.com/spf13/afero"
)

// PluginsDir is the directory, relative to the server root, holding managed links.
const PluginsDir = "plugins"

const linkGlob = "*" + values.JarExt

// unusableLinkError marks a link that exists but cannot select a plugin.
type unusableLinkError struct {
	reason error
}

func (e *unusableLinkError) Error() string {
	return e.reason.Error()
}

func (e *unusableLinkError) Unwrap() error {
	return e.reason
}

var (
	errLinkOutsideDir = errors.New("link target is outside the plugin directory")
	errLinkDangling   = errors.New("link target does not exist")
	errLinkMismatch   = errors.New("link name does not match its target")
)

// FSInventory implements ports.Inventory for a server laid out as
//
//	<root>/plugins/<name>.jar -> versions/<name>-<version>.jar
type FSInventory struct {
	fs          ports.Filesystem
	logger      *slog.Logger
	specs       *entities.SpecSet
	name        string
	root        string
	pluginDir   string
	versionsDir string
}

// Option configures an FSInventory.
type Option func(*FSInventory)

// WithFilesystem sets the filesystem the inventory reads from.
func WithFilesystem(fs ports.Filesystem) Option {
	return func(i *FSInventory) {
		i.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *FSInventory) {
		i.logger = logger
	}
}

// NewFSInventory creates an inventory for the server rooted at root.
// specs is the resolved requirement set, inherited specs included.
func NewFSInventory(name, root string, specs *entities.SpecSet, opts ...Option) *FSInventory {
	if specs == nil {
		specs = entities.NewSpecSet()
	}
	root = filepath.Clean(root)
	pluginDir := filepath.Join(root, PluginsDir)

	i := &FSInventory{
		name:        name,
		root:        root,
		pluginDir:   pluginDir,
		versionsDir: filepath.Join(pluginDir, values.VersionsDir),
		specs:       specs,
		fs:          ports.OSFilesystem(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Name returns the server name.
func (i *FSInventory) Name() string {
	return i.name
}

// Root returns the server directory.
func (i *FSInventory) Root() string {
	return i.root
}

// PluginDir returns the managed plugin directory.
func (i *FSInventory) PluginDir() string {
	return i.pluginDir
}

// VersionsDir returns the directory managed links point into.
func (i *FSInventory) VersionsDir() string {
	return i.versionsDir
}

// EnsureLayout creates the plugin and versions directories.
func (i *FSInventory) EnsureLayout() error {
	if err := i.fs.MkdirAll(i.versionsDir, 0o750); err != nil {
		return fmt.Errorf("create plugin directories for server %s: %w", i.name, err)
	}
	return nil
}

// WantedPlugins returns the declared requirement set.
func (i *FSInventory) WantedPlugins() []entities.PluginSpec {
	return i.specs.All()
}

// InstalledPlugins returns the plugins selected by a managed "<name>.jar" link.
// Links whose target is unparseable, missing or outside the plugin directory are skipped;
// Warnings reports them.
func (i *FSInventory) InstalledPlugins(ctx context.Context) ([]entities.Plugin, error) {
	installed, _, err := i.scanLinks(ctx)
	return installed, err
}

// StoredPlugins returns the artifacts for name present in the versions directory.
func (i *FSInventory) StoredPlugins(ctx context.Context, name string) ([]entities.Plugin, error) {
	stored, _, err := i.scanVersions(ctx)
	if err != nil {
		return nil, err
	}

	var out []entities.Plugin
	for _, p := range stored {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out, nil
}

// CurrentVersionFor returns the version the "<name>.jar" link selects.
// It returns false when nothing usable is linked.
func (i *FSInventory) CurrentVersionFor(ctx context.Context, name string) (values.Version, bool, error) {
	if err := ctx.Err(); err != nil {
		return values.Version{}, false, err
	}

	state, err := i.LinkState(ctx, name)
	if err != nil || state != ports.LinkSymlink {
		return values.Version{}, false, err
	}

	plugin, err := i.readLink(values.LinkName(name))
	if err != nil {
		var unusable *unusableLinkError
		if errors.As(err, &unusable) {
			return values.Version{}, false, nil
		}
		return values.Version{}, false, err
	}
	return plugin.Version, true, nil
}

// LinkState reports what occupies "<name>.jar".
func (i *FSInventory) LinkState(ctx context.Context, name string) (ports.LinkState, error) {
	if err := ctx.Err(); err != nil {
		return ports.LinkAbsent, err
	}

	info, _, err := i.fs.LstatIfPossible(filepath.Join(i.pluginDir, values.LinkName(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return ports.LinkAbsent, nil
		}
		return ports.LinkAbsent, fmt.Errorf("stat link for %s: %w", name, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return ports.LinkSymlink, nil
	}
	return ports.LinkConflict, nil
}

// UnmanagedFiles returns the names of files in the plugin directory not listed in expected.
// Symlinks count when they resolve to a regular file.
func (i *FSInventory) UnmanagedFiles(ctx context.Context, expected []string) ([]string, error) {
	infos, err := i.readDir(ctx, i.pluginDir)
	if err != nil {
		return nil, err
	}

	managed := make(map[string]struct{}, len(expected))
	for _, name := range expected {
		managed[name] = struct{}{}
	}

	var unmanaged []string
	for _, info := range infos {
		if _, ok := managed[info.Name()]; ok || filesystem.IsStaging(info.Name()) {
			continue
		}
		target, err := i.fs.Stat(filepath.Join(i.pluginDir, info.Name()))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", info.Name(), err)
		}
		if target.Mode().IsRegular() {
			unmanaged = append(unmanaged, info.Name())
		}
	}

	sort.Strings(unmanaged)
	return unmanaged, nil
}

// Warnings returns links and stored files excluded from the inventory.
func (i *FSInventory) Warnings(ctx context.Context) ([]entities.BadFile, error) {
	_, badLinks, err := i.scanLinks(ctx)
	if err != nil {
		return nil, err
	}
	_, badStored, err := i.scanVersions(ctx)
	if err != nil {
		return nil, err
	}
	return append(badLinks, badStored...), nil
}

func (i *FSInventory) scanLinks(ctx context.Context) ([]entities.Plugin, []entities.BadFile, error) {
	infos, err := i.readDir(ctx, i.pluginDir)
	if err != nil {
		return nil, nil, err
	}

	var installed []entities.Plugin
	var bad []entities.BadFile
	for _, info := range infos {
		if info.Mode()&os.ModeSymlink == 0 || filesystem.IsStaging(info.Name()) {
			continue
		}
		if ok, _ := doublestar.Match(linkGlob, info.Name()); !ok {
			continue
		}

		plugin, err := i.readLink(info.Name())
		if err != nil {
			var unusable *unusableLinkError
			if !errors.As(err, &unusable) {
				return nil, nil, err
			}
			i.logger.Debug("skipping link", "server", i.name, "link", info.Name(), "reason", unusable.reason)
			bad = append(bad, entities.BadFile{Path: filepath.Join(i.pluginDir, info.Name()), Reason: unusable.reason})
			continue
		}
		installed = append(installed, plugin)
	}

	entities.SortPlugins(installed)
	return installed, bad, nil
}

func (i *FSInventory) scanVersions(ctx context.Context) ([]entities.Plugin, []entities.BadFile, error) {
	infos, err := i.readDir(ctx, i.versionsDir)
	if err != nil {
		return nil, nil, err
	}

	var stored []entities.Plugin
	var bad []entities.BadFile
	for _, info := range infos {
		if !info.Mode().IsRegular() || filesystem.IsStaging(info.Name()) {
			continue
		}
		path := filepath.Join(i.versionsDir, info.Name())
		plugin, err := entities.NewPluginFromPath(path)
		if err != nil {
			bad = append(bad, entities.BadFile{Path: path, Reason: err})
			continue
		}
		stored = append(stored, plugin)
	}

	entities.SortPlugins(stored)
	return stored, bad, nil
}

// readLink resolves a managed link. Links that cannot select a plugin
// fail with *unusableLinkError, other errors are I/O failures.
func (i *FSInventory) readLink(linkName string) (entities.Plugin, error) {
	linkPath := filepath.Join(i.pluginDir, linkName)
	target, err := i.fs.ReadlinkIfPossible(linkPath)
	if err != nil {
		return entities.Plugin{}, fmt.Errorf("read link %s: %w", linkName, err)
	}

	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(i.pluginDir, resolved)
	}
	resolved = filepath.Clean(resolved)
	if !strings.HasPrefix(resolved, i.pluginDir+string(os.PathSeparator)) {
		return entities.Plugin{}, &unusableLinkError{reason: errLinkOutsideDir}
	}

	plugin, err := entities.NewPluginFromPath(resolved)
	if err != nil {
		return entities.Plugin{}, &unusableLinkError{reason: err}
	}
	if values.LinkName(plugin.Name) != linkName {
		return entities.Plugin{}, &unusableLinkError{reason: errLinkMismatch}
	}

	exists, err := afero.Exists(i.fs, resolved)
	if err != nil {
		return entities.Plugin{}, fmt.Errorf("stat link target %s: %w", target, err)
	}
	if !exists {
		return entities.Plugin{}, &unusableLinkError{reason: errLinkDangling}
	}

	return plugin, nil
}

// readDir lists dir without following symlinks. A missing directory is empty.
func (i *FSInventory) readDir(ctx context.Context, dir string) ([]os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := afero.ReadDir(i.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s for server %s: %w", dir, i.name, err)
	}
	return infos, nil
}
