// Package repository implements plugin catalog adapters.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/filesystem"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/mpm-dev/mpm/plugin/values"
	"github.com/spf13/afero"
)

// artifactGlob selects the files a catalog considers artifacts.
const artifactGlob = "*" + values.JarExt

// FSCatalog implements ports.Catalog over a directory of "<name>-<version>.jar" files.
type FSCatalog struct {
	fs     ports.Filesystem
	logger *slog.Logger
	name   string
	root   string
}

// Option configures an FSCatalog.
type Option func(*FSCatalog)

// WithFilesystem sets the filesystem the catalog reads from.
func WithFilesystem(fs ports.Filesystem) Option {
	return func(c *FSCatalog) {
		c.fs = fs
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(c *FSCatalog) {
		c.logger = logger
	}
}

// NewFSCatalog creates a catalog for the repository directory root.
func NewFSCatalog(name, root string, opts ...Option) *FSCatalog {
	c := &FSCatalog{
		name:   name,
		root:   filepath.Clean(root),
		fs:     ports.OSFilesystem(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the repository name.
func (c *FSCatalog) Name() string {
	return c.name
}

// Root returns the repository directory.
func (c *FSCatalog) Root() string {
	return c.root
}

// List returns every parseable artifact, sorted by name and version.
func (c *FSCatalog) List(ctx context.Context) ([]entities.Plugin, error) {
	plugins, _, err := c.scan(ctx)
	return plugins, err
}

// BadFiles returns the files that could not be read as artifacts.
func (c *FSCatalog) BadFiles(ctx context.Context) ([]entities.BadFile, error) {
	_, bad, err := c.scan(ctx)
	return bad, err
}

// VersionsFor returns the versions available for name.
func (c *FSCatalog) VersionsFor(ctx context.Context, name string) ([]values.Version, error) {
	plugins, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	var versions []values.Version
	for _, p := range plugins {
		if p.Name == name {
			versions = append(versions, p.Version)
		}
	}
	return versions, nil
}

// Import copies plugin.Path into the repository as "<name>-<version>.jar".
// It refuses to overwrite an existing artifact.
func (c *FSCatalog) Import(ctx context.Context, plugin entities.Plugin) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest, err := c.artifactPath(plugin)
	if err != nil {
		return "", err
	}

	exists, err := filesystem.Lexists(c.fs, dest)
	if err != nil {
		return "", fmt.Errorf("check %q: %w", dest, err)
	}
	if exists {
		return "", &entities.AlreadyExistsError{Path: dest}
	}

	if err := c.fs.MkdirAll(c.root, 0o750); err != nil {
		return "", fmt.Errorf("create repository directory: %w", err)
	}

	staged, err := filesystem.StageCopy(c.fs, plugin.Path, c.root)
	if err != nil {
		return "", err
	}
	if err := filesystem.CommitStaged(c.fs, staged, dest); err != nil {
		_ = c.fs.Remove(staged)
		return "", err
	}

	c.logger.Debug("imported artifact", "repository", c.name, "plugin", plugin.Name, "version", plugin.Version.String(), "path", dest)
	return dest, nil
}

// scan reads the repository directory once and splits it into artifacts and bad files.
func (c *FSCatalog) scan(ctx context.Context) ([]entities.Plugin, []entities.BadFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	infos, err := afero.ReadDir(c.fs, c.root)
	if err != nil {
		return nil, nil, fmt.Errorf("read repository %s: %w", c.name, err)
	}

	var plugins []entities.Plugin
	var bad []entities.BadFile
	for _, info := range infos {
		path := filepath.Join(c.root, info.Name())
		if filesystem.IsStaging(info.Name()) {
			continue
		}

		regular, err := c.isRegularFile(path, info)
		if err != nil {
			return nil, nil, err
		}
		if !regular {
			continue
		}

		if ok, _ := doublestar.Match(artifactGlob, info.Name()); !ok {
			bad = append(bad, entities.BadFile{Path: path, Reason: &values.FilenameParseError{Filename: info.Name()}})
			continue
		}

		plugin, err := entities.NewPluginFromPath(path)
		if err != nil {
			c.logger.Debug("skipping artifact", "repository", c.name, "path", path, "error", err)
			bad = append(bad, entities.BadFile{Path: path, Reason: err})
			continue
		}
		plugins = append(plugins, plugin)
	}

	entities.SortPlugins(plugins)
	return plugins, bad, nil
}

// isRegularFile follows symlinks so linked artifacts count like copied ones.
func (c *FSCatalog) isRegularFile(path string, info os.FileInfo) (bool, error) {
	if info.Mode()&os.ModeSymlink == 0 {
		return info.Mode().IsRegular(), nil
	}
	target, err := c.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %q: %w", path, err)
	}
	return target.Mode().IsRegular(), nil
}

func (c *FSCatalog) artifactPath(plugin entities.Plugin) (string, error) {
	if err := values.ValidateName(plugin.Name); err != nil {
		return "", err
	}
	if plugin.Version.IsZero() {
		return "", fmt.Errorf("plugin %s has no version", plugin.Name)
	}

	fullPath := filepath.Join(c.root, plugin.Filename())

	// Security: Verify the resolved path is still within the root directory
	cleanPath := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanPath, c.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("security violation: path traversal detected for plugin %q", plugin.Name)
	}

	return cleanPath, nil
}
