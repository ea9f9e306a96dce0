// Package transaction implements the filesystem mutations that converge a server.
package transaction

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/filesystem"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/spf13/afero"
)

// Factory builds transactions bound to one filesystem.
// Implements ports.TransactionFactory.
type Factory struct {
	fs     ports.Filesystem
	logger *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithFilesystem sets the filesystem transactions mutate.
func WithFilesystem(fs ports.Filesystem) Option {
	return func(f *Factory) {
		f.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a transaction factory on the OS filesystem.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		fs:     ports.OSFilesystem(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Install returns an InstallPlugin transaction.
func (f *Factory) Install(server ports.Inventory, plugin entities.Plugin) ports.Transaction {
	return &InstallPlugin{base: f.base(server, plugin)}
}

// Link returns a LinkPlugin transaction.
func (f *Factory) Link(server ports.Inventory, plugin entities.Plugin) ports.Transaction {
	return &LinkPlugin{base: f.base(server, plugin)}
}

// Remove returns a RemovePlugin transaction.
func (f *Factory) Remove(server ports.Inventory, plugin entities.Plugin) ports.Transaction {
	return &RemovePlugin{base: f.base(server, plugin)}
}

func (f *Factory) base(server ports.Inventory, plugin entities.Plugin) base {
	return base{fs: f.fs, logger: f.logger, server: server, plugin: plugin}
}

// base holds what every transaction needs.
type base struct {
	fs     ports.Filesystem
	logger *slog.Logger
	server ports.Inventory
	plugin entities.Plugin
}

func (b *base) Server() string {
	return b.server.Name()
}

func (b *base) Plugin() entities.Plugin {
	return b.plugin
}

func (b *base) linkPath() string {
	return filepath.Join(b.server.PluginDir(), b.plugin.Name+".jar")
}

// checkLinkPath fails when the link path is occupied by something other than a symlink.
func (b *base) checkLinkPath() error {
	info, _, err := b.fs.LstatIfPossible(b.linkPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %q: %w", b.linkPath(), err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%s exists and is not a symlink", b.linkPath())
	}
	return nil
}

// requireArtifact fails with ArtifactMissingError when path is gone.
func (b *base) requireArtifact(path string) error {
	exists, err := afero.Exists(b.fs, path)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}
	if !exists {
		return &entities.ArtifactMissingError{Path: path}
	}
	return nil
}

// relink points the server's link at artifact, which must live under the plugin directory.
func (b *base) relink(artifact string) error {
	target, err := filepath.Rel(b.server.PluginDir(), artifact)
	if err != nil {
		return fmt.Errorf("link target for %s: %w", artifact, err)
	}
	if err := filesystem.SwapSymlink(b.fs, target, b.linkPath()); err != nil {
		return err
	}
	b.logger.Debug("linked plugin", "server", b.server.Name(), "link", b.linkPath(), "target", target)
	return nil
}
