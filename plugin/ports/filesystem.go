// Package ports defines the interfaces the plugin domain depends on.
package ports

import "github.com/spf13/afero"

// Filesystem is the filesystem the plugin adapters operate on.
// Managed links need symlink support, so a bare afero.Fs is not enough.
type Filesystem interface {
	afero.Fs
	afero.Symlinker
}

// OSFilesystem returns the real filesystem.
func OSFilesystem() Filesystem {
	return &afero.OsFs{}
}
