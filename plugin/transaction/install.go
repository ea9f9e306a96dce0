package transaction

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/filesystem"
)

// InstallPlugin copies an artifact into the server's versions directory and links it.
type InstallPlugin struct {
	base
	staged string
}

// Action returns "install".
func (t *InstallPlugin) Action() string {
	return "install"
}

func (t *InstallPlugin) String() string {
	return fmt.Sprintf("Install %s to %s", t.plugin, t.server.Name())
}

func (t *InstallPlugin) dest() string {
	return filepath.Join(t.server.VersionsDir(), t.plugin.Filename())
}

// Test fails with AlreadyExistsError when the destination artifact exists and
// with ArtifactMissingError when the source is gone.
func (t *InstallPlugin) Test(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	exists, err := filesystem.Lexists(t.fs, t.dest())
	if err != nil {
		return fmt.Errorf("check %q: %w", t.dest(), err)
	}
	if exists {
		return &entities.AlreadyExistsError{Path: t.dest()}
	}
	if err := t.requireArtifact(t.plugin.Path); err != nil {
		return err
	}
	return t.checkLinkPath()
}

// Stage copies the artifact to a temporary file in the versions directory.
func (t *InstallPlugin) Stage(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.fs.MkdirAll(t.server.VersionsDir(), 0o750); err != nil {
		return fmt.Errorf("create versions directory: %w", err)
	}

	staged, err := filesystem.StageCopy(t.fs, t.plugin.Path, t.server.VersionsDir())
	if err != nil {
		return err
	}
	t.staged = staged
	return nil
}

// Commit renames the staged copy into place and swaps the link to it.
func (t *InstallPlugin) Commit(ctx context.Context) error {
	if t.staged == "" {
		return fmt.Errorf("%s: nothing staged", t)
	}
	if err := filesystem.CommitStaged(t.fs, t.staged, t.dest()); err != nil {
		return err
	}
	t.staged = ""
	return t.relink(t.dest())
}

// Discard removes the staged copy, if any.
func (t *InstallPlugin) Discard() error {
	if t.staged == "" {
		return nil
	}
	err := t.fs.Remove(t.staged)
	t.staged = ""
	return err
}

// Run stages and commits in one step.
func (t *InstallPlugin) Run(ctx context.Context) error {
	if err := t.Stage(ctx); err != nil {
		return err
	}
	if err := t.Commit(ctx); err != nil {
		_ = t.Discard()
		return err
	}
	return nil
}
