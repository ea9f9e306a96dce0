package transaction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// RemovePlugin deletes a stale artifact from the server.
type RemovePlugin struct {
	base
}

// Action returns "remove".
func (t *RemovePlugin) Action() string {
	return "remove"
}

func (t *RemovePlugin) String() string {
	return fmt.Sprintf("Remove %s from %s", t.plugin, t.server.Name())
}

// Test fails with ArtifactMissingError when the artifact is already gone.
func (t *RemovePlugin) Test(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.requireArtifact(t.plugin.Path)
}

// Run re-checks the artifact, deletes it, and drops the server's link when
// it still points at the deleted file.
func (t *RemovePlugin) Run(ctx context.Context) error {
	if err := t.Test(ctx); err != nil {
		return err
	}

	pointsHere, err := t.linkPointsAt(t.plugin.Path)
	if err != nil {
		return err
	}

	if err := t.fs.Remove(t.plugin.Path); err != nil {
		return fmt.Errorf("remove %q: %w", t.plugin.Path, err)
	}
	t.logger.Debug("removed artifact", "server", t.server.Name(), "path", t.plugin.Path)

	if pointsHere {
		if err := t.fs.Remove(t.linkPath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove link %q: %w", t.linkPath(), err)
		}
		t.logger.Debug("removed link", "server", t.server.Name(), "link", t.linkPath())
	}
	return nil
}

func (t *RemovePlugin) linkPointsAt(path string) (bool, error) {
	info, _, err := t.fs.LstatIfPossible(t.linkPath())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %q: %w", t.linkPath(), err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false, nil
	}

	target, err := t.fs.ReadlinkIfPossible(t.linkPath())
	if err != nil {
		return false, fmt.Errorf("read link %q: %w", t.linkPath(), err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(t.server.PluginDir(), target)
	}
	return filepath.Clean(target) == filepath.Clean(path), nil
}
