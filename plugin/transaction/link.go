package transaction

import (
	"context"
	"fmt"
)

// LinkPlugin points the server's link at an artifact already in its versions directory.
type LinkPlugin struct {
	base
}

// Action returns "link".
func (t *LinkPlugin) Action() string {
	return "link"
}

func (t *LinkPlugin) String() string {
	return fmt.Sprintf("Link %s on %s", t.plugin, t.server.Name())
}

// Test fails with ArtifactMissingError when the stored artifact is gone.
func (t *LinkPlugin) Test(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.requireArtifact(t.plugin.Path); err != nil {
		return err
	}
	return t.checkLinkPath()
}

// Run swaps the link.
func (t *LinkPlugin) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.relink(t.plugin.Path)
}
