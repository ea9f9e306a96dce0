package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/ports"
)

// StateClassifier compares a server's declared specs with what is on disk
// and in the catalogs.
type StateClassifier struct {
	logger *slog.Logger
}

// ClassifierOption configures a StateClassifier.
type ClassifierOption func(*StateClassifier)

// WithClassifierLogger sets the logger.
func WithClassifierLogger(logger *slog.Logger) ClassifierOption {
	return func(c *StateClassifier) {
		c.logger = logger
	}
}

// NewStateClassifier creates a classifier.
func NewStateClassifier(opts ...ClassifierOption) *StateClassifier {
	c := &StateClassifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns one state per declared spec, in declaration order,
// followed by one UnmanagedFile state per stray file in the plugin directory.
func (c *StateClassifier) Classify(ctx context.Context, server ports.Inventory, available *Availability) ([]entities.PluginState, error) {
	wanted := server.WantedPlugins()
	states := make([]entities.PluginState, 0, len(wanted))
	expected := make([]string, 0, len(wanted))

	for _, spec := range wanted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		expected = append(expected, spec.LinkName())

		state, err := c.classifySpec(ctx, server, available, spec)
		if err != nil {
			return nil, fmt.Errorf("classify %s on server %s: %w", spec.Name, server.Name(), err)
		}
		c.logger.Debug("classified plugin", "server", server.Name(), "plugin", spec.Name, "state", state.Kind.String())
		states = append(states, state)
	}

	unmanaged, err := server.UnmanagedFiles(ctx, expected)
	if err != nil {
		return nil, err
	}
	for _, filename := range unmanaged {
		states = append(states, entities.UnmanagedFile(filename))
	}

	return states, nil
}

func (c *StateClassifier) classifySpec(ctx context.Context, server ports.Inventory, available *Availability, spec entities.PluginSpec) (entities.PluginState, error) {
	link, err := server.LinkState(ctx, spec.Name)
	if err != nil {
		return entities.PluginState{}, err
	}
	if link == ports.LinkConflict {
		return entities.SymlinkConflict(spec), nil
	}

	stored, err := server.StoredPlugins(ctx, spec.Name)
	if err != nil {
		return entities.PluginState{}, err
	}

	var compatible []entities.Plugin
	for _, p := range stored {
		if spec.Contains(p.Version) {
			compatible = append(compatible, p)
		}
	}
	compatible = append(compatible, available.Candidates(spec)...)

	preferred, ok := entities.MaxPlugin(compatible)
	if !ok {
		return entities.MissingVersions(spec), nil
	}

	current, linked, err := server.CurrentVersionFor(ctx, spec.Name)
	if err != nil {
		return entities.PluginState{}, err
	}
	switch {
	case !linked:
		return entities.Available(spec, preferred), nil
	case current.Equals(preferred.Version):
		return entities.Installed(spec, current), nil
	default:
		return entities.OutdatedSymlink(spec, current, preferred.Version), nil
	}
}
