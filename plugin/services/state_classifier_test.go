package services_test

import (
	"context"
	"testing"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(states []entities.PluginState) []entities.StateKind {
	out := make([]entities.StateKind, 0, len(states))
	for _, s := range states {
		out = append(out, s.Kind)
	}
	return out
}

func TestStateClassifier_Installed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	catalog := f.repo("main", "foo-1.0.0.jar")
	server := f.server("lobby",
		[]entities.PluginSpec{spec("foo", ">=1.0,<2.0")},
		[]string{"foo-1.0.0.jar"},
		map[string]string{"foo": "foo-1.0.0.jar"},
	)

	states, err := services.NewStateClassifier().Classify(context.Background(), server, f.availability(catalog))
	require.NoError(t, err)

	require.Len(t, states, 1)
	assert.Equal(t, entities.StateInstalled, states[0].Kind)
	assert.Equal(t, "1.0.0", states[0].Current.String())
}

func TestStateClassifier_OutdatedSymlink(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	catalog := f.repo("main", "foo-1.0.0.jar", "foo-1.2.0.jar", "foo-2.0.0.jar")
	server := f.server("lobby",
		[]entities.PluginSpec{spec("foo", ">=1.0,<2.0")},
		[]string{"foo-1.0.0.jar"},
		map[string]string{"foo": "foo-1.0.0.jar"},
	)

	states, err := services.NewStateClassifier().Classify(context.Background(), server, f.availability(catalog))
	require.NoError(t, err)

	require.Len(t, states, 1)
	assert.Equal(t, entities.StateOutdatedSymlink, states[0].Kind)
	assert.Equal(t, "1.0.0", states[0].Current.String())
	assert.Equal(t, "1.2.0", states[0].Wanted.String())
}

func TestStateClassifier_IncompatibleLinkWithBetterCandidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	catalog := f.repo("main", "foo-2.1.0.jar", "foo-2.3.0.jar")
	server := f.server("lobby",
		[]entities.PluginSpec{spec("foo", ">=2.0")},
		[]string{"foo-1.5.0.jar"},
		map[string]string{"foo": "foo-1.5.0.jar"},
	)

	states, err := services.NewStateClassifier().Classify(context.Background(), server, f.availability(catalog))
	require.NoError(t, err)

	require.Len(t, states, 1)
	assert.Equal(t, entities.StateOutdatedSymlink, states[0].Kind)
	assert.Equal(t, "1.5.0", states[0].Current.String())
	assert.Equal(t, "2.3.0", states[0].Wanted.String())
}

func TestStateClassifier_StoredVersionBeatsCatalog(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	catalog := f.repo("main", "foo-1.1.0.jar")
	server := f.server("lobby",
		[]entities.PluginSpec{spec("foo", "*")},
		[]string{"foo-1.0.0.jar", "foo-1.3.0.jar"},
		map[string]string{"foo": "foo-1.0.0.jar"},
	)

	states, err := services.NewStateClassifier().Classify(context.Background(), server, f.availability(catalog))
	require.NoError(t, err)

	require.Len(t, states, 1)
	assert.Equal(t, entities.StateOutdatedSymlink, states[0].Kind)
	assert.Equal(t, "1.3.0", states[0].Wanted.String())
}

func TestStateClassifier_Available(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	mainRepo := f.repo("main", "foo-1.0.0.jar")
	extra := f.repo("extra", "foo-1.4.0.jar")
	server := f.server("lobby", []entities.PluginSpec{spec("foo", "^1.0")}, nil, nil)

	states, err := services.NewStateClassifier().Classify(context.Background(), server, f.availability(mainRepo, extra))
	require.NoError(t, err)

	require.Len(t, states, 1)
	assert.Equal(t, entities.StateAvailable, states[0].Kind)
	assert.Equal(t, "foo 1.4.0", states[0].Candidate.String())
	assert.Contains(t, states[0].Candidate.Path, "extra")
}

func TestStateClassifier_MissingVersions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	catalog := f.repo("main", "foo-3.0.0.jar", "bar-1.0.0.jar")
	server := f.server("lobby", []entities.PluginSpec{spec("foo", "<2.0")}, nil, nil)

	states, err := services.NewStateClassifier().Classify(context.Background(), server, f.availability(catalog))
	require.NoError(t, err)

	assert.Equal(t, []entities.StateKind{entities.StateMissingVersions}, kinds(states))
}

func TestStateClassifier_SymlinkConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	catalog := f.repo("main", "baz-1.0.0.jar")
	server := f.server("lobby", []entities.PluginSpec{spec("baz", "*")}, nil, nil)
	f.file(server, "baz.jar")

	states, err := services.NewStateClassifier().Classify(context.Background(), server, f.availability(catalog))
	require.NoError(t, err)

	// The conflicting file is the spec's link path, so it is not also unmanaged
	require.Len(t, states, 1)
	assert.Equal(t, entities.StateSymlinkConflict, states[0].Kind)
	assert.True(t, states[0].Current.IsZero())
	assert.True(t, states[0].Wanted.IsZero())
}

func TestStateClassifier_UnmanagedFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	catalog := f.repo("main", "foo-1.0.0.jar")
	server := f.server("lobby",
		[]entities.PluginSpec{spec("foo", "*")},
		[]string{"foo-1.0.0.jar"},
		map[string]string{"foo": "foo-1.0.0.jar"},
	)
	f.file(server, "bar.jar")

	states, err := services.NewStateClassifier().Classify(context.Background(), server, f.availability(catalog))
	require.NoError(t, err)

	assert.Equal(t, []entities.StateKind{entities.StateInstalled, entities.StateUnmanagedFile}, kinds(states))
	assert.Equal(t, "bar.jar", states[1].Filename)
}

func TestStateClassifier_OneStatePerSpecInOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	catalog := f.repo("main", "a-1.0.0.jar", "c-1.0.0.jar")
	server := f.server("lobby",
		[]entities.PluginSpec{spec("c", "*"), spec("b", "*"), spec("a", "*")},
		nil, nil,
	)

	states, err := services.NewStateClassifier().Classify(context.Background(), server, f.availability(catalog))
	require.NoError(t, err)

	require.Len(t, states, 3)
	assert.Equal(t, "c", states[0].Spec.Name)
	assert.Equal(t, "b", states[1].Spec.Name)
	assert.Equal(t, "a", states[2].Spec.Name)
	assert.Equal(t, []entities.StateKind{
		entities.StateAvailable,
		entities.StateMissingVersions,
		entities.StateAvailable,
	}, kinds(states))
}
