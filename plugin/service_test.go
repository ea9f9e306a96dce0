package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/inventory"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/mpm-dev/mpm/plugin/repository"
	"github.com/mpm-dev/mpm/plugin/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type testingT interface {
	require.TestingT
	Helper()
}

func writeArtifacts(t testingT, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(n), 0o600))
	}
}

func newServer(t testingT, root string, specs ...entities.PluginSpec) *inventory.FSInventory {
	t.Helper()
	set := entities.NewSpecSet()
	for _, s := range specs {
		set.Set(s)
	}
	inv := inventory.NewFSInventory(filepath.Base(root), root, set)
	require.NoError(t, inv.EnsureLayout())
	return inv
}

func mustPlugin(t *testing.T, name, version string) entities.Plugin {
	t.Helper()
	return entities.Plugin{Name: name, Version: values.MustCoerceVersion(version), Path: filepath.Join("/src", name+"-"+version+".jar")}
}

func TestSyncService_PlanApplyConverges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	base := t.TempDir()

	repoDir := filepath.Join(base, "repo")
	writeArtifacts(t, repoDir, "foo-1.0.0.jar", "foo-1.2.0.jar", "bar-2.0.0.jar")

	lobby := newServer(t, filepath.Join(base, "lobby"),
		entities.MustNewPluginSpec("foo", ">=1.0,<2.0"),
		entities.MustNewPluginSpec("bar", "*"),
	)
	writeArtifacts(t, lobby.VersionsDir(), "foo-1.0.0.jar")
	require.NoError(t, os.Symlink(filepath.Join("versions", "foo-1.0.0.jar"), filepath.Join(lobby.PluginDir(), "foo.jar")))

	journals := &MockJournalRepository{}
	var committed []string
	svc := NewSyncService(
		[]ports.Catalog{repository.NewFSCatalog("main", repoDir)},
		WithLogger(NewTestLogger()),
		WithJournal(journals, "journal.yaml"),
		WithCommitHook(func(tx ports.Transaction) { committed = append(committed, tx.String()) }),
	)

	states, err := svc.States(ctx, lobby)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, entities.StateOutdatedSymlink, states[0].Kind)
	assert.Equal(t, entities.StateAvailable, states[1].Kind)

	plan, err := svc.Plan(ctx, lobby)
	require.NoError(t, err)
	require.Len(t, plan, 3)

	journal, err := svc.Apply(ctx, plan)
	require.NoError(t, err)
	require.NotNil(t, journal)
	assert.Equal(t, entities.JournalCompleted, journal.Status)
	assert.Equal(t, []string{
		"Install foo 1.2.0 to lobby",
		"Remove foo 1.0.0 from lobby",
		"Install bar 2.0.0 to lobby",
	}, committed)

	last, err := svc.LastJournal(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, journal.BatchID, last.BatchID)
	assert.Len(t, last.Steps, 3)

	replan, err := svc.Plan(ctx, lobby)
	require.NoError(t, err)
	assert.Empty(t, replan)

	states, err = svc.States(ctx, lobby)
	require.NoError(t, err)
	for _, s := range states {
		assert.Equal(t, entities.StateInstalled, s.Kind, s.String())
	}
}

func TestSyncService_ApplyStopsOnFailedTest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	base := t.TempDir()

	repoDir := filepath.Join(base, "repo")
	writeArtifacts(t, repoDir, "foo-1.0.0.jar")
	lobby := newServer(t, filepath.Join(base, "lobby"), entities.MustNewPluginSpec("foo", "*"))

	journals := &MockJournalRepository{}
	svc := NewSyncService(
		[]ports.Catalog{repository.NewFSCatalog("main", repoDir)},
		WithLogger(NewTestLogger()),
		WithJournal(journals, "journal.yaml"),
	)

	plan, err := svc.Plan(ctx, lobby)
	require.NoError(t, err)
	require.Len(t, plan, 1)

	// The source disappears between planning and applying
	require.NoError(t, os.Remove(filepath.Join(repoDir, "foo-1.0.0.jar")))

	journal, err := svc.Apply(ctx, plan)
	require.Error(t, err)
	assert.Nil(t, journal)
	assert.True(t, errors.Is(err, entities.ErrArtifactMissing))
	assert.Zero(t, journals.Saves)

	last, err := svc.LastJournal(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestSyncService_NoJournal(t *testing.T) {
	t.Parallel()

	svc := NewSyncService(nil, WithLogger(NewTestLogger()))
	last, err := svc.LastJournal(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)

	journal, err := svc.Apply(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, journal)
}

func TestSyncService_CatalogErrorsPropagate(t *testing.T) {
	t.Parallel()

	broken := &MockCatalog{CatalogName: "broken", ListErr: errors.New("permission denied")}
	svc := NewSyncService([]ports.Catalog{broken}, WithLogger(NewTestLogger()))

	_, err := svc.Plan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

// Applying a plan always reaches a fixed point: planning again yields nothing.
func TestSyncService_ApplyReachesFixedPoint(t *testing.T) {
	pool := []string{"1.0.0", "1.1.0", "1.2.0", "2.0.0"}
	constraints := []string{"*", "^1.0", "<2.0", ">=1.1", "~1.1.0"}
	names := []string{"foo", "bar"}

	rapid.Check(t, func(rt *rapid.T) {
		base, err := os.MkdirTemp("", "mpm-fixed-point-")
		require.NoError(rt, err)
		defer os.RemoveAll(base)
		ctx := context.Background()

		repoDir := filepath.Join(base, "repo")
		writeArtifacts(rt, repoDir)

		var specs []entities.PluginSpec
		for _, name := range names {
			if rapid.Bool().Draw(rt, "declare-"+name) {
				constraint := rapid.SampledFrom(constraints).Draw(rt, "constraint-"+name)
				specs = append(specs, entities.MustNewPluginSpec(name, constraint))
			}
		}
		server := newServer(rt, filepath.Join(base, "srv"), specs...)

		for _, name := range names {
			for _, v := range pool {
				file := name + "-" + v + ".jar"
				if rapid.Bool().Draw(rt, "repo-"+file) {
					writeArtifacts(rt, repoDir, file)
				}
				if rapid.Bool().Draw(rt, "stored-"+file) {
					writeArtifacts(rt, server.VersionsDir(), file)
				}
			}

			stored, err := server.StoredPlugins(ctx, name)
			require.NoError(rt, err)
			if len(stored) > 0 && rapid.Bool().Draw(rt, "link-"+name) {
				target := rapid.SampledFrom(stored).Draw(rt, "target-"+name)
				require.NoError(rt, os.Symlink(
					filepath.Join("versions", filepath.Base(target.Path)),
					filepath.Join(server.PluginDir(), name+".jar"),
				))
			}
		}

		svc := NewSyncService([]ports.Catalog{repository.NewFSCatalog("main", repoDir)}, WithLogger(NewTestLogger()))

		plan, err := svc.Plan(ctx, server)
		require.NoError(rt, err)
		_, err = svc.Apply(ctx, plan)
		require.NoError(rt, err)

		replan, err := svc.Plan(ctx, server)
		require.NoError(rt, err)
		if len(replan) != 0 {
			rt.Fatalf("plan after apply is not empty: %v", replan)
		}
	})
}

func TestRepoService_Catalog(t *testing.T) {
	t.Parallel()

	svc := NewRepoService([]ports.Catalog{
		&MockCatalog{CatalogName: "main"},
		&MockCatalog{CatalogName: "snapshots"},
	}, WithRepoLogger(NewTestLogger()))

	c, err := svc.Catalog("snapshots")
	require.NoError(t, err)
	assert.Equal(t, "snapshots", c.Name())

	_, err = svc.Catalog("snapshot")
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	var nf *entities.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Contains(t, nf.Suggestions, "snapshots")
}

func TestRepoService_Expand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArtifacts(t, dir, "foo-1.0.0.jar", "readme.txt")
	writeArtifacts(t, filepath.Join(dir, "nested", "deep"), "bar-2.0.0.jar", "broken.jar")

	svc := NewRepoService(nil, WithRepoLogger(NewTestLogger()))

	tests := []struct {
		name     string
		patterns []string
		plugins  []string
		bad      []string
	}{
		{
			name:     "plain path",
			patterns: []string{filepath.Join(dir, "foo-1.0.0.jar")},
			plugins:  []string{"foo 1.0.0"},
		},
		{
			name:     "recursive glob",
			patterns: []string{filepath.Join(dir, "**", "*.jar")},
			plugins:  []string{"bar 2.0.0", "foo 1.0.0"},
			bad:      []string{"broken.jar"},
		},
		{
			name:     "missing path",
			patterns: []string{filepath.Join(dir, "nope-1.0.0.jar")},
			bad:      []string{"nope-1.0.0.jar"},
		},
		{
			name:     "not an artifact",
			patterns: []string{filepath.Join(dir, "readme.txt")},
			bad:      []string{"readme.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plugins, bad, err := svc.Expand(context.Background(), tt.patterns)
			require.NoError(t, err)

			var gotPlugins, gotBad []string
			for _, p := range plugins {
				gotPlugins = append(gotPlugins, p.String())
			}
			for _, b := range bad {
				gotBad = append(gotBad, b.Name())
			}
			assert.Equal(t, tt.plugins, gotPlugins)
			assert.Equal(t, tt.bad, gotBad)
		})
	}
}

func TestRepoService_Import(t *testing.T) {
	t.Parallel()

	t.Run("imports every plugin", func(t *testing.T) {
		t.Parallel()
		catalog := &MockCatalog{CatalogName: "main", CatalogRoot: "/repo"}
		svc := NewRepoService([]ports.Catalog{catalog}, WithRepoLogger(NewTestLogger()))

		dests, err := svc.Import(context.Background(), "main", []entities.Plugin{
			mustPlugin(t, "foo", "1.0.0"),
			mustPlugin(t, "bar", "2.0.0"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join("/repo", "foo-1.0.0.jar"),
			filepath.Join("/repo", "bar-2.0.0.jar"),
		}, dests)
	})

	t.Run("existing artifact aborts before copying", func(t *testing.T) {
		t.Parallel()
		catalog := &MockCatalog{
			CatalogName: "main",
			CatalogRoot: "/repo",
			Plugins:     []entities.Plugin{mustPlugin(t, "bar", "2.0.0")},
		}
		svc := NewRepoService([]ports.Catalog{catalog}, WithRepoLogger(NewTestLogger()))

		_, err := svc.Import(context.Background(), "main", []entities.Plugin{
			mustPlugin(t, "foo", "1.0.0"),
			mustPlugin(t, "bar", "2.0.0"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, entities.ErrAlreadyExists))
		assert.Empty(t, catalog.Imported)
	})

	t.Run("unknown repository", func(t *testing.T) {
		t.Parallel()
		svc := NewRepoService(nil, WithRepoLogger(NewTestLogger()))

		_, err := svc.Import(context.Background(), "main", nil)
		assert.True(t, errors.Is(err, entities.ErrNotFound))
	})
}

func TestRepoService_BestVersion(t *testing.T) {
	t.Parallel()

	svc := NewRepoService([]ports.Catalog{
		&MockCatalog{CatalogName: "main", Plugins: []entities.Plugin{
			mustPlugin(t, "lobby-tools", "1.0.0"),
			mustPlugin(t, "lobby-tools", "1.4.0"),
		}},
		&MockCatalog{CatalogName: "extra", Plugins: []entities.Plugin{
			mustPlugin(t, "lobby-tools", "1.10.0"),
		}},
	}, WithRepoLogger(NewTestLogger()))

	best, err := svc.BestVersion(context.Background(), "lobby-tools")
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", best.Version.String())

	_, err = svc.BestVersion(context.Background(), "lobbytools")
	var nf *entities.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"lobby-tools"}, nf.Suggestions)
}
