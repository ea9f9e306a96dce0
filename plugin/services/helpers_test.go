package services_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/inventory"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/mpm-dev/mpm/plugin/repository"
	"github.com/mpm-dev/mpm/plugin/services"
	"github.com/stretchr/testify/require"
)

// fixture builds repositories and servers on disk.
type fixture struct {
	t    *testing.T
	base string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, base: t.TempDir()}
}

// repo creates a repository directory holding the given artifact names.
func (f *fixture) repo(name string, artifacts ...string) ports.Catalog {
	f.t.Helper()
	dir := filepath.Join(f.base, "repos", name)
	require.NoError(f.t, os.MkdirAll(dir, 0o750))
	for _, a := range artifacts {
		require.NoError(f.t, os.WriteFile(filepath.Join(dir, a), []byte(a), 0o600))
	}
	return repository.NewFSCatalog(name, dir)
}

// server creates a server directory. stored artifacts go to plugins/versions,
// links maps plugin names to the stored artifact they point at.
func (f *fixture) server(name string, specs []entities.PluginSpec, stored []string, links map[string]string) *inventory.FSInventory {
	f.t.Helper()
	root := filepath.Join(f.base, "servers", name)

	set := entities.NewSpecSet()
	for _, s := range specs {
		set.Set(s)
	}
	inv := inventory.NewFSInventory(name, root, set)
	require.NoError(f.t, inv.EnsureLayout())

	for _, a := range stored {
		require.NoError(f.t, os.WriteFile(filepath.Join(inv.VersionsDir(), a), []byte(a), 0o600))
	}
	for plugin, artifact := range links {
		require.NoError(f.t, os.Symlink(filepath.Join("versions", artifact), filepath.Join(inv.PluginDir(), plugin+".jar")))
	}
	return inv
}

// file places a plain file in the server's plugin directory.
func (f *fixture) file(inv *inventory.FSInventory, name string) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(filepath.Join(inv.PluginDir(), name), []byte(name), 0o600))
}

func (f *fixture) availability(catalogs ...ports.Catalog) *services.Availability {
	f.t.Helper()
	a, err := services.CollectAvailability(context.Background(), catalogs)
	require.NoError(f.t, err)
	return a
}

// recordedTx is a transaction that only records what the resolver asked for.
type recordedTx struct {
	action string
	server string
	plugin entities.Plugin
}

func (r *recordedTx) Test(context.Context) error { return nil }
func (r *recordedTx) Run(context.Context) error  { return nil }
func (r *recordedTx) Server() string             { return r.server }
func (r *recordedTx) Action() string             { return r.action }
func (r *recordedTx) Plugin() entities.Plugin    { return r.plugin }
func (r *recordedTx) String() string {
	return fmt.Sprintf("%s %s %s", r.action, r.server, r.plugin)
}

type recordingFactory struct{}

func (recordingFactory) Install(server ports.Inventory, p entities.Plugin) ports.Transaction {
	return &recordedTx{action: "install", server: server.Name(), plugin: p}
}

func (recordingFactory) Link(server ports.Inventory, p entities.Plugin) ports.Transaction {
	return &recordedTx{action: "link", server: server.Name(), plugin: p}
}

func (recordingFactory) Remove(server ports.Inventory, p entities.Plugin) ports.Transaction {
	return &recordedTx{action: "remove", server: server.Name(), plugin: p}
}

func describe(txs []ports.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.String())
	}
	return out
}

func spec(name, constraint string) entities.PluginSpec {
	return entities.MustNewPluginSpec(name, constraint)
}
