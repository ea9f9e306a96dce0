package commands

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/mpm-dev/mpm/config"
	"github.com/mpm-dev/mpm/plugin"
	"github.com/mpm-dev/mpm/plugin/filesystem"
	"github.com/mpm-dev/mpm/plugin/inventory"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/mpm-dev/mpm/plugin/repository"
	"github.com/mpm-dev/mpm/prompt"
	"github.com/mpm-dev/mpm/report"
)

// journalFile is kept next to the config file.
const journalFile = ".mpm-journal.yaml"

// workspace is the loaded configuration and the adapters built from it.
type workspace struct {
	opts  *options
	store *config.FileStore
	doc   *config.Document
	fs    ports.Filesystem
}

func (o *options) load() (*workspace, error) {
	store := config.NewFileStore(config.WithPath(o.configPath))
	doc, err := store.Load()
	if err != nil {
		return nil, err
	}
	o.logger.Debug("loaded config", "path", store.ConfigPath(),
		"repositories", len(doc.Repositories), "servers", len(doc.Servers))
	return &workspace{opts: o, store: store, doc: doc, fs: ports.OSFilesystem()}, nil
}

func (w *workspace) save() error {
	return w.store.Save(w.doc)
}

func (w *workspace) report() *report.Writer {
	return report.NewWriter(w.opts.out)
}

// catalogs returns every configured repository in name order.
func (w *workspace) catalogs() []ports.Catalog {
	names := w.doc.RepositoryNames()
	out := make([]ports.Catalog, 0, len(names))
	for _, name := range names {
		out = append(out, repository.NewFSCatalog(name, w.doc.Repositories[name].Path,
			repository.WithFilesystem(w.fs),
			repository.WithLogger(w.opts.logger),
		))
	}
	return out
}

// inventory builds the server named name with its resolved requirement set.
func (w *workspace) inventory(name string) (*inventory.FSInventory, error) {
	server, err := w.doc.Server(name)
	if err != nil {
		return nil, err
	}
	specs, err := w.doc.Specs(name)
	if err != nil {
		return nil, err
	}
	return inventory.NewFSInventory(name, server.Path, specs,
		inventory.WithFilesystem(w.fs),
		inventory.WithLogger(w.opts.logger),
	), nil
}

// inventories builds the named servers, or every server when names is empty.
func (w *workspace) inventories(names []string) ([]*inventory.FSInventory, error) {
	if len(names) == 0 {
		names = w.doc.ServerNames()
	}
	out := make([]*inventory.FSInventory, 0, len(names))
	for _, name := range names {
		inv, err := w.inventory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

func (w *workspace) journalPath() string {
	return filepath.Join(filepath.Dir(w.store.ConfigPath()), journalFile)
}

func (w *workspace) syncService(opts ...plugin.SyncServiceOption) *plugin.SyncService {
	opts = append([]plugin.SyncServiceOption{
		plugin.WithLogger(w.opts.logger),
		plugin.WithJournal(filesystem.NewFileJournalRepository(), w.journalPath()),
	}, opts...)
	return plugin.NewSyncService(w.catalogs(), opts...)
}

func (w *workspace) repoService() *plugin.RepoService {
	return plugin.NewRepoService(w.catalogs(),
		plugin.WithRepoFilesystem(w.fs),
		plugin.WithRepoLogger(w.opts.logger),
	)
}

// confirm asks question. A missing terminal cancels instead of failing.
func (o *options) confirm(ctx context.Context, question string) (bool, error) {
	ok, err := o.prompter.Confirm(ctx, question)
	if errors.Is(err, prompt.ErrNonInteractive) {
		o.printf("Cancelled: %v\n", err)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !ok {
		o.printf("Cancelled.\n")
	}
	return ok, nil
}
