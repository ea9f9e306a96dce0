package plugin

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/mpm-dev/mpm/plugin/values"
)

// MockCatalog implements ports.Catalog for testing
type MockCatalog struct {
	CatalogName string
	CatalogRoot string

	Plugins []entities.Plugin
	Bad     []entities.BadFile
	ListErr error

	Imported  []entities.Plugin
	ImportErr error
}

func (m *MockCatalog) Name() string { return m.CatalogName }
func (m *MockCatalog) Root() string { return m.CatalogRoot }

func (m *MockCatalog) List(ctx context.Context) ([]entities.Plugin, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Plugins, nil
}

func (m *MockCatalog) BadFiles(ctx context.Context) ([]entities.BadFile, error) {
	return m.Bad, nil
}

func (m *MockCatalog) VersionsFor(ctx context.Context, name string) ([]values.Version, error) {
	var out []values.Version
	for _, p := range m.Plugins {
		if p.Name == name {
			out = append(out, p.Version)
		}
	}
	return out, nil
}

func (m *MockCatalog) Import(ctx context.Context, plugin entities.Plugin) (string, error) {
	if m.ImportErr != nil {
		return "", m.ImportErr
	}
	m.Imported = append(m.Imported, plugin)
	dest := filepath.Join(m.CatalogRoot, plugin.Filename())
	plugin.Path = dest
	m.Plugins = append(m.Plugins, plugin)
	return dest, nil
}

// MockJournalRepository implements ports.JournalRepository in memory
type MockJournalRepository struct {
	Saved   map[string]*entities.SyncJournal
	SaveErr error
	Saves   int
}

func (m *MockJournalRepository) Load(ctx context.Context, path string) (*entities.SyncJournal, error) {
	return m.Saved[path], nil
}

func (m *MockJournalRepository) Save(ctx context.Context, journal *entities.SyncJournal, path string) error {
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.Saved == nil {
		m.Saved = make(map[string]*entities.SyncJournal)
	}
	snapshot := *journal
	snapshot.Steps = append([]entities.JournalStep(nil), journal.Steps...)
	m.Saved[path] = &snapshot
	return nil
}

func (m *MockJournalRepository) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := m.Saved[path]
	return ok, nil
}

// MockPrompter implements ports.Prompter with a fixed answer
type MockPrompter struct {
	Answer    bool
	Err       error
	Questions []string
}

func (m *MockPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	m.Questions = append(m.Questions, question)
	return m.Answer, m.Err
}

var (
	_ ports.Catalog           = (*MockCatalog)(nil)
	_ ports.JournalRepository = (*MockJournalRepository)(nil)
	_ ports.Prompter          = (*MockPrompter)(nil)
)

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
