// Package filesystem provides file-based adapters for the infrastructure layer.
package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/mpm-dev/mpm/plugin/entities"
)

// FileJournalRepository implements ports.JournalRepository using the local filesystem.
type FileJournalRepository struct{}

// NewFileJournalRepository creates a new FileJournalRepository.
func NewFileJournalRepository() *FileJournalRepository {
	return &FileJournalRepository{}
}

// journalVersion is the newest journal layout this repository understands.
const journalVersion = 1

// Load returns the journal recorded at path, or nil when no sync has been
// recorded there. A journal left in the running state by a killed process is
// returned as is; callers detect it with SyncJournal.Interrupted. A staging
// file orphaned by a crash during Save is removed.
func (r *FileJournalRepository) Load(ctx context.Context, path string) (*entities.SyncJournal, error) {
	root, err := os.OpenRoot(filepath.Dir(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal directory: %w", err)
	}
	defer func() { _ = root.Close() }()

	base := filepath.Base(path)
	if err := root.Remove(stagingName(base)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("removing stale journal staging file: %w", err)
	}

	data, err := root.ReadFile(base)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading journal %q: %w", path, err)
	case len(bytes.TrimSpace(data)) == 0:
		return nil, nil
	}

	var record Journal
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("journal %q is corrupt: %w", path, err)
	}
	if record.Version > journalVersion {
		return nil, fmt.Errorf("journal %q has version %d, newest supported is %d", path, record.Version, journalVersion)
	}

	journal := record.ToEntity()
	switch journal.Status {
	case entities.JournalRunning, entities.JournalCompleted, entities.JournalFailed:
	default:
		return nil, fmt.Errorf("journal %q has unknown status %q", path, journal.Status)
	}
	if err := journal.Validate(); err != nil {
		return nil, fmt.Errorf("journal %q is invalid: %w", path, err)
	}
	return journal, nil
}

func stagingName(base string) string {
	return "." + base + ".tmp"
}

// Save writes a journal to the given path.
// The journal is written to a temporary file and renamed into place so a
// crash never leaves a truncated journal behind.
func (r *FileJournalRepository) Save(ctx context.Context, journal *entities.SyncJournal, path string) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("opening directory for write %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	base := filepath.Base(path)
	tmp := stagingName(base)

	file, err := root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating journal %q: %w", tmp, err)
	}

	encoder := yaml.NewEncoder(file)
	if err := encoder.Encode(FromEntity(journal)); err != nil {
		_ = file.Close()
		_ = root.Remove(tmp)
		return fmt.Errorf("encoding journal: %w", err)
	}
	if err := encoder.Close(); err != nil {
		_ = file.Close()
		_ = root.Remove(tmp)
		return fmt.Errorf("encoding journal: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = root.Remove(tmp)
		return fmt.Errorf("closing journal %q: %w", tmp, err)
	}

	if err := os.Rename(filepath.Join(dir, tmp), path); err != nil {
		_ = root.Remove(tmp)
		return fmt.Errorf("replacing journal %q: %w", path, err)
	}

	return nil
}

// Exists checks if a journal exists at the given path.
func (r *FileJournalRepository) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
