package filesystem_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileJournalRepository(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	journalPath := filepath.Join(tmpDir, "state", "last-sync.yaml")
	repo := filesystem.NewFileJournalRepository()
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		journal := entities.NewSyncJournal("3f6c1a52-9d1e-4c55-8f0e-1b7a3c1d2e4f")
		journal.Started = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		err := journal.RecordStep(entities.JournalStep{
			Server:  "lobby",
			Action:  "install",
			Plugin:  "foo",
			Version: "1.2.0",
		})
		require.NoError(t, err)
		journal.Complete()

		err = repo.Save(ctx, journal, journalPath)
		require.NoError(t, err)

		exists, err := repo.Exists(ctx, journalPath)
		require.NoError(t, err)
		assert.True(t, exists)

		loaded, err := repo.Load(ctx, journalPath)
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, journal.BatchID, loaded.BatchID)
		assert.Equal(t, entities.JournalCompleted, loaded.Status)
		assert.Equal(t, journal.Started.Unix(), loaded.Started.Unix())
		require.Len(t, loaded.Steps, 1)
		assert.Equal(t, "lobby", loaded.Steps[0].Server)
		assert.Equal(t, "1.2.0", loaded.Steps[0].Version)
		assert.False(t, loaded.Interrupted())

		// No temporary file is left next to the journal
		entries, err := os.ReadDir(filepath.Dir(journalPath))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("Save overwrites", func(t *testing.T) {
		path := filepath.Join(tmpDir, "overwrite.yaml")

		first := entities.NewSyncJournal("first")
		require.NoError(t, repo.Save(ctx, first, path))

		second := entities.NewSyncJournal("second")
		second.Fail(errors.New("commit failed"))
		require.NoError(t, repo.Save(ctx, second, path))

		loaded, err := repo.Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "second", loaded.BatchID)
		assert.Equal(t, "commit failed", loaded.Error)
	})

	t.Run("Load non-existent", func(t *testing.T) {
		loaded, err := repo.Load(ctx, filepath.Join(tmpDir, "missing.yaml"))
		require.NoError(t, err)
		assert.Nil(t, loaded)

		loaded, err = repo.Load(ctx, filepath.Join(tmpDir, "missing-dir", "journal.yaml"))
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("Load invalid", func(t *testing.T) {
		path := filepath.Join(tmpDir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("status: running\n"), 0o600))

		_, err := repo.Load(ctx, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is invalid")
	})
}

func TestFileJournalRepository_LoadInterruptedBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".mpm-journal.yaml")
	repo := filesystem.NewFileJournalRepository()
	ctx := context.Background()

	journal := entities.NewSyncJournal("killed-mid-batch")
	require.NoError(t, journal.RecordStep(entities.JournalStep{Server: "lobby", Action: "install", Plugin: "foo", Version: "1.2.0"}))
	require.NoError(t, repo.Save(ctx, journal, path))

	// A crash during the next save leaves its staging file behind
	staging := filepath.Join(dir, "..mpm-journal.yaml.tmp")
	require.NoError(t, os.WriteFile(staging, []byte("steps: [{server: lo"), 0o600))

	loaded, err := repo.Load(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Interrupted())
	assert.Equal(t, 1, loaded.StepCount())

	_, err = os.Stat(staging)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileJournalRepository_LoadRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "empty file",
			content: "\n",
		},
		{
			name:    "newer layout",
			content: "batch_id: b1\nstarted: 2025-01-01T00:00:00Z\nstatus: running\njournal_version: 2\n",
			wantErr: "newest supported is 1",
		},
		{
			name:    "unknown status",
			content: "batch_id: b1\nstarted: 2025-01-01T00:00:00Z\nstatus: paused\njournal_version: 1\n",
			wantErr: `unknown status "paused"`,
		},
		{
			name:    "not yaml",
			content: "batch_id: [unterminated\n",
			wantErr: "is corrupt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "journal.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			loaded, err := filesystem.NewFileJournalRepository().Load(context.Background(), path)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Nil(t, loaded)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
