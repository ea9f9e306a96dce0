package ports

import (
	"context"

	"github.com/mpm-dev/mpm/plugin/entities"
)

// JournalRepository manages sync journal persistence.
type JournalRepository interface {
	Load(ctx context.Context, path string) (*entities.SyncJournal, error)
	Save(ctx context.Context, journal *entities.SyncJournal, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
