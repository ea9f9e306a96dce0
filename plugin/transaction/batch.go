package transaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/ports"
)

// Phase names the batch step a transaction failed in.
type Phase string

const (
	PhaseTest   Phase = "test"
	PhaseStage  Phase = "stage"
	PhaseCommit Phase = "commit"
)

// Error reports the transaction that stopped a batch.
type Error struct {
	Err         error
	Transaction string
	Phase       Phase
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed during %s: %v", e.Transaction, e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Batch applies a plan in three passes: test everything, stage everything, then
// commit in order. Nothing is mutated unless every test and every stage succeeded.
// A commit failure stops the batch; earlier commits stay in place and are
// recorded in the journal.
type Batch struct {
	journal     ports.JournalRepository
	logger      *slog.Logger
	onCommit    func(ports.Transaction)
	id          string
	journalPath string
	txs         []ports.Transaction
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithJournal persists the journal to path after every committed step.
func WithJournal(repo ports.JournalRepository, path string) BatchOption {
	return func(b *Batch) {
		b.journal = repo
		b.journalPath = path
	}
}

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		b.logger = logger
	}
}

// WithCommitHook registers fn to run after each committed transaction.
func WithCommitHook(fn func(ports.Transaction)) BatchOption {
	return func(b *Batch) {
		b.onCommit = fn
	}
}

// NewBatch creates a batch for txs with a fresh batch ID.
func NewBatch(txs []ports.Transaction, opts ...BatchOption) *Batch {
	b := &Batch{
		id:     uuid.NewString(),
		txs:    txs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID returns the batch ID.
func (b *Batch) ID() string {
	return b.id
}

// Apply runs the batch. The returned journal is nil when the batch stopped
// before any mutation.
func (b *Batch) Apply(ctx context.Context) (*entities.SyncJournal, error) {
	for _, tx := range b.txs {
		if err := tx.Test(ctx); err != nil {
			return nil, &Error{Transaction: tx.String(), Phase: PhaseTest, Err: err}
		}
	}
	if len(b.txs) == 0 {
		return nil, nil
	}

	journal := entities.NewSyncJournal(b.id)
	b.save(ctx, journal)

	var staged []ports.Stager
	for _, tx := range b.txs {
		stager, ok := tx.(ports.Stager)
		if !ok {
			continue
		}
		if err := stager.Stage(ctx); err != nil {
			discardAll(staged)
			_ = stager.Discard()
			return b.fail(ctx, journal, &Error{Transaction: tx.String(), Phase: PhaseStage, Err: err})
		}
		staged = append(staged, stager)
	}
	b.logger.Debug("staged batch", "batch", b.id, "transactions", len(b.txs), "staged", len(staged))

	for i, tx := range b.txs {
		err := ctx.Err()
		if err == nil {
			err = commit(ctx, tx)
		}
		if err != nil {
			discardRemaining(b.txs[i:])
			return b.fail(ctx, journal, &Error{Transaction: tx.String(), Phase: PhaseCommit, Err: err})
		}

		plugin := tx.Plugin()
		if err := journal.RecordStep(entities.JournalStep{
			Server:  tx.Server(),
			Action:  tx.Action(),
			Plugin:  plugin.Name,
			Version: plugin.Version.String(),
		}); err != nil {
			return journal, err
		}
		b.save(ctx, journal)
		b.logger.Info("committed", "batch", b.id, "transaction", tx.String())
		if b.onCommit != nil {
			b.onCommit(tx)
		}
	}

	journal.Complete()
	b.save(ctx, journal)
	return journal, nil
}

func commit(ctx context.Context, tx ports.Transaction) error {
	if stager, ok := tx.(ports.Stager); ok {
		return stager.Commit(ctx)
	}
	return tx.Run(ctx)
}

func (b *Batch) fail(ctx context.Context, journal *entities.SyncJournal, err error) (*entities.SyncJournal, error) {
	journal.Fail(err)
	b.save(ctx, journal)
	return journal, err
}

// save persists the journal. Write failures are logged and do not stop the batch.
func (b *Batch) save(ctx context.Context, journal *entities.SyncJournal) {
	if b.journal == nil || b.journalPath == "" {
		return
	}
	if err := b.journal.Save(ctx, journal, b.journalPath); err != nil {
		b.logger.Warn("failed to write sync journal", "path", b.journalPath, "error", err)
	}
}

func discardAll(stagers []ports.Stager) {
	for _, s := range stagers {
		_ = s.Discard()
	}
}

func discardRemaining(txs []ports.Transaction) {
	for _, tx := range txs {
		if stager, ok := tx.(ports.Stager); ok {
			_ = stager.Discard()
		}
	}
}
