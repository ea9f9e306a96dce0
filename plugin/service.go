// Package plugin wires catalogs, inventories and transactions into the
// mpm use cases.
package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/mpm-dev/mpm/plugin/services"
	"github.com/mpm-dev/mpm/plugin/transaction"
)

// SyncService orchestrates classification and convergence of servers.
// Coordinates domain services and infrastructure adapters.
type SyncService struct {
	catalogs    []ports.Catalog
	classifier  *services.StateClassifier
	factory     ports.TransactionFactory
	journal     ports.JournalRepository
	logger      *slog.Logger
	onCommit    func(ports.Transaction)
	journalPath string
}

// SyncServiceOption configures a SyncService.
type SyncServiceOption func(*SyncService)

// NewSyncService creates a sync service over catalogs, searched in order.
func NewSyncService(catalogs []ports.Catalog, opts ...SyncServiceOption) *SyncService {
	s := &SyncService{
		catalogs: catalogs,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.factory == nil {
		s.factory = transaction.NewFactory(transaction.WithLogger(s.logger))
	}
	s.classifier = services.NewStateClassifier(services.WithClassifierLogger(s.logger))
	return s
}

// WithTransactionFactory sets the factory the resolver builds transactions with.
func WithTransactionFactory(f ports.TransactionFactory) SyncServiceOption {
	return func(s *SyncService) { s.factory = f }
}

// WithJournal persists sync journals to path.
func WithJournal(repo ports.JournalRepository, path string) SyncServiceOption {
	return func(s *SyncService) {
		s.journal = repo
		s.journalPath = path
	}
}

// WithCommitHook registers fn to run after each committed transaction.
func WithCommitHook(fn func(ports.Transaction)) SyncServiceOption {
	return func(s *SyncService) { s.onCommit = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SyncServiceOption {
	return func(s *SyncService) { s.logger = l }
}

// States classifies one server against the catalogs.
func (s *SyncService) States(ctx context.Context, server ports.Inventory) ([]entities.PluginState, error) {
	available, err := services.CollectAvailability(ctx, s.catalogs)
	if err != nil {
		return nil, err
	}
	return s.classifier.Classify(ctx, server, available)
}

// Plan returns the transactions converging servers to their specs.
func (s *SyncService) Plan(ctx context.Context, servers ...ports.Inventory) ([]ports.Transaction, error) {
	available, err := services.CollectAvailability(ctx, s.catalogs)
	if err != nil {
		return nil, err
	}

	resolver := services.NewTransactionResolver(s.factory, services.WithResolverLogger(s.logger))
	plan, err := resolver.Resolve(ctx, servers, available)
	if err != nil {
		return nil, fmt.Errorf("plan failed: %w", err)
	}
	s.logger.Debug("planned sync", "servers", len(servers), "transactions", len(plan))
	return plan, nil
}

// Apply executes plan as one batch. Nothing is mutated when any transaction
// fails its test.
func (s *SyncService) Apply(ctx context.Context, plan []ports.Transaction) (*entities.SyncJournal, error) {
	opts := []transaction.BatchOption{transaction.WithBatchLogger(s.logger)}
	if s.journal != nil {
		opts = append(opts, transaction.WithJournal(s.journal, s.journalPath))
	}
	if s.onCommit != nil {
		opts = append(opts, transaction.WithCommitHook(s.onCommit))
	}

	batch := transaction.NewBatch(plan, opts...)
	journal, err := batch.Apply(ctx)
	if err != nil {
		return journal, fmt.Errorf("sync batch %s: %w", batch.ID(), err)
	}
	if journal != nil {
		s.logger.Info("sync complete", "batch", batch.ID(), "steps", journal.StepCount())
	}
	return journal, nil
}

// LastJournal returns the journal of the previous sync, or nil when none was recorded.
func (s *SyncService) LastJournal(ctx context.Context) (*entities.SyncJournal, error) {
	if s.journal == nil {
		return nil, nil
	}
	journal, err := s.journal.Load(ctx, s.journalPath)
	if err != nil {
		return nil, fmt.Errorf("loading sync journal: %w", err)
	}
	return journal, nil
}
