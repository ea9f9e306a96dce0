package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/ports"
)

// TransactionResolver plans the transactions that converge servers to their specs.
type TransactionResolver struct {
	factory ports.TransactionFactory
	logger  *slog.Logger
}

// ResolverOption configures a TransactionResolver.
type ResolverOption func(*TransactionResolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *TransactionResolver) {
		r.logger = logger
	}
}

// NewTransactionResolver creates a resolver emitting transactions built by factory.
func NewTransactionResolver(factory ports.TransactionFactory, opts ...ResolverOption) *TransactionResolver {
	r := &TransactionResolver{
		factory: factory,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the ordered plan for servers, visited by name.
// Within a server, specs are visited in declaration order and an install or
// link precedes the removals it makes obsolete. Installed plugins no spec
// declares are removed last.
func (r *TransactionResolver) Resolve(ctx context.Context, servers []ports.Inventory, available *Availability) ([]ports.Transaction, error) {
	ordered := make([]ports.Inventory, len(servers))
	copy(ordered, servers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Name() < ordered[j].Name()
	})

	var plan []ports.Transaction
	for _, server := range ordered {
		txs, err := r.resolveServer(ctx, server, available)
		if err != nil {
			return nil, fmt.Errorf("resolve server %s: %w", server.Name(), err)
		}
		plan = append(plan, txs...)
	}
	return plan, nil
}

func (r *TransactionResolver) resolveServer(ctx context.Context, server ports.Inventory, available *Availability) ([]ports.Transaction, error) {
	installed, err := server.InstalledPlugins(ctx)
	if err != nil {
		return nil, err
	}

	var txs []ports.Transaction
	declared := make(map[string]struct{})

	for _, spec := range server.WantedPlugins() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		declared[spec.Name] = struct{}{}

		repoVersions := available.Candidates(spec)
		if len(repoVersions) == 0 {
			r.logger.Debug("no compatible artifact", "server", server.Name(), "plugin", spec.Name, "constraint", spec.Constraint.String())
			continue
		}

		link, err := server.LinkState(ctx, spec.Name)
		if err != nil {
			return nil, err
		}
		if link == ports.LinkConflict {
			r.logger.Warn("skipping plugin with conflicting file", "server", server.Name(), "path", spec.LinkName())
			continue
		}

		var installedVersions []entities.Plugin
		for _, p := range installed {
			if p.Name == spec.Name {
				installedVersions = append(installedVersions, p)
			}
		}

		best, _ := entities.MaxPlugin(append(append([]entities.Plugin{}, installedVersions...), repoVersions...))
		if !entities.ContainsPlugin(installedVersions, best) {
			tx, err := r.bringIn(ctx, server, best)
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
		}

		for _, p := range installedVersions {
			if !p.Equals(best) {
				txs = append(txs, r.factory.Remove(server, p))
			}
		}
	}

	for _, p := range installed {
		if _, ok := declared[p.Name]; !ok {
			txs = append(txs, r.factory.Remove(server, p))
		}
	}

	return txs, nil
}

// bringIn links best when its artifact already sits in the versions directory,
// and installs it otherwise.
func (r *TransactionResolver) bringIn(ctx context.Context, server ports.Inventory, best entities.Plugin) (ports.Transaction, error) {
	stored, err := server.StoredPlugins(ctx, best.Name)
	if err != nil {
		return nil, err
	}
	for _, p := range stored {
		if p.Equals(best) {
			return r.factory.Link(server, p), nil
		}
	}
	return r.factory.Install(server, best), nil
}
