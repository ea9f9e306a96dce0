// Package services contains the plugin reconciliation domain services.
package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/ports"
)

// Availability is the union of the artifacts offered by a set of catalogs.
// Duplicates across catalogs are kept as separate candidates in catalog order.
type Availability struct {
	byName map[string][]entities.Plugin
}

// CollectAvailability lists every catalog once.
func CollectAvailability(ctx context.Context, catalogs []ports.Catalog) (*Availability, error) {
	a := &Availability{byName: make(map[string][]entities.Plugin)}
	for _, catalog := range catalogs {
		plugins, err := catalog.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list repository %s: %w", catalog.Name(), err)
		}
		for _, p := range plugins {
			a.byName[p.Name] = append(a.byName[p.Name], p)
		}
	}
	return a, nil
}

// Candidates returns the artifacts named like spec that satisfy its constraint.
func (a *Availability) Candidates(spec entities.PluginSpec) []entities.Plugin {
	var out []entities.Plugin
	for _, p := range a.byName[spec.Name] {
		if spec.Contains(p.Version) {
			out = append(out, p)
		}
	}
	return out
}

// Best returns the highest version offered for name regardless of constraints.
func (a *Availability) Best(name string) (entities.Plugin, bool) {
	return entities.MaxPlugin(a.byName[name])
}

// Names returns the plugin names on offer, sorted.
func (a *Availability) Names() []string {
	names := make([]string, 0, len(a.byName))
	for name := range a.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
