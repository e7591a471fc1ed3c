// Package registry implements the dedup registry semantics on top of the
// persistence layer: the append-only reporting log and the latest-prediction
// table that supersedes older scores per (customer, model).
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Registry manages the reporting history for one scope.
type Registry struct {
	repo  domain.Repository
	scope domain.RegistryScope
	log   *slog.Logger
}

// New creates a registry bound to a scope.
func New(repo domain.Repository, scope domain.RegistryScope, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{repo: repo, scope: scope, log: log}
}

// Scope returns the registry's scope.
func (r *Registry) Scope() domain.RegistryScope {
	return r.scope
}

// Append writes entries to the append log best-effort: a failed row is
// logged and skipped so one bad row cannot lose a whole cycle's report.
// Returns the number of rows appended.
func (r *Registry) Append(ctx context.Context, entries []*domain.RegistryEntry) int {
	appended := 0
	for _, e := range entries {
		e.RegistryScope = r.scope
		if err := r.repo.AppendRegistryEntry(ctx, e); err != nil {
			r.log.Warn("failed to append registry entry",
				"customer_id", e.CustomerID,
				"report_date", e.ReportDate.Format("2006-01-02"),
				"error", err,
			)
			continue
		}
		appended++
	}
	return appended
}

// UpdateLatest merges incoming entries into the latest-prediction table and
// rewrites it as a whole. For each (customer, model) key the entry with the
// most recent report date wins; on a tie the incoming entry supersedes the
// stored one.
func (r *Registry) UpdateLatest(ctx context.Context, incoming []*domain.RegistryEntry) error {
	existing, err := r.repo.LatestPredictionRows(ctx, r.scope)
	if err != nil {
		return fmt.Errorf("failed to load latest predictions: %w", err)
	}

	merged := make(map[string]*domain.RegistryEntry, len(existing)+len(incoming))
	for _, e := range existing {
		merged[e.LatestKey()] = e
	}
	for _, e := range incoming {
		e.RegistryScope = r.scope
		key := e.LatestKey()
		if cur, ok := merged[key]; ok && cur.ReportDate.After(e.ReportDate) {
			continue
		}
		merged[key] = e
	}

	rows := make([]*domain.RegistryEntry, 0, len(merged))
	for _, e := range merged {
		rows = append(rows, e)
	}
	sort.Slice(rows, func(a, b int) bool {
		if rows[a].CustomerID != rows[b].CustomerID {
			return rows[a].CustomerID < rows[b].CustomerID
		}
		return rows[a].ModelName < rows[b].ModelName
	})

	if err := r.repo.ReplaceLatestPredictions(ctx, r.scope, rows); err != nil {
		return fmt.Errorf("failed to rewrite latest predictions: %w", err)
	}

	r.log.Info("latest predictions updated",
		"incoming", len(incoming),
		"total", len(rows),
	)
	return nil
}

// LatestPredictions returns the stored latest-prediction rows for the scope.
func (r *Registry) LatestPredictions(ctx context.Context) ([]*domain.RegistryEntry, error) {
	return r.repo.LatestPredictionRows(ctx, r.scope)
}
