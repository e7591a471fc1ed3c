// Package extraction selects the customers to score for a reference month
// and loads their source data in bounded parallel batches.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/worker"
)

// Extract is the loaded source data for one cycle. Transactions are
// attributed to customers through subject links before they land here.
type Extract struct {
	// EligibleIDs are the normalized customer ids to score, sorted.
	EligibleIDs []string

	Customers    map[string]*domain.Customer
	Transactions map[string][]*domain.Transaction
	AlertEvents  map[string][]*domain.AlertEvent

	// SkippedCount is the number of active customers dropped because they
	// were already reported within the skip horizon.
	SkippedCount int

	// SiblingCount is the number dropped because a sibling detection
	// system alerted them in the reference month.
	SiblingCount int
}

// Orchestrator runs the selection and load phases of a cycle.
type Orchestrator struct {
	repo domain.Repository
	pool *worker.Pool
	cfg  domain.ScoringConfig
	log  *slog.Logger
}

// NewOrchestrator creates an extraction orchestrator.
func NewOrchestrator(repo domain.Repository, cfg domain.ScoringConfig, log *slog.Logger) (*Orchestrator, error) {
	if cfg.BatchSize < 1 {
		return nil, &domain.ValidationError{Field: "batch_size", Value: fmt.Sprintf("%d", cfg.BatchSize), Expected: "positive integer"}
	}
	for _, sys := range cfg.ExcludedSystems {
		if sys == "" {
			return nil, &domain.ValidationError{Field: "excluded_systems", Value: "", Expected: "non-blank system identifiers"}
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		repo: repo,
		pool: worker.NewPool(cfg.FetchWorkers),
		cfg:  cfg,
		log:  log,
	}, nil
}

// Run selects the eligible customers for the reference month and loads
// their history. An empty selection is a valid, empty extract.
func (o *Orchestrator) Run(ctx context.Context, ref RefMonth) (*Extract, error) {
	scope := domain.RegistryScope{
		SystemID:         o.cfg.SystemID,
		ControlCode:      o.cfg.ControlCode,
		IntermediaryCode: o.cfg.IntermediaryCode,
	}

	active, err := o.repo.CustomerIDsActiveBetween(ctx, o.cfg.IntermediaryCode, ref.First(), ref.Last())
	if err != nil {
		return nil, fmt.Errorf("failed to select active customers: %w", err)
	}

	normalized := make([]string, 0, len(active))
	for _, raw := range active {
		id, err := domain.NormalizeCustomerID(raw)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, id)
	}

	skipSet, err := o.skipSet(ctx, scope, ref)
	if err != nil {
		return nil, err
	}
	siblingSet, err := o.siblingSet(ctx, ref)
	if err != nil {
		return nil, err
	}

	ex := &Extract{
		Customers:    make(map[string]*domain.Customer),
		Transactions: make(map[string][]*domain.Transaction),
		AlertEvents:  make(map[string][]*domain.AlertEvent),
	}

	seen := make(map[string]struct{}, len(normalized))
	for _, id := range normalized {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, skip := skipSet[id]; skip {
			ex.SkippedCount++
			continue
		}
		if _, sibling := siblingSet[id]; sibling {
			ex.SiblingCount++
			continue
		}
		ex.EligibleIDs = append(ex.EligibleIDs, id)
	}
	sort.Strings(ex.EligibleIDs)

	o.log.Info("customer selection completed",
		"ref_month", ref.String(),
		"active", len(normalized),
		"skipped", ex.SkippedCount,
		"sibling_alerted", ex.SiblingCount,
		"eligible", len(ex.EligibleIDs),
	)

	if len(ex.EligibleIDs) == 0 {
		return ex, nil
	}

	if err := o.loadBatches(ctx, ex); err != nil {
		return nil, err
	}
	return ex, nil
}

// skipSet returns the ids already reported by this system within the skip
// horizon. SkipMonths of 0 disables skipping entirely.
func (o *Orchestrator) skipSet(ctx context.Context, scope domain.RegistryScope, ref RefMonth) (map[string]struct{}, error) {
	if o.cfg.SkipMonths <= 0 {
		return map[string]struct{}{}, nil
	}
	start := ref.First().AddDate(0, -o.cfg.SkipMonths, 0)
	ids, err := o.repo.RegistryCustomerIDs(ctx, scope, start, ref.Last())
	if err != nil {
		return nil, fmt.Errorf("failed to load skip registry: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// siblingSet returns the ids alerted in the reference month by the sibling
// systems this deployment defers to.
func (o *Orchestrator) siblingSet(ctx context.Context, ref RefMonth) (map[string]struct{}, error) {
	if len(o.cfg.ExcludedSystems) == 0 {
		return map[string]struct{}{}, nil
	}
	events, err := o.repo.AlertEventsBySystems(ctx, o.cfg.IntermediaryCode, o.cfg.ExcludedSystems, ref.First(), ref.Last())
	if err != nil {
		return nil, fmt.Errorf("failed to load sibling alerts: %w", err)
	}
	set := make(map[string]struct{})
	for _, ev := range events {
		if ev.Status != domain.StatusToAlert {
			continue
		}
		id, err := domain.NormalizeCustomerID(ev.CustomerID)
		if err != nil {
			return nil, err
		}
		set[id] = struct{}{}
	}
	return set, nil
}

// loadBatches fetches customers, links, transactions and alert histories in
// id batches, with at most FetchWorkers batches in flight.
func (o *Orchestrator) loadBatches(ctx context.Context, ex *Extract) error {
	batches := batchIDs(ex.EligibleIDs, o.cfg.BatchSize)
	var mu sync.Mutex

	err := o.pool.Run(ctx, len(batches), func(ctx context.Context, i int) error {
		ids := batches[i]

		customers, err := o.repo.CustomersByIDs(ctx, o.cfg.IntermediaryCode, ids)
		if err != nil {
			return fmt.Errorf("failed to load customers: %w", err)
		}
		links, err := o.repo.SubjectLinksByCustomerIDs(ctx, o.cfg.IntermediaryCode, ids)
		if err != nil {
			return fmt.Errorf("failed to load subject links: %w", err)
		}
		txs, err := o.repo.TransactionsByCustomerIDs(ctx, o.cfg.IntermediaryCode, ids)
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		events, err := o.repo.AlertEventsByCustomerIDs(ctx, o.cfg.IntermediaryCode, ids)
		if err != nil {
			return fmt.Errorf("failed to load alert history: %w", err)
		}

		attributed := attributeTransactions(txs, links)

		mu.Lock()
		defer mu.Unlock()
		for _, c := range customers {
			ex.Customers[c.ID] = c
		}
		for id, list := range attributed {
			ex.Transactions[id] = append(ex.Transactions[id], list...)
		}
		for _, ev := range events {
			ex.AlertEvents[ev.CustomerID] = append(ex.AlertEvents[ev.CustomerID], ev)
		}
		return nil
	})
	if err != nil {
		return err
	}

	o.log.Debug("source data loaded",
		"batches", len(batches),
		"customers", len(ex.Customers),
	)
	return nil
}

// attributeTransactions joins raw transactions to customers through their
// subject links. Only primary and secondary roles count, and a customer is
// attributed a given operation at most once.
func attributeTransactions(txs []*domain.Transaction, links []*domain.SubjectLink) map[string][]*domain.Transaction {
	byOp := make(map[string]*domain.Transaction, len(txs))
	for _, tx := range txs {
		byOp[tx.OperationCode] = tx
	}

	out := make(map[string][]*domain.Transaction)
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if l.Role != domain.RolePrimary && l.Role != domain.RoleSecondary {
			continue
		}
		tx, ok := byOp[l.OperationCode]
		if !ok {
			continue
		}
		key := l.OperationCode + "|" + l.CustomerID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		attributed := *tx
		attributed.CustomerID = l.CustomerID
		out[l.CustomerID] = append(out[l.CustomerID], &attributed)
	}
	return out
}

// batchIDs splits ids into consecutive slices of at most size elements.
func batchIDs(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
