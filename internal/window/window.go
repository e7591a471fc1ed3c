// Package window resolves the per-customer observation window: the span of
// transaction history the feature extraction looks at for one customer.
package window

import (
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Resolver derives observation windows from a customer's alert history and
// transactions.
type Resolver struct {
	months int
}

// NewResolver creates a resolver for windows of the given length in months.
func NewResolver(months int) *Resolver {
	return &Resolver{months: months}
}

// Resolve returns the observation window for a customer, anchored on the
// most recent reported alert if one exists, otherwise on the most recent
// transaction. A customer with neither has no window and is skipped.
func (r *Resolver) Resolve(customerID string, events []*domain.AlertEvent, txs []*domain.Transaction) (*domain.ObservationWindow, bool) {
	var anchor time.Time
	var found bool

	for _, ev := range events {
		if ev.Status != domain.StatusToAlert {
			continue
		}
		if !found || ev.Date.After(anchor) {
			anchor = ev.Date
			found = true
		}
	}

	if !found {
		for _, tx := range txs {
			if !found || tx.Date.After(anchor) {
				anchor = tx.Date
				found = true
			}
		}
	}

	if !found {
		return nil, false
	}

	return &domain.ObservationWindow{
		CustomerID: customerID,
		Start:      anchor.AddDate(0, -r.months, 0),
		End:        anchor,
	}, true
}
