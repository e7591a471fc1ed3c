package domain

import "time"

// RegistryScope identifies the (system, control, intermediary) triple that
// owns a set of registry rows.
type RegistryScope struct {
	SystemID         string `json:"systemId"`
	ControlCode      string `json:"controlCode"`
	IntermediaryCode string `json:"intermediaryCode"`
}

// RegistryEntry is one scoring/reporting event.
//
// In the append log the primary key is (scope, customer, report date) and
// rows are never updated. In the latest-prediction table the primary key is
// (scope, customer, model) and later writes supersede earlier ones.
type RegistryEntry struct {
	RegistryScope
	CustomerID string    `json:"customerId"`
	ReportDate time.Time `json:"reportDate"`
	Prediction float64   `json:"prediction"`
	ModelName  string    `json:"modelName"`
}

// LatestKey returns the latest-prediction primary key for the entry.
func (e *RegistryEntry) LatestKey() string {
	return e.SystemID + "|" + e.ControlCode + "|" + e.IntermediaryCode + "|" + e.CustomerID + "|" + e.ModelName
}

// ScoringRun records one completed (or failed) extraction+scoring cycle,
// for the monitoring API.
type ScoringRun struct {
	ID       string `json:"id"`
	RefMonth string `json:"refMonth"`
	RegistryScope
	ModelName string `json:"modelName"`

	Status string `json:"status"` // "completed", "failed", "empty"

	EligibleCount int `json:"eligibleCount"`
	SkippedCount  int `json:"skippedCount"`
	SiblingCount  int `json:"siblingCount"`
	ScoredCount   int `json:"scoredCount"`
	AlertedCount  int `json:"alertedCount"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Error      string    `json:"error,omitempty"`
}

// Run status values.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusEmpty     = "empty"
)
