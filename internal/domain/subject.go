// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// CustomerIDWidth is the fixed width of a normalized customer identifier (NDG).
const CustomerIDWidth = 16

// NormalizeCustomerID left-pads a raw customer id with zeros to the fixed
// width. A raw id longer than the fixed width is a validation error.
func NormalizeCustomerID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ValidationError{Field: "customer_id", Value: raw, Expected: "non-empty numeric string"}
	}
	if len(raw) > CustomerIDWidth {
		return "", &ValidationError{
			Field:    "customer_id",
			Value:    raw,
			Expected: fmt.Sprintf("at most %d characters", CustomerIDWidth),
		}
	}
	return strings.Repeat("0", CustomerIDWidth-len(raw)) + raw, nil
}

// Customer holds the demographic attributes of a bank customer.
// Loaded fresh each cycle and immutable within a cycle.
type Customer struct {
	ID               string `json:"id"`
	IntermediaryCode string `json:"intermediaryCode"`

	// BirthDate is kept raw: unparseable values categorize to NOT_FOUND
	// downstream rather than failing extraction.
	BirthDate string `json:"birthDate"`

	LegalForm    string `json:"legalForm"`
	Province     string `json:"province"`
	SectorCode   string `json:"sectorCode"`   // SAE
	ActivityCode string `json:"activityCode"` // ATECO

	GrossIncome     float64 `json:"grossIncome"`
	ChecksRequested int     `json:"checksRequested"`
	ChecksDebited   int     `json:"checksDebited"`
	ChecksAvailable int     `json:"checksAvailable"`
	RiskProfile     int     `json:"riskProfile"`
}

// Direction marks the flow of a transaction relative to the customer.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Transaction is a single banking operation. Append-only source data.
type Transaction struct {
	OperationCode    string    `json:"operationCode"`
	IntermediaryCode string    `json:"intermediaryCode"`
	Direction        Direction `json:"direction"`
	Amount           float64   `json:"amount"`
	Date             time.Time `json:"date"`
	CausalCode       string    `json:"causalCode"`
	CounterpartCountry string  `json:"counterpartCountry"`

	// CustomerID is the owning customer, populated when subject links are
	// resolved; empty on raw rows.
	CustomerID string `json:"customerId,omitempty"`
}

// SubjectRole is the role a customer plays in a transaction.
type SubjectRole string

const (
	RolePrimary   SubjectRole = "primary"
	RoleSecondary SubjectRole = "secondary"
)

// SubjectLink associates a transaction with a customer role. Only primary
// and secondary roles are retained by extraction.
type SubjectLink struct {
	OperationCode    string      `json:"operationCode"`
	CustomerID       string      `json:"customerId"`
	IntermediaryCode string      `json:"intermediaryCode"`
	Role             SubjectRole `json:"role"`
}

// AlertStatus is the outcome of a historical investigation.
type AlertStatus string

const (
	StatusToAlert    AlertStatus = "TO_ALERT"
	StatusNotToAlert AlertStatus = "NOT_TO_ALERT"
)

// AlertEvent is a historical investigation outcome for a customer.
type AlertEvent struct {
	CustomerID       string      `json:"customerId"`
	IntermediaryCode string      `json:"intermediaryCode"`
	Date             time.Time   `json:"date"`
	Status           AlertStatus `json:"status"`
	System           string      `json:"system"` // originating detection system
}

// ObservationWindow is the per-customer date range used for behavioral
// features. Recomputed every cycle, never persisted.
type ObservationWindow struct {
	CustomerID string
	Start      time.Time
	End        time.Time
}

// Contains reports whether t falls inside the window (inclusive bounds).
func (w ObservationWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
