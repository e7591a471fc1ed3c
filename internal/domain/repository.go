package domain

import (
	"context"
	"time"
)

// Repository defines the persistence surface for source data, the dedup
// registry, and run records. One explicit instance is constructed at process
// start and passed to every component that needs it.
type Repository interface {
	// Source data loads (used by the seeder and by tests).
	SaveCustomer(ctx context.Context, c *Customer) error
	SaveTransaction(ctx context.Context, tx *Transaction) error
	SaveSubjectLink(ctx context.Context, l *SubjectLink) error
	SaveAlertEvent(ctx context.Context, ev *AlertEvent) error

	// Extraction queries. The id-list queries are issued per batch; the
	// orchestrator owns the batching.
	CustomerIDsActiveBetween(ctx context.Context, intermediary string, start, end time.Time) ([]string, error)
	CustomersByIDs(ctx context.Context, intermediary string, ids []string) ([]*Customer, error)
	SubjectLinksByCustomerIDs(ctx context.Context, intermediary string, ids []string) ([]*SubjectLink, error)
	TransactionsByCustomerIDs(ctx context.Context, intermediary string, ids []string) ([]*Transaction, error)
	AlertEventsByCustomerIDs(ctx context.Context, intermediary string, ids []string) ([]*AlertEvent, error)
	AlertEventsBySystems(ctx context.Context, intermediary string, systems []string, start, end time.Time) ([]*AlertEvent, error)

	// Dedup registry: append log.
	AppendRegistryEntry(ctx context.Context, e *RegistryEntry) error
	RegistryCustomerIDs(ctx context.Context, scope RegistryScope, start, end time.Time) ([]string, error)

	// Dedup registry: latest-prediction table. ReplaceLatestPredictions
	// rewrites the scope's rows transactionally as a whole.
	LatestPredictionRows(ctx context.Context, scope RegistryScope) ([]*RegistryEntry, error)
	ReplaceLatestPredictions(ctx context.Context, scope RegistryScope, rows []*RegistryEntry) error

	// Run records for monitoring.
	SaveRun(ctx context.Context, run *ScoringRun) error
	GetRun(ctx context.Context, id string) (*ScoringRun, error)
	ListRuns(ctx context.Context, limit int) ([]*ScoringRun, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
