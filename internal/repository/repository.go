// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveCustomer stores or replaces a customer's demographic record.
func (r *SQLRepository) SaveCustomer(ctx context.Context, c *domain.Customer) error {
	if c.IntermediaryCode == "" {
		return fmt.Errorf("%w: intermediary code is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO customers (
			id, intermediary_code, birth_date, legal_form, province,
			sector_code, activity_code, gross_income,
			checks_requested, checks_debited, checks_available, risk_profile
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, intermediary_code) DO UPDATE SET
			birth_date = excluded.birth_date,
			legal_form = excluded.legal_form,
			province = excluded.province,
			sector_code = excluded.sector_code,
			activity_code = excluded.activity_code,
			gross_income = excluded.gross_income,
			checks_requested = excluded.checks_requested,
			checks_debited = excluded.checks_debited,
			checks_available = excluded.checks_available,
			risk_profile = excluded.risk_profile
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		c.ID, c.IntermediaryCode, c.BirthDate, c.LegalForm, c.Province,
		c.SectorCode, c.ActivityCode, c.GrossIncome,
		c.ChecksRequested, c.ChecksDebited, c.ChecksAvailable, c.RiskProfile,
	)
	return err
}

// SaveTransaction stores a transaction.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.IntermediaryCode == "" {
		return fmt.Errorf("%w: intermediary code is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO transactions (
			operation_code, intermediary_code, direction, amount,
			date, causal_code, counterpart_country
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.OperationCode, tx.IntermediaryCode, string(tx.Direction), tx.Amount,
		tx.Date, tx.CausalCode, tx.CounterpartCountry,
	)
	return err
}

// SaveSubjectLink stores a transaction-to-customer link.
func (r *SQLRepository) SaveSubjectLink(ctx context.Context, l *domain.SubjectLink) error {
	if l.IntermediaryCode == "" {
		return fmt.Errorf("%w: intermediary code is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO transaction_subjects (operation_code, customer_id, intermediary_code, role)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(operation_code, customer_id, intermediary_code, role) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		l.OperationCode, l.CustomerID, l.IntermediaryCode, string(l.Role),
	)
	return err
}

// SaveAlertEvent stores a historical investigation outcome.
func (r *SQLRepository) SaveAlertEvent(ctx context.Context, ev *domain.AlertEvent) error {
	if ev.IntermediaryCode == "" {
		return fmt.Errorf("%w: intermediary code is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO alert_events (customer_id, intermediary_code, date, status, system)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ev.CustomerID, ev.IntermediaryCode, ev.Date, string(ev.Status), ev.System,
	)
	return err
}

// CustomerIDsActiveBetween returns the distinct customer ids with at least
// one attributed transaction in the date range.
func (r *SQLRepository) CustomerIDsActiveBetween(ctx context.Context, intermediary string, start, end time.Time) ([]string, error) {
	if intermediary == "" {
		return nil, fmt.Errorf("%w: intermediary code is required", ErrInvalidInput)
	}

	query := `
		SELECT DISTINCT s.customer_id
		FROM transaction_subjects s
		JOIN transactions t
		  ON t.operation_code = s.operation_code
		 AND t.intermediary_code = s.intermediary_code
		WHERE s.intermediary_code = ?
		  AND s.role IN ('primary', 'secondary')
		  AND t.date >= ? AND t.date <= ?
		ORDER BY s.customer_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), intermediary, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CustomersByIDs returns the customers matching the given ids.
func (r *SQLRepository) CustomersByIDs(ctx context.Context, intermediary string, ids []string) ([]*domain.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, intermediary_code, birth_date, legal_form, province,
		       sector_code, activity_code, gross_income,
		       checks_requested, checks_debited, checks_available, risk_profile
		FROM customers
		WHERE intermediary_code = ? AND id IN (` + placeholders(len(ids)) + `)
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args(intermediary, ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(
			&c.ID, &c.IntermediaryCode, &c.BirthDate, &c.LegalForm, &c.Province,
			&c.SectorCode, &c.ActivityCode, &c.GrossIncome,
			&c.ChecksRequested, &c.ChecksDebited, &c.ChecksAvailable, &c.RiskProfile,
		); err != nil {
			return nil, err
		}
		customers = append(customers, &c)
	}
	return customers, rows.Err()
}

// SubjectLinksByCustomerIDs returns the links for the given customers.
func (r *SQLRepository) SubjectLinksByCustomerIDs(ctx context.Context, intermediary string, ids []string) ([]*domain.SubjectLink, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT operation_code, customer_id, intermediary_code, role
		FROM transaction_subjects
		WHERE intermediary_code = ? AND customer_id IN (` + placeholders(len(ids)) + `)
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args(intermediary, ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.SubjectLink
	for rows.Next() {
		var l domain.SubjectLink
		var role string
		if err := rows.Scan(&l.OperationCode, &l.CustomerID, &l.IntermediaryCode, &role); err != nil {
			return nil, err
		}
		l.Role = domain.SubjectRole(role)
		links = append(links, &l)
	}
	return links, rows.Err()
}

// TransactionsByCustomerIDs returns the transactions linked to the given
// customers. Attribution to individual customers is done by the caller
// from the subject links.
func (r *SQLRepository) TransactionsByCustomerIDs(ctx context.Context, intermediary string, ids []string) ([]*domain.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT t.operation_code, t.intermediary_code, t.direction,
		       t.amount, t.date, t.causal_code, t.counterpart_country
		FROM transactions t
		JOIN transaction_subjects s
		  ON s.operation_code = t.operation_code
		 AND s.intermediary_code = t.intermediary_code
		WHERE t.intermediary_code = ? AND s.customer_id IN (` + placeholders(len(ids)) + `)
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args(intermediary, ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var direction string
		if err := rows.Scan(
			&tx.OperationCode, &tx.IntermediaryCode, &direction,
			&tx.Amount, &tx.Date, &tx.CausalCode, &tx.CounterpartCountry,
		); err != nil {
			return nil, err
		}
		tx.Direction = domain.Direction(direction)
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}

// AlertEventsByCustomerIDs returns the alert history for the given customers.
func (r *SQLRepository) AlertEventsByCustomerIDs(ctx context.Context, intermediary string, ids []string) ([]*domain.AlertEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT customer_id, intermediary_code, date, status, system
		FROM alert_events
		WHERE intermediary_code = ? AND customer_id IN (` + placeholders(len(ids)) + `)
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args(intermediary, ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlertEvents(rows)
}

// AlertEventsBySystems returns the alert events raised by the given systems
// in the date range.
func (r *SQLRepository) AlertEventsBySystems(ctx context.Context, intermediary string, systems []string, start, end time.Time) ([]*domain.AlertEvent, error) {
	if len(systems) == 0 {
		return nil, nil
	}

	query := `
		SELECT customer_id, intermediary_code, date, status, system
		FROM alert_events
		WHERE intermediary_code = ?
		  AND system IN (` + placeholders(len(systems)) + `)
		  AND date >= ? AND date <= ?
	`

	queryArgs := args(intermediary, systems)
	queryArgs = append(queryArgs, start, end)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlertEvents(rows)
}

func scanAlertEvents(rows *sql.Rows) ([]*domain.AlertEvent, error) {
	var events []*domain.AlertEvent
	for rows.Next() {
		var ev domain.AlertEvent
		var status string
		if err := rows.Scan(&ev.CustomerID, &ev.IntermediaryCode, &ev.Date, &status, &ev.System); err != nil {
			return nil, err
		}
		ev.Status = domain.AlertStatus(status)
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// AppendRegistryEntry inserts one row into the append-only reporting log.
func (r *SQLRepository) AppendRegistryEntry(ctx context.Context, e *domain.RegistryEntry) error {
	query := `
		INSERT INTO scoring_registry (
			system_id, control_code, intermediary_code,
			customer_id, report_date, prediction, model_name
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		e.SystemID, e.ControlCode, e.IntermediaryCode,
		e.CustomerID, e.ReportDate, e.Prediction, e.ModelName,
	)
	return err
}

// RegistryCustomerIDs returns the distinct customer ids the scope reported
// within the date range.
func (r *SQLRepository) RegistryCustomerIDs(ctx context.Context, scope domain.RegistryScope, start, end time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT customer_id
		FROM scoring_registry
		WHERE system_id = ? AND control_code = ? AND intermediary_code = ?
		  AND report_date >= ? AND report_date <= ?
		ORDER BY customer_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query),
		scope.SystemID, scope.ControlCode, scope.IntermediaryCode, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LatestPredictionRows returns the scope's latest-prediction rows.
func (r *SQLRepository) LatestPredictionRows(ctx context.Context, scope domain.RegistryScope) ([]*domain.RegistryEntry, error) {
	query := `
		SELECT system_id, control_code, intermediary_code,
		       customer_id, report_date, prediction, model_name
		FROM scoring_registry_latest
		WHERE system_id = ? AND control_code = ? AND intermediary_code = ?
		ORDER BY customer_id, model_name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query),
		scope.SystemID, scope.ControlCode, scope.IntermediaryCode,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.RegistryEntry
	for rows.Next() {
		var e domain.RegistryEntry
		if err := rows.Scan(
			&e.SystemID, &e.ControlCode, &e.IntermediaryCode,
			&e.CustomerID, &e.ReportDate, &e.Prediction, &e.ModelName,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ReplaceLatestPredictions rewrites the scope's latest-prediction rows in a
// single transaction so readers never see a partial table.
func (r *SQLRepository) ReplaceLatestPredictions(ctx context.Context, scope domain.RegistryScope, entries []*domain.RegistryEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	deleteQuery := `
		DELETE FROM scoring_registry_latest
		WHERE system_id = ? AND control_code = ? AND intermediary_code = ?
	`
	if _, err := tx.ExecContext(ctx, r.rebind(deleteQuery),
		scope.SystemID, scope.ControlCode, scope.IntermediaryCode,
	); err != nil {
		return err
	}

	insertQuery := r.rebind(`
		INSERT INTO scoring_registry_latest (
			system_id, control_code, intermediary_code,
			customer_id, report_date, prediction, model_name
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, insertQuery,
			scope.SystemID, scope.ControlCode, scope.IntermediaryCode,
			e.CustomerID, e.ReportDate, e.Prediction, e.ModelName,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveRun stores or updates a run record.
func (r *SQLRepository) SaveRun(ctx context.Context, run *domain.ScoringRun) error {
	query := `
		INSERT INTO scoring_runs (
			id, ref_month, system_id, control_code, intermediary_code, model_name,
			status, eligible_count, skipped_count, sibling_count,
			scored_count, alerted_count, started_at, finished_at, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			eligible_count = excluded.eligible_count,
			skipped_count = excluded.skipped_count,
			sibling_count = excluded.sibling_count,
			scored_count = excluded.scored_count,
			alerted_count = excluded.alerted_count,
			finished_at = excluded.finished_at,
			error = excluded.error
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		run.ID, run.RefMonth, run.SystemID, run.ControlCode, run.IntermediaryCode, run.ModelName,
		run.Status, run.EligibleCount, run.SkippedCount, run.SiblingCount,
		run.ScoredCount, run.AlertedCount, run.StartedAt, run.FinishedAt, run.Error,
	)
	return err
}

// GetRun retrieves a run record by id.
func (r *SQLRepository) GetRun(ctx context.Context, id string) (*domain.ScoringRun, error) {
	query := `
		SELECT id, ref_month, system_id, control_code, intermediary_code, model_name,
		       status, eligible_count, skipped_count, sibling_count,
		       scored_count, alerted_count, started_at, finished_at, error
		FROM scoring_runs
		WHERE id = ?
	`

	var run domain.ScoringRun
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&run.ID, &run.RefMonth, &run.SystemID, &run.ControlCode, &run.IntermediaryCode, &run.ModelName,
		&run.Status, &run.EligibleCount, &run.SkippedCount, &run.SiblingCount,
		&run.ScoredCount, &run.AlertedCount, &run.StartedAt, &run.FinishedAt, &run.Error,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns retrieves the most recent run records.
func (r *SQLRepository) ListRuns(ctx context.Context, limit int) ([]*domain.ScoringRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, ref_month, system_id, control_code, intermediary_code, model_name,
		       status, eligible_count, skipped_count, sibling_count,
		       scored_count, alerted_count, started_at, finished_at, error
		FROM scoring_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.ScoringRun
	for rows.Next() {
		var run domain.ScoringRun
		if err := rows.Scan(
			&run.ID, &run.RefMonth, &run.SystemID, &run.ControlCode, &run.IntermediaryCode, &run.ModelName,
			&run.Status, &run.EligibleCount, &run.SkippedCount, &run.SiblingCount,
			&run.ScoredCount, &run.AlertedCount, &run.StartedAt, &run.FinishedAt, &run.Error,
		); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// placeholders returns n comma-separated ? markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// args prepends the intermediary code to a string id list.
func args(intermediary string, ids []string) []any {
	out := make([]any, 0, len(ids)+1)
	out = append(out, intermediary)
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
