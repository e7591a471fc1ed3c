package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaCustomers = `
CREATE TABLE IF NOT EXISTS customers (
    id TEXT NOT NULL,
    intermediary_code TEXT NOT NULL,
    birth_date TEXT,
    legal_form TEXT,
    province TEXT,
    sector_code TEXT,
    activity_code TEXT,
    gross_income REAL NOT NULL DEFAULT 0,
    checks_requested INTEGER NOT NULL DEFAULT 0,
    checks_debited INTEGER NOT NULL DEFAULT 0,
    checks_available INTEGER NOT NULL DEFAULT 0,
    risk_profile INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (id, intermediary_code)
);

CREATE INDEX IF NOT EXISTS idx_customers_intermediary ON customers(intermediary_code);
`

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    operation_code TEXT NOT NULL,
    intermediary_code TEXT NOT NULL,
    direction TEXT NOT NULL,
    amount REAL NOT NULL,
    date TIMESTAMP NOT NULL,
    causal_code TEXT,
    counterpart_country TEXT,
    PRIMARY KEY (operation_code, intermediary_code)
);

CREATE INDEX IF NOT EXISTS idx_transactions_intermediary ON transactions(intermediary_code);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(intermediary_code, date);
`

const schemaTransactionSubjects = `
CREATE TABLE IF NOT EXISTS transaction_subjects (
    operation_code TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    intermediary_code TEXT NOT NULL,
    role TEXT NOT NULL,
    PRIMARY KEY (operation_code, customer_id, intermediary_code, role)
);

CREATE INDEX IF NOT EXISTS idx_subjects_customer ON transaction_subjects(intermediary_code, customer_id);
CREATE INDEX IF NOT EXISTS idx_subjects_operation ON transaction_subjects(intermediary_code, operation_code);
`

const schemaAlertEvents = `
CREATE TABLE IF NOT EXISTS alert_events (
    customer_id TEXT NOT NULL,
    intermediary_code TEXT NOT NULL,
    date TIMESTAMP NOT NULL,
    status TEXT NOT NULL,
    system TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_customer ON alert_events(intermediary_code, customer_id);
CREATE INDEX IF NOT EXISTS idx_alerts_system ON alert_events(intermediary_code, system, date);
`

// schemaRegistry is the append-only reporting log. The report date is part
// of the primary key so one customer can be reported in several cycles.
const schemaRegistry = `
CREATE TABLE IF NOT EXISTS scoring_registry (
    system_id TEXT NOT NULL,
    control_code TEXT NOT NULL,
    intermediary_code TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    report_date TIMESTAMP NOT NULL,
    prediction REAL NOT NULL,
    model_name TEXT NOT NULL,
    PRIMARY KEY (system_id, control_code, intermediary_code, customer_id, report_date)
);

CREATE INDEX IF NOT EXISTS idx_registry_scope_date
    ON scoring_registry(system_id, control_code, intermediary_code, report_date);
`

// schemaRegistryLatest keys on the model instead of the report date, so a
// rescored customer keeps exactly one row per model.
const schemaRegistryLatest = `
CREATE TABLE IF NOT EXISTS scoring_registry_latest (
    system_id TEXT NOT NULL,
    control_code TEXT NOT NULL,
    intermediary_code TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    report_date TIMESTAMP NOT NULL,
    prediction REAL NOT NULL,
    model_name TEXT NOT NULL,
    PRIMARY KEY (system_id, control_code, intermediary_code, customer_id, model_name)
);
`

const schemaRuns = `
CREATE TABLE IF NOT EXISTS scoring_runs (
    id TEXT PRIMARY KEY,
    ref_month TEXT NOT NULL,
    system_id TEXT NOT NULL,
    control_code TEXT NOT NULL,
    intermediary_code TEXT NOT NULL,
    model_name TEXT NOT NULL,
    status TEXT NOT NULL,
    eligible_count INTEGER NOT NULL DEFAULT 0,
    skipped_count INTEGER NOT NULL DEFAULT 0,
    sibling_count INTEGER NOT NULL DEFAULT 0,
    scored_count INTEGER NOT NULL DEFAULT 0,
    alerted_count INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON scoring_runs(started_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCustomers,
		schemaTransactions,
		schemaTransactionSubjects,
		schemaAlertEvents,
		schemaRegistry,
		schemaRegistryLatest,
		schemaRuns,
	}
}
