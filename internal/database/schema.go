package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		balance     NUMERIC(19,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		version     INTEGER NOT NULL DEFAULT 0,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_transactions (
		id               BIGSERIAL PRIMARY KEY,
		organization_id  BIGINT NOT NULL REFERENCES organizations(id),
		type             VARCHAR(10) NOT NULL CHECK (type IN ('DEBIT', 'CREDIT')),
		amount           NUMERIC(19,2) NOT NULL CHECK (amount > 0),
		description      TEXT NOT NULL DEFAULT '',
		source_type      VARCHAR(32) NOT NULL,
		source_id        BIGINT NOT NULL,
		balance_after    NUMERIC(19,2) NOT NULL CHECK (balance_after >= 0),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_transactions_org ON ledger_transactions (organization_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_transactions_source ON ledger_transactions (source_type, source_id)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id               BIGSERIAL PRIMARY KEY,
		organization_id  BIGINT NOT NULL REFERENCES organizations(id),
		first_name       VARCHAR(100) NOT NULL,
		last_name        VARCHAR(100) NOT NULL,
		email            VARCHAR(255) NOT NULL DEFAULT '',
		active           BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS salary_structures (
		id              BIGSERIAL PRIMARY KEY,
		employee_id     BIGINT NOT NULL REFERENCES employees(id),
		basic_salary    NUMERIC(19,2) NOT NULL DEFAULT 0,
		allowances      NUMERIC(19,2) NOT NULL DEFAULT 0,
		deductions      NUMERIC(19,2) NOT NULL DEFAULT 0,
		active          BOOLEAN NOT NULL DEFAULT true,
		effective_from  DATE NOT NULL DEFAULT CURRENT_DATE
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id               BIGSERIAL PRIMARY KEY,
		organization_id  BIGINT NOT NULL REFERENCES organizations(id),
		name             VARCHAR(255) NOT NULL,
		email            VARCHAR(255) NOT NULL DEFAULT '',
		active           BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS payroll_batches (
		id                BIGSERIAL PRIMARY KEY,
		organization_id   BIGINT NOT NULL REFERENCES organizations(id),
		month             SMALLINT NOT NULL CHECK (month BETWEEN 1 AND 12),
		year              SMALLINT NOT NULL,
		status            VARCHAR(20) NOT NULL,
		total_amount      NUMERIC(19,2) NOT NULL,
		total_employees   INTEGER NOT NULL,
		submitted_by      BIGINT NOT NULL,
		approved_by       BIGINT,
		rejection_reason  TEXT NOT NULL DEFAULT '',
		transaction_id    BIGINT REFERENCES ledger_transactions(id),
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT payroll_batches_org_period_key UNIQUE (organization_id, month, year)
	)`,
	`CREATE TABLE IF NOT EXISTS payroll_payments (
		id               BIGSERIAL PRIMARY KEY,
		batch_id         BIGINT NOT NULL REFERENCES payroll_batches(id) ON DELETE CASCADE,
		employee_id      BIGINT NOT NULL,
		employee_name    VARCHAR(255) NOT NULL,
		basic_salary     NUMERIC(19,2) NOT NULL,
		allowances       NUMERIC(19,2) NOT NULL,
		deductions       NUMERIC(19,2) NOT NULL,
		net_salary_paid  NUMERIC(19,2) NOT NULL,
		status           VARCHAR(20) NOT NULL,
		processed_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payroll_payments_batch ON payroll_payments (batch_id)`,
	`CREATE TABLE IF NOT EXISTS vendor_payments (
		id               BIGSERIAL PRIMARY KEY,
		organization_id  BIGINT NOT NULL REFERENCES organizations(id),
		vendor_id        BIGINT NOT NULL REFERENCES vendors(id),
		amount           NUMERIC(19,2) NOT NULL CHECK (amount > 0),
		description      TEXT NOT NULL DEFAULT '',
		payment_date     TIMESTAMPTZ NOT NULL,
		status           VARCHAR(20) NOT NULL,
		transaction_id   BIGINT REFERENCES ledger_transactions(id),
		failure_reason   TEXT NOT NULL DEFAULT '',
		created_by       BIGINT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vendor_payments_org ON vendor_payments (organization_id)`,
	`CREATE TABLE IF NOT EXISTS bills (
		id                 BIGSERIAL PRIMARY KEY,
		bill_number        VARCHAR(64) NOT NULL UNIQUE,
		vendor_payment_id  BIGINT NOT NULL UNIQUE REFERENCES vendor_payments(id),
		organization_id    BIGINT NOT NULL REFERENCES organizations(id),
		vendor_id          BIGINT NOT NULL REFERENCES vendors(id),
		amount             NUMERIC(19,2) NOT NULL,
		issued_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS deposits (
		id               BIGSERIAL PRIMARY KEY,
		organization_id  BIGINT NOT NULL REFERENCES organizations(id),
		amount           NUMERIC(19,2) NOT NULL CHECK (amount > 0),
		deposit_date     TIMESTAMPTZ NOT NULL,
		transaction_id   BIGINT NOT NULL UNIQUE REFERENCES ledger_transactions(id),
		balance_after    NUMERIC(19,2) NOT NULL,
		deposited_by     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deposits_org ON deposits (organization_id)`,
}

// Migrate creates every table, constraint and index the ledger relies on.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i+1, err)
		}
	}
	return tx.Commit()
}
