package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/storage"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Store is the PostgreSQL implementation of storage.Store.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError translates driver errors into storage errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

const organizationColumns = `id, name, balance, version, updated_at`

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var org models.Organization
	if err := row.Scan(&org.ID, &org.Name, &org.Balance, &org.Version, &org.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &org, nil
}

func (s *Store) GetOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	return scanOrganization(s.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id))
}

const transactionColumns = `id, organization_id, type, amount, description, source_type, source_id, balance_after, created_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		txn        models.Transaction
		sourceType string
		sourceID   int64
	)
	if err := row.Scan(&txn.ID, &txn.OrganizationID, &txn.Type, &txn.Amount, &txn.Description,
		&sourceType, &sourceID, &txn.BalanceAfter, &txn.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	source, err := models.ParseSource(sourceType, sourceID)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", txn.ID, err)
	}
	txn.Source = source
	return &txn, nil
}

func (s *Store) ListTransactions(ctx context.Context, orgID int64, limit int) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE organization_id = $1 ORDER BY id ASC`
	args := []any{orgID}
	if limit > 0 {
		query = `SELECT ` + transactionColumns + ` FROM (
			SELECT ` + transactionColumns + ` FROM ledger_transactions
			WHERE organization_id = $1 ORDER BY id DESC LIMIT $2
		) recent ORDER BY id ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *txn)
	}
	return result, rows.Err()
}

const batchColumns = `id, organization_id, month, year, status, total_amount, total_employees,
	submitted_by, approved_by, rejection_reason, transaction_id, created_at, updated_at`

func scanBatch(row rowScanner) (*models.PayrollBatch, error) {
	var (
		b             models.PayrollBatch
		approvedBy    sql.NullInt64
		transactionID sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.OrganizationID, &b.Month, &b.Year, &b.Status, &b.TotalAmount,
		&b.TotalEmployees, &b.SubmittedBy, &approvedBy, &b.RejectionReason, &transactionID,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	if approvedBy.Valid {
		b.ApprovedBy = &approvedBy.Int64
	}
	if transactionID.Valid {
		b.TransactionID = &transactionID.Int64
	}
	return &b, nil
}

const paymentColumns = `id, batch_id, employee_id, employee_name, basic_salary, allowances, deductions,
	net_salary_paid, status, processed_at`

func loadPayrollPayments(ctx context.Context, q queryer, batchID int64) ([]models.PayrollPayment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payroll_payments WHERE batch_id = $1 ORDER BY id ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.PayrollPayment
	for rows.Next() {
		var (
			p           models.PayrollPayment
			processedAt sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.BatchID, &p.EmployeeID, &p.EmployeeName, &p.BasicSalary,
			&p.Allowances, &p.Deductions, &p.NetSalaryPaid, &p.Status, &processedAt); err != nil {
			return nil, err
		}
		if processedAt.Valid {
			p.ProcessedAt = &processedAt.Time
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func getPayrollBatch(ctx context.Context, q queryer, query string, id int64) (*models.PayrollBatch, error) {
	batch, err := scanBatch(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	batch.Payments, err = loadPayrollPayments(ctx, q, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payroll payments: %w", err)
	}
	return batch, nil
}

func (s *Store) GetPayrollBatch(ctx context.Context, id int64) (*models.PayrollBatch, error) {
	return getPayrollBatch(ctx, s.db, `SELECT `+batchColumns+` FROM payroll_batches WHERE id = $1`, id)
}

func (s *Store) ListPayrollBatches(ctx context.Context, orgID int64) ([]models.PayrollBatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM payroll_batches WHERE organization_id = $1 ORDER BY id DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.PayrollBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (s *Store) PayrollBatchExists(ctx context.Context, orgID int64, month, year int) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM payroll_batches WHERE organization_id = $1 AND month = $2 AND year = $3 LIMIT 1`,
		orgID, month, year).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const vendorPaymentColumns = `id, organization_id, vendor_id, amount, description, payment_date, status,
	transaction_id, failure_reason, created_by, created_at, updated_at`

func scanVendorPayment(row rowScanner) (*models.VendorPayment, error) {
	var (
		p             models.VendorPayment
		transactionID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.OrganizationID, &p.VendorID, &p.Amount, &p.Description, &p.PaymentDate,
		&p.Status, &transactionID, &p.FailureReason, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	if transactionID.Valid {
		p.TransactionID = &transactionID.Int64
	}
	return &p, nil
}

func (s *Store) GetVendorPayment(ctx context.Context, id int64) (*models.VendorPayment, error) {
	return scanVendorPayment(s.db.QueryRowContext(ctx,
		`SELECT `+vendorPaymentColumns+` FROM vendor_payments WHERE id = $1`, id))
}

func (s *Store) ListVendorPayments(ctx context.Context, orgID int64) ([]models.VendorPayment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vendorPaymentColumns+` FROM vendor_payments WHERE organization_id = $1 ORDER BY id DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.VendorPayment
	for rows.Next() {
		p, err := scanVendorPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (s *Store) GetBillByPayment(ctx context.Context, paymentID int64) (*models.Bill, error) {
	var b models.Bill
	err := s.db.QueryRowContext(ctx, `
		SELECT id, bill_number, vendor_payment_id, organization_id, vendor_id, amount, issued_at
		FROM bills WHERE vendor_payment_id = $1`, paymentID).
		Scan(&b.ID, &b.BillNumber, &b.VendorPaymentID, &b.OrganizationID, &b.VendorID, &b.Amount, &b.IssuedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

func (s *Store) ListDeposits(ctx context.Context, orgID int64) ([]models.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, amount, deposit_date, transaction_id, balance_after, deposited_by
		FROM deposits WHERE organization_id = $1 ORDER BY id DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Deposit
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.ID, &d.OrganizationID, &d.Amount, &d.DepositDate, &d.TransactionID,
			&d.BalanceAfter, &d.DepositedBy); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (s *Store) GetVendor(ctx context.Context, id int64) (*models.Vendor, error) {
	var v models.Vendor
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, name, email, active FROM vendors WHERE id = $1`, id).
		Scan(&v.ID, &v.OrganizationID, &v.Name, &v.Email, &v.Active)
	if err != nil {
		return nil, mapError(err)
	}
	return &v, nil
}

func (s *Store) ListActiveEmployees(ctx context.Context, orgID int64) ([]models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, first_name, last_name, email, active
		FROM employees WHERE organization_id = $1 AND active = true ORDER BY id ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.FirstName, &e.LastName, &e.Email, &e.Active); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) GetActiveSalaryStructure(ctx context.Context, employeeID int64) (*models.SalaryStructure, error) {
	var ss models.SalaryStructure
	err := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, basic_salary, allowances, deductions, active, effective_from
		FROM salary_structures
		WHERE employee_id = $1 AND active = true
		ORDER BY effective_from DESC
		LIMIT 1`, employeeID).
		Scan(&ss.ID, &ss.EmployeeID, &ss.BasicSalary, &ss.Allowances, &ss.Deductions, &ss.Active, &ss.EffectiveFrom)
	if err != nil {
		return nil, mapError(err)
	}
	return &ss, nil
}

var _ storage.Store = (*Store)(nil)
