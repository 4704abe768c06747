package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/storage"
	"github.com/shopspring/decimal"
)

type tx struct {
	tx *sql.Tx
}

func (t *tx) LockOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	return scanOrganization(t.tx.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = $1 FOR UPDATE`, id))
}

func (t *tx) UpdateOrganizationBalance(ctx context.Context, id int64, balance decimal.Decimal, version int, at time.Time) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE organizations
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		balance, at, id, version)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return storage.ErrConflict
	}
	return nil
}

func (t *tx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO ledger_transactions
			(organization_id, type, amount, description, source_type, source_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		txn.OrganizationID, string(txn.Type), txn.Amount, txn.Description,
		string(txn.Source.Type()), txn.Source.ID(), txn.BalanceAfter, txn.CreatedAt).Scan(&txn.ID)
	return mapError(err)
}

func (t *tx) InsertPayrollBatch(ctx context.Context, batch *models.PayrollBatch) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO payroll_batches
			(organization_id, month, year, status, total_amount, total_employees, submitted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		batch.OrganizationID, batch.Month, batch.Year, string(batch.Status), batch.TotalAmount,
		batch.TotalEmployees, batch.SubmittedBy, batch.CreatedAt, batch.UpdatedAt).Scan(&batch.ID)
	if err != nil {
		return mapError(err)
	}

	for i := range batch.Payments {
		p := &batch.Payments[i]
		p.BatchID = batch.ID
		err := t.tx.QueryRowContext(ctx, `
			INSERT INTO payroll_payments
				(batch_id, employee_id, employee_name, basic_salary, allowances, deductions, net_salary_paid, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			p.BatchID, p.EmployeeID, p.EmployeeName, p.BasicSalary, p.Allowances, p.Deductions,
			p.NetSalaryPaid, string(p.Status)).Scan(&p.ID)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (t *tx) LockPayrollBatch(ctx context.Context, id int64) (*models.PayrollBatch, error) {
	return getPayrollBatch(ctx, t.tx,
		`SELECT `+batchColumns+` FROM payroll_batches WHERE id = $1 FOR UPDATE`, id)
}

func (t *tx) UpdatePayrollBatch(ctx context.Context, batch *models.PayrollBatch) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE payroll_batches
		SET status = $1, approved_by = $2, rejection_reason = $3, transaction_id = $4, updated_at = $5
		WHERE id = $6`,
		string(batch.Status), batch.ApprovedBy, batch.RejectionReason, batch.TransactionID, batch.UpdatedAt, batch.ID)
	if err != nil {
		return mapError(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return storage.ErrNotFound
	}

	for _, p := range batch.Payments {
		if _, err := t.tx.ExecContext(ctx,
			`UPDATE payroll_payments SET status = $1, processed_at = $2 WHERE id = $3`,
			string(p.Status), p.ProcessedAt, p.ID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (t *tx) InsertVendorPayment(ctx context.Context, payment *models.VendorPayment) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO vendor_payments
			(organization_id, vendor_id, amount, description, payment_date, status, failure_reason, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		payment.OrganizationID, payment.VendorID, payment.Amount, payment.Description, payment.PaymentDate,
		string(payment.Status), payment.FailureReason, payment.CreatedBy, payment.CreatedAt, payment.UpdatedAt).
		Scan(&payment.ID)
	return mapError(err)
}

func (t *tx) UpdateVendorPayment(ctx context.Context, payment *models.VendorPayment) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE vendor_payments
		SET status = $1, transaction_id = $2, failure_reason = $3, updated_at = $4
		WHERE id = $5`,
		string(payment.Status), payment.TransactionID, payment.FailureReason, payment.UpdatedAt, payment.ID)
	if err != nil {
		return mapError(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *tx) InsertBill(ctx context.Context, bill *models.Bill) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO bills (bill_number, vendor_payment_id, organization_id, vendor_id, amount, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		bill.BillNumber, bill.VendorPaymentID, bill.OrganizationID, bill.VendorID, bill.Amount, bill.IssuedAt).
		Scan(&bill.ID)
	return mapError(err)
}

func (t *tx) InsertDeposit(ctx context.Context, deposit *models.Deposit) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO deposits (organization_id, amount, deposit_date, transaction_id, balance_after, deposited_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		deposit.OrganizationID, deposit.Amount, deposit.DepositDate, deposit.TransactionID,
		deposit.BalanceAfter, deposit.DepositedBy).Scan(&deposit.ID)
	return mapError(err)
}

var _ storage.Tx = (*tx)(nil)
