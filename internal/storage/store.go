// Package storage defines the persistence boundary of the ledger and the
// settlement workflows. Every write goes through a Tx obtained from
// Store.WithTx; all writes of one Tx become visible together or not at all.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ruralpay/orgledger/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("concurrent modification detected")
	ErrDuplicate = errors.New("record already exists")
)

// Reader serves committed state, including the read-only directories the
// settlement workflows consume.
type Reader interface {
	GetOrganization(ctx context.Context, id int64) (*models.Organization, error)
	ListTransactions(ctx context.Context, orgID int64, limit int) ([]models.Transaction, error)

	GetPayrollBatch(ctx context.Context, id int64) (*models.PayrollBatch, error)
	ListPayrollBatches(ctx context.Context, orgID int64) ([]models.PayrollBatch, error)
	PayrollBatchExists(ctx context.Context, orgID int64, month, year int) (bool, error)

	GetVendorPayment(ctx context.Context, id int64) (*models.VendorPayment, error)
	ListVendorPayments(ctx context.Context, orgID int64) ([]models.VendorPayment, error)
	GetBillByPayment(ctx context.Context, paymentID int64) (*models.Bill, error)

	ListDeposits(ctx context.Context, orgID int64) ([]models.Deposit, error)

	GetVendor(ctx context.Context, id int64) (*models.Vendor, error)
	ListActiveEmployees(ctx context.Context, orgID int64) ([]models.Employee, error)
	// GetActiveSalaryStructure returns ErrNotFound when the employee has none.
	GetActiveSalaryStructure(ctx context.Context, employeeID int64) (*models.SalaryStructure, error)
}

// Tx is one unit of work. Lock* methods hold the row until the unit of work ends.
type Tx interface {
	LockOrganization(ctx context.Context, id int64) (*models.Organization, error)
	// UpdateOrganizationBalance fails with ErrConflict when version is stale.
	UpdateOrganizationBalance(ctx context.Context, id int64, balance decimal.Decimal, version int, at time.Time) error
	InsertTransaction(ctx context.Context, txn *models.Transaction) error

	// InsertPayrollBatch stores the batch and its lines, filling in their ids.
	// A batch for the same organization and period yields ErrDuplicate.
	InsertPayrollBatch(ctx context.Context, batch *models.PayrollBatch) error
	LockPayrollBatch(ctx context.Context, id int64) (*models.PayrollBatch, error)
	// UpdatePayrollBatch persists the batch header and the status of its lines.
	UpdatePayrollBatch(ctx context.Context, batch *models.PayrollBatch) error

	InsertVendorPayment(ctx context.Context, payment *models.VendorPayment) error
	UpdateVendorPayment(ctx context.Context, payment *models.VendorPayment) error
	// InsertBill yields ErrDuplicate when the payment already has a bill.
	InsertBill(ctx context.Context, bill *models.Bill) error

	InsertDeposit(ctx context.Context, deposit *models.Deposit) error
}

type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
