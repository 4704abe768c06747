package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/storage"
	"github.com/shopspring/decimal"
)

// op is one buffered write. check runs for every op before any apply runs;
// either may be nil.
type op struct {
	check func() error
	apply func()
}

type tx struct {
	s        *Store
	held     map[string]func()
	ops      []op
	orgState map[int64]models.Organization // balances written earlier in this unit of work
}

func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	unlock, err := t.s.rows.Lock(ctx, key)
	if err != nil {
		return err
	}
	t.held[key] = unlock
	return nil
}

func (t *tx) release() {
	for key, unlock := range t.held {
		unlock()
		delete(t.held, key)
	}
}

func (t *tx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, o := range t.ops {
		if o.check == nil {
			continue
		}
		if err := o.check(); err != nil {
			return err
		}
	}
	for _, o := range t.ops {
		if o.apply != nil {
			o.apply()
		}
	}
	return nil
}

func (t *tx) LockOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	if err := t.lock(ctx, fmt.Sprintf("org:%d", id)); err != nil {
		return nil, err
	}
	if org, ok := t.orgState[id]; ok {
		return &org, nil
	}
	return t.s.GetOrganization(ctx, id)
}

func (t *tx) UpdateOrganizationBalance(ctx context.Context, id int64, balance decimal.Decimal, version int, at time.Time) error {
	if pending, ok := t.orgState[id]; ok {
		if pending.Version != version {
			return storage.ErrConflict
		}
	} else {
		t.ops = append(t.ops, op{check: func() error {
			current, ok := t.s.organizations[id]
			if !ok {
				return storage.ErrNotFound
			}
			if current.Version != version {
				return storage.ErrConflict
			}
			return nil
		}})
	}

	t.s.mu.RLock()
	org, ok := t.s.organizations[id]
	t.s.mu.RUnlock()
	if !ok {
		return storage.ErrNotFound
	}
	org.Balance = balance
	org.Version = version + 1
	org.UpdatedAt = at
	t.orgState[id] = org

	t.ops = append(t.ops, op{apply: func() {
		t.s.organizations[id] = org
	}})
	return nil
}

func (t *tx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	txn.ID = t.s.nextID("transactions")
	row := *txn
	t.ops = append(t.ops, op{apply: func() {
		t.s.transactions = append(t.s.transactions, row)
	}})
	return nil
}

func (t *tx) InsertPayrollBatch(ctx context.Context, batch *models.PayrollBatch) error {
	batch.ID = t.s.nextID("payroll_batches")
	for i := range batch.Payments {
		batch.Payments[i].ID = t.s.nextID("payroll_payments")
		batch.Payments[i].BatchID = batch.ID
	}
	row := copyBatch(*batch)
	t.ops = append(t.ops, op{
		check: func() error {
			if t.s.batchExists(row.OrganizationID, row.Month, row.Year) {
				return storage.ErrDuplicate
			}
			return nil
		},
		apply: func() { t.s.batches[row.ID] = *row },
	})
	return nil
}

func (t *tx) LockPayrollBatch(ctx context.Context, id int64) (*models.PayrollBatch, error) {
	if err := t.lock(ctx, fmt.Sprintf("batch:%d", id)); err != nil {
		return nil, err
	}
	return t.s.GetPayrollBatch(ctx, id)
}

func (t *tx) UpdatePayrollBatch(ctx context.Context, batch *models.PayrollBatch) error {
	row := copyBatch(*batch)
	t.ops = append(t.ops, op{
		check: func() error {
			if _, ok := t.s.batches[row.ID]; !ok {
				return storage.ErrNotFound
			}
			return nil
		},
		apply: func() { t.s.batches[row.ID] = *row },
	})
	return nil
}

func (t *tx) InsertVendorPayment(ctx context.Context, payment *models.VendorPayment) error {
	payment.ID = t.s.nextID("vendor_payments")
	row := *payment
	t.ops = append(t.ops, op{apply: func() { t.s.vendorPayments[row.ID] = row }})
	return nil
}

func (t *tx) UpdateVendorPayment(ctx context.Context, payment *models.VendorPayment) error {
	row := *payment
	t.ops = append(t.ops, op{
		check: func() error {
			if _, ok := t.s.vendorPayments[row.ID]; !ok {
				return storage.ErrNotFound
			}
			return nil
		},
		apply: func() { t.s.vendorPayments[row.ID] = row },
	})
	return nil
}

func (t *tx) InsertBill(ctx context.Context, bill *models.Bill) error {
	bill.ID = t.s.nextID("bills")
	row := *bill
	t.ops = append(t.ops, op{
		check: func() error {
			if _, ok := t.s.bills[row.VendorPaymentID]; ok {
				return storage.ErrDuplicate
			}
			for _, existing := range t.s.bills {
				if existing.BillNumber == row.BillNumber {
					return storage.ErrDuplicate
				}
			}
			return nil
		},
		apply: func() { t.s.bills[row.VendorPaymentID] = row },
	})
	return nil
}

func (t *tx) InsertDeposit(ctx context.Context, deposit *models.Deposit) error {
	deposit.ID = t.s.nextID("deposits")
	row := *deposit
	t.ops = append(t.ops, op{apply: func() {
		t.s.deposits = append(t.s.deposits, row)
	}})
	return nil
}

var _ storage.Tx = (*tx)(nil)
