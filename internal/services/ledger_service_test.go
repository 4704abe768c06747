package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ruralpay/orgledger/internal/audit"
	"github.com/ruralpay/orgledger/internal/locks"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/storage"
	"github.com/ruralpay/orgledger/internal/storage/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLedgerService_DebitAndCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.store.AddOrganization("Acme Ltd")

	t.Run("credit raises the balance and records balanceAfter", func(t *testing.T) {
		txn, err := f.ledger.Credit(ctx, org.ID, Entry{Amount: dec("1000.00"), Description: "Deposit", Source: models.ManualAdjustmentSource(7)})
		require.NoError(t, err)
		assert.Equal(t, models.TransactionCredit, txn.Type)
		assert.True(t, txn.BalanceAfter.Equal(dec("1000")))
		assert.True(t, f.balance(t, org.ID).Equal(dec("1000")))
	})

	t.Run("debit lowers the balance", func(t *testing.T) {
		txn, err := f.ledger.Debit(ctx, org.ID, Entry{Amount: dec("250.50"), Description: "Vendor", Source: models.VendorPaymentSource(3)})
		require.NoError(t, err)
		assert.Equal(t, models.TransactionDebit, txn.Type)
		assert.Equal(t, models.VendorPaymentSource(3), txn.Source)
		assert.True(t, txn.BalanceAfter.Equal(dec("749.50")))
	})

	t.Run("insufficient funds changes nothing", func(t *testing.T) {
		before, err := f.ledger.Transactions(ctx, org.ID, 0)
		require.NoError(t, err)

		_, err = f.ledger.Debit(ctx, org.ID, Entry{Amount: dec("749.51"), Source: models.VendorPaymentSource(4)})
		var insufficient *models.InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		assert.True(t, insufficient.Required.Equal(dec("749.51")))
		assert.True(t, insufficient.Available.Equal(dec("749.50")))

		after, err := f.ledger.Transactions(ctx, org.ID, 0)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
		assert.True(t, f.balance(t, org.ID).Equal(dec("749.50")))
	})

	t.Run("debit of the whole balance reaches zero", func(t *testing.T) {
		_, err := f.ledger.Debit(ctx, org.ID, Entry{Amount: dec("749.50"), Source: models.VendorPaymentSource(5)})
		require.NoError(t, err)
		assert.True(t, f.balance(t, org.ID).IsZero())
	})

	t.Run("non-positive amounts are refused", func(t *testing.T) {
		_, err := f.ledger.Credit(ctx, org.ID, Entry{Amount: dec("0"), Source: models.ManualAdjustmentSource(7)})
		assert.ErrorIs(t, err, models.ErrNonPositiveAmount)
		_, err = f.ledger.Debit(ctx, org.ID, Entry{Amount: dec("-5"), Source: models.ManualAdjustmentSource(7)})
		assert.ErrorIs(t, err, models.ErrNonPositiveAmount)
	})

	t.Run("sub-cent amounts are refused", func(t *testing.T) {
		_, err := f.ledger.Credit(ctx, org.ID, Entry{Amount: dec("10.005"), Source: models.ManualAdjustmentSource(7)})
		assert.ErrorIs(t, err, models.ErrAmountPrecision)
		_, err = f.ledger.Debit(ctx, org.ID, Entry{Amount: dec("0.001"), Source: models.ManualAdjustmentSource(7)})
		assert.ErrorIs(t, err, models.ErrAmountPrecision)
		assert.True(t, f.balance(t, org.ID).IsZero())
	})

	t.Run("a source is mandatory", func(t *testing.T) {
		_, err := f.ledger.Credit(ctx, org.ID, Entry{Amount: dec("10")})
		assert.ErrorIs(t, err, models.ErrMissingSource)
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, err := f.ledger.Credit(ctx, 404, Entry{Amount: dec("10"), Source: models.ManualAdjustmentSource(7)})
		var nf *models.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "organization", nf.Entity)
	})

	f.requireConsistent(t, org.ID)
}

func TestLedgerService_Transactions(t *testing.T) {
	f := newFixture(t)
	org := f.store.AddOrganization("Acme Ltd")
	for _, amount := range []string{"100", "200", "300"} {
		f.fund(t, org.ID, amount)
	}

	all, err := f.ledger.Transactions(context.Background(), org.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].BalanceAfter.Equal(dec("100")))
	assert.True(t, all[2].BalanceAfter.Equal(dec("600")))

	recent, err := f.ledger.Transactions(context.Background(), org.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, all[1].ID, recent[0].ID)
}

// Two concurrent debits of 600.00 against 1000.00: exactly one may succeed.
func TestLedgerService_ConcurrentDebits(t *testing.T) {
	for run := 0; run < 20; run++ {
		f := newFixture(t)
		org := f.store.AddOrganization("Acme Ltd")
		f.fund(t, org.ID, "1000.00")

		var (
			wg           sync.WaitGroup
			mu           sync.Mutex
			succeeded    int
			insufficient int
		)
		start := make(chan struct{})
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, err := f.ledger.Debit(context.Background(), org.ID, Entry{
					Amount: dec("600.00"),
					Source: models.VendorPaymentSource(int64(i + 1)),
				})
				mu.Lock()
				defer mu.Unlock()
				var target *models.InsufficientFundsError
				switch {
				case err == nil:
					succeeded++
				case errors.As(err, &target):
					insufficient++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, insufficient)
		assert.True(t, f.balance(t, org.ID).Equal(dec("400")))
		f.requireConsistent(t, org.ID)
	}
}

func TestLedgerService_BalanceInvariantUnderLoad(t *testing.T) {
	f := newFixture(t)
	orgA := f.store.AddOrganization("Acme Ltd")
	orgB := f.store.AddOrganization("Beta Co")
	f.fund(t, orgA.ID, "500")
	f.fund(t, orgB.ID, "500")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		for _, orgID := range []int64{orgA.ID, orgB.ID} {
			wg.Add(1)
			go func(i int, orgID int64) {
				defer wg.Done()
				entry := Entry{Amount: dec("45.25"), Source: models.ManualAdjustmentSource(int64(i))}
				if i%3 == 0 {
					_, _ = f.ledger.Credit(context.Background(), orgID, entry)
					return
				}
				_, _ = f.ledger.Debit(context.Background(), orgID, entry)
			}(i, orgID)
		}
	}
	wg.Wait()

	for _, orgID := range []int64{orgA.ID, orgB.ID} {
		assert.False(t, f.balance(t, orgID).IsNegative())
		f.requireConsistent(t, orgID)
	}
}

// conflictStore reports a stale version for the first failures units of work.
type conflictStore struct {
	storage.Store
	failures int
	calls    int
}

func (c *conflictStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	c.calls++
	if c.calls <= c.failures {
		return storage.ErrConflict
	}
	return c.Store.WithTx(ctx, fn)
}

func TestLedgerService_RetriesConflicts(t *testing.T) {
	f := newFixture(t)
	org := f.store.AddOrganization("Acme Ltd")

	t.Run("recovers within the retry budget", func(t *testing.T) {
		cs := &conflictStore{Store: f.store, failures: maxConflictRetries - 1}
		ledger := NewLedgerService(cs, locks.NewLocal(), audit.NewLogger(zap.NewNop()), zap.NewNop())

		_, err := ledger.Credit(context.Background(), org.ID, Entry{Amount: dec("10"), Source: models.ManualAdjustmentSource(1)})
		require.NoError(t, err)
		assert.Equal(t, maxConflictRetries, cs.calls)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		cs := &conflictStore{Store: f.store, failures: maxConflictRetries}
		ledger := NewLedgerService(cs, locks.NewLocal(), audit.NewLogger(zap.NewNop()), zap.NewNop())

		_, err := ledger.Credit(context.Background(), org.ID, Entry{Amount: dec("10"), Source: models.ManualAdjustmentSource(1)})
		assert.ErrorIs(t, err, storage.ErrConflict)
		assert.Equal(t, maxConflictRetries, cs.calls)
	})

	assert.True(t, f.balance(t, org.ID).Equal(dec("10")))
}

func TestLedgerService_Reconcile(t *testing.T) {
	f := newFixture(t)
	org := f.store.AddOrganization("Acme Ltd")
	f.fund(t, org.ID, "1000")
	_, err := f.ledger.Debit(context.Background(), org.ID, Entry{Amount: dec("400"), Source: models.PayrollSource(1)})
	require.NoError(t, err)

	report, err := f.ledger.Reconcile(context.Background(), org.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 2, report.TransactionCount)
	assert.True(t, report.ReplayedBalance.Equal(dec("600")))
	assert.Empty(t, report.Discrepancies)

	_, err = f.ledger.Reconcile(context.Background(), 999)
	var nf *models.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestLedgerService_DebitOnPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ledger := NewLedgerService(postgres.NewStore(db), locks.NewLocal(), audit.NewLogger(zap.NewNop()), zap.NewNop())
	at := time.Date(2024, 3, 28, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return at }

	t.Run("successful debit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, balance, version, updated_at FROM organizations WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance", "version", "updated_at"}).
				AddRow(5, "Acme Ltd", "1000.00", 2, at))
		mock.ExpectExec("UPDATE organizations").
			WithArgs(dec("400"), at, int64(5), 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO ledger_transactions").
			WithArgs(int64(5), "DEBIT", dec("600"), "Payroll", "PAYROLL_PAYMENT", int64(12), dec("400"), at).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(31))
		mock.ExpectCommit()

		txn, err := ledger.Debit(context.Background(), 5, Entry{Amount: dec("600"), Description: "Payroll", Source: models.PayrollSource(12)})
		require.NoError(t, err)
		assert.Equal(t, int64(31), txn.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, balance, version, updated_at FROM organizations WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance", "version", "updated_at"}).
				AddRow(5, "Acme Ltd", "400.00", 3, at))
		mock.ExpectRollback()

		_, err := ledger.Debit(context.Background(), 5, Entry{Amount: dec("600"), Source: models.PayrollSource(13)})
		var insufficient *models.InsufficientFundsError
		assert.ErrorAs(t, err, &insufficient)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version is retried", func(t *testing.T) {
		rows := func(version int) *sqlmock.Rows {
			return sqlmock.NewRows([]string{"id", "name", "balance", "version", "updated_at"}).
				AddRow(5, "Acme Ltd", "400.00", version, at)
		}
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WithArgs(int64(5)).WillReturnRows(rows(3))
		mock.ExpectExec("UPDATE organizations").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WithArgs(int64(5)).WillReturnRows(rows(4))
		mock.ExpectExec("UPDATE organizations").
			WithArgs(dec("500"), at, int64(5), 4).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO ledger_transactions").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(32))
		mock.ExpectCommit()

		txn, err := ledger.Credit(context.Background(), 5, Entry{Amount: dec("100"), Source: models.ManualAdjustmentSource(2)})
		require.NoError(t, err)
		assert.Equal(t, int64(32), txn.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
