package services

import (
	"context"
	"testing"

	"github.com/ruralpay/orgledger/internal/audit"
	"github.com/ruralpay/orgledger/internal/events"
	"github.com/ruralpay/orgledger/internal/locks"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/notify"
	"github.com/ruralpay/orgledger/internal/render"
	"github.com/ruralpay/orgledger/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n notify.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, event events.SettlementEvent) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

// fixture wires every service over the in-memory store.
type fixture struct {
	store     *memory.Store
	ledger    *LedgerService
	payroll   *PayrollService
	vendors   *VendorPaymentService
	deposits  *DepositService
	bills     *BillService
	notifier  *MockNotifier
	publisher *MockPublisher
	logs      *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	auditLog := audit.NewLogger(logger)

	notifier := &MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	publisher := &MockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	store := memory.NewStore()
	renderer := render.NewRenderer("NGN")
	ledger := NewLedgerService(store, locks.NewLocal(), auditLog, logger)
	bills := NewBillService(store, renderer)
	iso := NewISO20022Service("NGN", "RURLNGLA")

	return &fixture{
		store:     store,
		ledger:    ledger,
		payroll:   NewPayrollService(store, ledger, notifier, publisher, renderer, auditLog, logger),
		vendors:   NewVendorPaymentService(store, ledger, bills, iso, notifier, publisher, auditLog, logger),
		deposits:  NewDepositService(store, ledger, notifier, publisher, auditLog, logger),
		bills:     bills,
		notifier:  notifier,
		publisher: publisher,
		logs:      logs,
	}
}

// fund credits amount so the balance stays derivable from the log.
func (f *fixture) fund(t *testing.T, orgID int64, amount string) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), orgID, Entry{
		Amount:      decimal.RequireFromString(amount),
		Description: "Opening balance",
		Source:      models.ManualAdjustmentSource(1),
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, orgID int64) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), orgID)
	require.NoError(t, err)
	return b
}

// requireConsistent asserts the balance equals the replayed transaction log.
func (f *fixture) requireConsistent(t *testing.T, orgID int64) {
	t.Helper()
	report, err := f.ledger.Reconcile(context.Background(), orgID)
	require.NoError(t, err)
	require.True(t, report.Consistent, "discrepancies: %v", report.Discrepancies)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
