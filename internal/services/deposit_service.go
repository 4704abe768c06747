package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ruralpay/orgledger/internal/audit"
	"github.com/ruralpay/orgledger/internal/events"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/notify"
	"github.com/ruralpay/orgledger/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DepositService struct {
	outbox
	store  storage.Store
	ledger *LedgerService
	audit  *audit.Logger
	now    func() time.Time
}

func NewDepositService(
	store storage.Store,
	ledger *LedgerService,
	notifier notify.Notifier,
	publisher events.Publisher,
	auditLog *audit.Logger,
	logger *zap.Logger,
) *DepositService {
	return &DepositService{
		outbox: outbox{notifier: notifier, publisher: publisher, logger: logger.Named("deposits")},
		store:  store,
		ledger: ledger,
		audit:  auditLog,
		now:    time.Now,
	}
}

// Deposit credits the organization and records the deposit row in the same
// unit of work, referencing the credit transaction.
func (s *DepositService) Deposit(ctx context.Context, orgID int64, amount decimal.Decimal, depositedBy int64) (*models.Deposit, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var (
		deposit *models.Deposit
		txn     *models.Transaction
	)
	err := s.ledger.WithOrganization(ctx, orgID, func(tx storage.Tx) error {
		posted, err := s.ledger.CreditTx(ctx, tx, orgID, Entry{
			Amount:      amount,
			Description: "Deposit",
			Source:      models.ManualAdjustmentSource(depositedBy),
		})
		if err != nil {
			return err
		}

		d := &models.Deposit{
			OrganizationID: orgID,
			Amount:         amount,
			DepositDate:    posted.CreatedAt,
			TransactionID:  posted.ID,
			BalanceAfter:   posted.BalanceAfter,
			DepositedBy:    depositedBy,
		}
		if err := tx.InsertDeposit(ctx, d); err != nil {
			return fmt.Errorf("failed to record deposit: %w", err)
		}
		deposit, txn = d, posted
		return nil
	})
	if err != nil {
		s.audit.LogError("deposit", orgID, amount, err)
		return nil, err
	}

	s.audit.LogTransaction(txn)
	s.notify(ctx, notify.New(notify.UserRecipient(depositedBy),
		"Deposit received",
		fmt.Sprintf("%s was credited. New balance %s.", amount.StringFixed(2), deposit.BalanceAfter.StringFixed(2))))
	s.publish(ctx, events.TopicDepositRecorded,
		events.NewSettlementEvent(orgID, deposit.ID, &deposit.TransactionID, amount, "RECORDED"))
	return deposit, nil
}

func (s *DepositService) List(ctx context.Context, orgID int64) ([]models.Deposit, error) {
	return s.store.ListDeposits(ctx, orgID)
}
