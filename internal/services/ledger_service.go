package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruralpay/orgledger/internal/audit"
	"github.com/ruralpay/orgledger/internal/locks"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxConflictRetries bounds how often a unit of work is replayed after a
// stale balance version.
const maxConflictRetries = 3

// Entry describes one balance movement.
type Entry struct {
	Amount      decimal.Decimal
	Description string
	Source      models.Source
}

// LedgerService is the only writer of organization balances. Every
// movement updates the balance and appends its transaction in the same unit
// of work, and all movements for one organization are serialized.
type LedgerService struct {
	store  storage.Store
	locker locks.Locker
	audit  *audit.Logger
	logger *zap.Logger
	now    func() time.Time
}

func NewLedgerService(store storage.Store, locker locks.Locker, auditLog *audit.Logger, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:  store,
		locker: locker,
		audit:  auditLog,
		logger: logger,
		now:    time.Now,
	}
}

// WithOrganization runs fn in a unit of work while holding the organization's
// lock. fn is replayed when the balance changed underneath it, so it must
// read everything it needs through tx.
func (s *LedgerService) WithOrganization(ctx context.Context, orgID int64, fn func(tx storage.Tx) error) error {
	return locks.WithLock(ctx, s.locker, locks.OrganizationKey(orgID), func() error {
		var err error
		for attempt := 1; attempt <= maxConflictRetries; attempt++ {
			err = s.store.WithTx(ctx, fn)
			if !errors.Is(err, storage.ErrConflict) {
				return err
			}
			s.logger.Warn("balance changed during unit of work, retrying",
				zap.Int64("organization_id", orgID), zap.Int("attempt", attempt))
		}
		return err
	})
}

// DebitTx removes e.Amount from the balance inside an existing unit of work.
// The caller must hold the organization through WithOrganization.
func (s *LedgerService) DebitTx(ctx context.Context, tx storage.Tx, orgID int64, e Entry) (*models.Transaction, error) {
	return s.post(ctx, tx, orgID, models.TransactionDebit, e)
}

// CreditTx adds e.Amount to the balance inside an existing unit of work.
func (s *LedgerService) CreditTx(ctx context.Context, tx storage.Tx, orgID int64, e Entry) (*models.Transaction, error) {
	return s.post(ctx, tx, orgID, models.TransactionCredit, e)
}

func (s *LedgerService) post(ctx context.Context, tx storage.Tx, orgID int64, typ models.TransactionType, e Entry) (*models.Transaction, error) {
	if e.Source.IsZero() {
		return nil, models.ErrMissingSource
	}

	org, err := tx.LockOrganization(ctx, orgID)
	if err != nil {
		return nil, notFound(err, "organization", orgID)
	}

	var balance decimal.Decimal
	if typ == models.TransactionDebit {
		balance, err = org.Debit(e.Amount)
	} else {
		balance, err = org.Credit(e.Amount)
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := tx.UpdateOrganizationBalance(ctx, org.ID, balance, org.Version, now); err != nil {
		return nil, fmt.Errorf("failed to update balance of organization %d: %w", org.ID, err)
	}

	txn := &models.Transaction{
		OrganizationID: org.ID,
		Type:           typ,
		Amount:         e.Amount,
		Description:    e.Description,
		Source:         e.Source,
		BalanceAfter:   balance,
		CreatedAt:      now,
	}
	if err := tx.InsertTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record ledger transaction: %w", err)
	}
	return txn, nil
}

// Debit is DebitTx in its own unit of work.
func (s *LedgerService) Debit(ctx context.Context, orgID int64, e Entry) (*models.Transaction, error) {
	return s.standalone(ctx, orgID, e, s.DebitTx)
}

// Credit is CreditTx in its own unit of work.
func (s *LedgerService) Credit(ctx context.Context, orgID int64, e Entry) (*models.Transaction, error) {
	return s.standalone(ctx, orgID, e, s.CreditTx)
}

type postFunc func(ctx context.Context, tx storage.Tx, orgID int64, e Entry) (*models.Transaction, error)

func (s *LedgerService) standalone(ctx context.Context, orgID int64, e Entry, post postFunc) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.WithOrganization(ctx, orgID, func(tx storage.Tx) error {
		var err error
		txn, err = post(ctx, tx, orgID, e)
		return err
	})
	if err != nil {
		s.audit.LogError("ledger posting", orgID, e.Amount, err)
		return nil, err
	}
	s.audit.LogTransaction(txn)
	return txn, nil
}

func (s *LedgerService) Balance(ctx context.Context, orgID int64) (decimal.Decimal, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return decimal.Zero, notFound(err, "organization", orgID)
	}
	return org.Balance, nil
}

// Transactions returns the organization's log in creation order. limit > 0
// keeps only the most recent entries.
func (s *LedgerService) Transactions(ctx context.Context, orgID int64, limit int) ([]models.Transaction, error) {
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return nil, notFound(err, "organization", orgID)
	}
	return s.store.ListTransactions(ctx, orgID, limit)
}

// Reconcile replays the organization's transaction log and compares every
// balanceAfter snapshot and the final balance with the replayed figures.
func (s *LedgerService) Reconcile(ctx context.Context, orgID int64) (*models.ReconciliationReport, error) {
	var (
		org  *models.Organization
		txns []models.Transaction
	)
	err := locks.WithLock(ctx, s.locker, locks.OrganizationKey(orgID), func() error {
		var err error
		if org, err = s.store.GetOrganization(ctx, orgID); err != nil {
			return notFound(err, "organization", orgID)
		}
		txns, err = s.store.ListTransactions(ctx, orgID, 0)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &models.ReconciliationReport{
		OrganizationID:   orgID,
		Balance:          org.Balance,
		TransactionCount: len(txns),
		CheckedAt:        s.now().UTC(),
	}

	replayed := decimal.Zero
	for _, txn := range txns {
		if !txn.Amount.IsPositive() {
			report.Discrepancies = append(report.Discrepancies,
				fmt.Sprintf("transaction %d has non-positive amount %s", txn.ID, txn.Amount.StringFixed(2)))
		}
		replayed = replayed.Add(txn.SignedAmount())
		if replayed.IsNegative() {
			report.Discrepancies = append(report.Discrepancies,
				fmt.Sprintf("balance is negative (%s) after transaction %d", replayed.StringFixed(2), txn.ID))
		}
		if !replayed.Equal(txn.BalanceAfter) {
			report.Discrepancies = append(report.Discrepancies,
				fmt.Sprintf("transaction %d records balance %s, replay gives %s",
					txn.ID, txn.BalanceAfter.StringFixed(2), replayed.StringFixed(2)))
		}
	}
	report.ReplayedBalance = replayed

	if !replayed.Equal(org.Balance) {
		report.Discrepancies = append(report.Discrepancies,
			fmt.Sprintf("stored balance %s differs from replayed balance %s",
				org.Balance.StringFixed(2), replayed.StringFixed(2)))
	}
	report.Consistent = len(report.Discrepancies) == 0

	if !report.Consistent {
		s.logger.Error("ledger reconciliation found discrepancies",
			zap.Int64("organization_id", orgID), zap.Strings("discrepancies", report.Discrepancies))
	}
	return report, nil
}
