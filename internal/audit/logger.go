// Package audit writes one structured line per money movement, state
// transition and settlement failure.
package audit

import (
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EventDebit      = "DEBIT"
	EventCredit     = "CREDIT"
	EventTransition = "STATE_TRANSITION"
	EventError      = "ERROR"
)

type Logger struct {
	log *zap.Logger
}

func NewLogger(base *zap.Logger) *Logger {
	return &Logger{log: base.Named("audit")}
}

// LogTransaction records a committed ledger entry.
func (a *Logger) LogTransaction(txn *models.Transaction) {
	a.log.Info("ledger transaction",
		zap.String("event_type", string(txn.Type)),
		zap.Int64("transaction_id", txn.ID),
		zap.Int64("organization_id", txn.OrganizationID),
		zap.String("amount", txn.Amount.StringFixed(2)),
		zap.String("balance_after", txn.BalanceAfter.StringFixed(2)),
		zap.String("source", txn.Source.String()),
		zap.String("status", "SUCCESS"),
	)
}

// LogTransition records an entity moving between states.
func (a *Logger) LogTransition(entity string, id int64, from, to string, actorID int64) {
	a.log.Info("state transition",
		zap.String("event_type", EventTransition),
		zap.String("entity", entity),
		zap.Int64("entity_id", id),
		zap.String("from", from),
		zap.String("to", to),
		zap.Int64("actor_id", actorID),
	)
}

// LogError records a settlement that did not complete.
func (a *Logger) LogError(operation string, orgID int64, amount decimal.Decimal, err error) {
	a.log.Warn("settlement failed",
		zap.String("event_type", EventError),
		zap.String("operation", operation),
		zap.Int64("organization_id", orgID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("status", "FAILED"),
		zap.Error(err),
	)
}
