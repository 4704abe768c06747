// Package events publishes settlement outcomes for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TopicPayrollCompleted       = "payroll.completed"
	TopicPayrollRejected        = "payroll.rejected"
	TopicVendorPaymentProcessed = "vendor_payment.processed"
	TopicVendorPaymentFailed    = "vendor_payment.failed"
	TopicDepositRecorded        = "deposit.recorded"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, event SettlementEvent) error
}

// SettlementEvent describes one committed settlement outcome.
type SettlementEvent struct {
	EventID        string          `json:"event_id"`
	OrganizationID int64           `json:"organization_id"`
	EntityID       int64           `json:"entity_id"`
	TransactionID  *int64          `json:"transaction_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func NewSettlementEvent(orgID, entityID int64, transactionID *int64, amount decimal.Decimal, status string) SettlementEvent {
	return SettlementEvent{
		EventID:        uuid.NewString(),
		OrganizationID: orgID,
		EntityID:       entityID,
		TransactionID:  transactionID,
		Amount:         amount,
		Status:         status,
		OccurredAt:     time.Now().UTC(),
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(ctx context.Context, topic string, event SettlementEvent) error { return nil }
