package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places money is stored with.
const AmountScale = 2

// ValidateAmount accepts positive amounts expressible in whole minor units.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return ErrAmountPrecision
	}
	return nil
}

// Organization is one tenant's account. Balance is only ever written by the ledger.
type Organization struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Version   int             `json:"version" db:"version"` // for optimistic locking
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// Debit returns the balance left after removing amount, refusing to go below zero.
func (o *Organization) Debit(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return o.Balance, err
	}
	if o.Balance.LessThan(amount) {
		return o.Balance, &InsufficientFundsError{
			OrganizationID: o.ID,
			Required:       amount,
			Available:      o.Balance,
		}
	}
	return o.Balance.Sub(amount), nil
}

// Credit returns the balance after adding amount.
func (o *Organization) Credit(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return o.Balance, err
	}
	return o.Balance.Add(amount), nil
}

type TransactionType string

const (
	TransactionDebit  TransactionType = "DEBIT"
	TransactionCredit TransactionType = "CREDIT"
)

type SourceType string

const (
	SourcePayrollPayment   SourceType = "PAYROLL_PAYMENT"
	SourceVendorPayment    SourceType = "VENDOR_PAYMENT"
	SourceInvoice          SourceType = "INVOICE"
	SourceManualAdjustment SourceType = "MANUAL_ADJUSTMENT"
)

// Source identifies the entity that caused a ledger transaction. The zero
// value is invalid; use one of the constructors so the id always matches its kind.
type Source struct {
	kind SourceType
	id   int64
}

func PayrollSource(batchID int64) Source {
	return Source{kind: SourcePayrollPayment, id: batchID}
}

func VendorPaymentSource(paymentID int64) Source {
	return Source{kind: SourceVendorPayment, id: paymentID}
}

func InvoiceSource(invoiceID int64) Source {
	return Source{kind: SourceInvoice, id: invoiceID}
}

// ManualAdjustmentSource references the user who made the adjustment.
func ManualAdjustmentSource(actorID int64) Source {
	return Source{kind: SourceManualAdjustment, id: actorID}
}

// ParseSource rebuilds a Source from its stored (type, id) pair.
func ParseSource(kind string, id int64) (Source, error) {
	switch SourceType(kind) {
	case SourcePayrollPayment, SourceVendorPayment, SourceInvoice, SourceManualAdjustment:
		return Source{kind: SourceType(kind), id: id}, nil
	default:
		return Source{}, fmt.Errorf("unknown transaction source type %q", kind)
	}
}

func (s Source) Type() SourceType { return s.kind }
func (s Source) ID() int64        { return s.id }
func (s Source) IsZero() bool     { return s.kind == "" }

func (s Source) String() string {
	return fmt.Sprintf("%s:%d", s.kind, s.id)
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type SourceType `json:"type"`
		ID   int64      `json:"id"`
	}{s.kind, s.id})
}

func (s *Source) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type string `json:"type"`
		ID   int64  `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSource(raw.Type, raw.ID)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Transaction is an immutable ledger record.
type Transaction struct {
	ID             int64           `json:"id" db:"id"`
	OrganizationID int64           `json:"organizationId" db:"organization_id"`
	Type           TransactionType `json:"type" db:"type"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Description    string          `json:"description" db:"description"`
	Source         Source          `json:"source"`
	BalanceAfter   decimal.Decimal `json:"balanceAfter" db:"balance_after"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// SignedAmount is the amount as it affects the balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ReconciliationReport is the result of replaying an organization's transaction log.
type ReconciliationReport struct {
	OrganizationID   int64           `json:"organizationId"`
	Balance          decimal.Decimal `json:"balance"`
	ReplayedBalance  decimal.Decimal `json:"replayedBalance"`
	TransactionCount int             `json:"transactionCount"`
	Consistent       bool            `json:"consistent"`
	Discrepancies    []string        `json:"discrepancies,omitempty"`
	CheckedAt        time.Time       `json:"checkedAt"`
}
