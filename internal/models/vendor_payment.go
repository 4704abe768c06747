package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type VendorPaymentStatus string

const (
	VendorPaymentPending   VendorPaymentStatus = "PENDING"
	VendorPaymentProcessed VendorPaymentStatus = "PROCESSED"
	VendorPaymentFailed    VendorPaymentStatus = "FAILED"
)

// VendorPaymentTransitions is the complete vendor payment state machine.
// Terminal payments are never retried.
var VendorPaymentTransitions = map[VendorPaymentStatus][]VendorPaymentStatus{
	VendorPaymentPending:   {VendorPaymentProcessed, VendorPaymentFailed},
	VendorPaymentProcessed: {},
	VendorPaymentFailed:    {},
}

func (s VendorPaymentStatus) IsTerminal() bool {
	return isTerminal(VendorPaymentTransitions, s)
}

type Vendor struct {
	ID             int64  `json:"id" db:"id"`
	OrganizationID int64  `json:"organizationId" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	Email          string `json:"email" db:"email"`
	Active         bool   `json:"active" db:"active"`
}

type VendorPayment struct {
	ID             int64               `json:"id" db:"id"`
	OrganizationID int64               `json:"organizationId" db:"organization_id"`
	VendorID       int64               `json:"vendorId" db:"vendor_id"`
	Amount         decimal.Decimal     `json:"amount" db:"amount"`
	Description    string              `json:"description" db:"description"`
	PaymentDate    time.Time           `json:"paymentDate" db:"payment_date"`
	Status         VendorPaymentStatus `json:"status" db:"status"`
	TransactionID  *int64              `json:"transactionId,omitempty" db:"transaction_id"`
	FailureReason  string              `json:"failureReason,omitempty" db:"failure_reason"`
	CreatedBy      int64               `json:"createdBy" db:"created_by"`
	CreatedAt      time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time           `json:"updatedAt" db:"updated_at"`
}

func (p *VendorPayment) MarkProcessed(transactionID int64, at time.Time) error {
	if err := checkTransition(VendorPaymentTransitions, "vendor payment", p.ID, p.Status, VendorPaymentProcessed); err != nil {
		return err
	}
	p.Status = VendorPaymentProcessed
	p.TransactionID = &transactionID
	p.UpdatedAt = at
	return nil
}

func (p *VendorPayment) MarkFailed(reason string, at time.Time) error {
	if err := checkTransition(VendorPaymentTransitions, "vendor payment", p.ID, p.Status, VendorPaymentFailed); err != nil {
		return err
	}
	p.Status = VendorPaymentFailed
	p.FailureReason = reason
	p.UpdatedAt = at
	return nil
}

// Bill is the receipt issued for exactly one processed vendor payment.
type Bill struct {
	ID              int64           `json:"id" db:"id"`
	BillNumber      string          `json:"billNumber" db:"bill_number"`
	VendorPaymentID int64           `json:"vendorPaymentId" db:"vendor_payment_id"`
	OrganizationID  int64           `json:"organizationId" db:"organization_id"`
	VendorID        int64           `json:"vendorId" db:"vendor_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	IssuedAt        time.Time       `json:"issuedAt" db:"issued_at"`
}

// Deposit is the audit row for one inbound credit.
type Deposit struct {
	ID             int64           `json:"id" db:"id"`
	OrganizationID int64           `json:"organizationId" db:"organization_id"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	DepositDate    time.Time       `json:"depositDate" db:"deposit_date"`
	TransactionID  int64           `json:"transactionId" db:"transaction_id"`
	BalanceAfter   decimal.Decimal `json:"balanceAfter" db:"balance_after"`
	DepositedBy    int64           `json:"depositedBy" db:"deposited_by"`
}
