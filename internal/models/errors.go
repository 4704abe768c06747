package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveAmount       = errors.New("amount must be greater than zero")
	ErrAmountPrecision         = errors.New("amount must not have more than two decimal places")
	ErrMissingPaymentID        = errors.New("vendor payment has no persisted identifier")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	ErrForbidden               = errors.New("caller may not act on this organization")
	ErrInvalidPeriod           = errors.New("payroll period must be a month between 1 and 12 and a year between 2000 and 2100")
	ErrMissingSource           = errors.New("ledger transaction requires a source")
)

// InsufficientFundsError is returned when a debit would drive an organization balance below zero.
type InsufficientFundsError struct {
	OrganizationID int64
	Required       decimal.Decimal
	Available      decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for organization %d: required %s, available %s",
		e.OrganizationID, e.Required.StringFixed(2), e.Available.StringFixed(2))
}

// DuplicateBatchError reports an existing payroll batch for the same organization and period.
type DuplicateBatchError struct {
	OrganizationID int64
	Month          int
	Year           int
}

func (e *DuplicateBatchError) Error() string {
	return fmt.Sprintf("payroll batch for organization %d already exists for %02d/%d", e.OrganizationID, e.Month, e.Year)
}

type NoEligibleEmployeesError struct {
	OrganizationID int64
}

func (e *NoEligibleEmployeesError) Error() string {
	return fmt.Sprintf("organization %d has no active employees with an active salary structure", e.OrganizationID)
}

// InvalidStateTransitionError represents a transition the entity's state machine does not allow.
type InvalidStateTransitionError struct {
	Entity string
	ID     int64
	From   string
	To     string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s for %s %d", e.From, e.To, e.Entity, e.ID)
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

type InactiveVendorError struct {
	VendorID int64
}

func (e *InactiveVendorError) Error() string {
	return fmt.Sprintf("vendor %d is not active", e.VendorID)
}
