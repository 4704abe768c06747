package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PayrollStatus string

const (
	PayrollPendingApproval PayrollStatus = "PENDING_APPROVAL"
	PayrollProcessing      PayrollStatus = "PROCESSING"
	PayrollCompleted       PayrollStatus = "COMPLETED"
	PayrollRejected        PayrollStatus = "REJECTED"
)

// PayrollTransitions is the complete payroll batch state machine.
var PayrollTransitions = map[PayrollStatus][]PayrollStatus{
	PayrollPendingApproval: {PayrollProcessing, PayrollRejected},
	PayrollProcessing:      {PayrollCompleted},
	PayrollCompleted:       {},
	PayrollRejected:        {},
}

func (s PayrollStatus) CanTransitionTo(to PayrollStatus) bool {
	return checkTransition(PayrollTransitions, "", 0, s, to) == nil
}

func (s PayrollStatus) IsTerminal() bool {
	return isTerminal(PayrollTransitions, s)
}

type PayrollPaymentStatus string

const (
	PayrollPaymentPending   PayrollPaymentStatus = "PENDING"
	PayrollPaymentProcessed PayrollPaymentStatus = "PROCESSED"
	PayrollPaymentRejected  PayrollPaymentStatus = "REJECTED"
)

// PayrollBatch is one payroll run for one organization and period.
type PayrollBatch struct {
	ID              int64            `json:"id" db:"id"`
	OrganizationID  int64            `json:"organizationId" db:"organization_id"`
	Month           int              `json:"month" db:"month"`
	Year            int              `json:"year" db:"year"`
	Status          PayrollStatus    `json:"status" db:"status"`
	TotalAmount     decimal.Decimal  `json:"totalAmount" db:"total_amount"`
	TotalEmployees  int              `json:"totalEmployees" db:"total_employees"`
	SubmittedBy     int64            `json:"submittedBy" db:"submitted_by"`
	ApprovedBy      *int64           `json:"approvedBy,omitempty" db:"approved_by"`
	RejectionReason string           `json:"rejectionReason,omitempty" db:"rejection_reason"`
	TransactionID   *int64           `json:"transactionId,omitempty" db:"transaction_id"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time        `json:"updatedAt" db:"updated_at"`
	Payments        []PayrollPayment `json:"payments,omitempty"`
}

// PayrollPayment is one employee's line in a batch. Salary figures are a
// snapshot taken when the batch was created.
type PayrollPayment struct {
	ID            int64                `json:"id" db:"id"`
	BatchID       int64                `json:"batchId" db:"batch_id"`
	EmployeeID    int64                `json:"employeeId" db:"employee_id"`
	EmployeeName  string               `json:"employeeName" db:"employee_name"`
	BasicSalary   decimal.Decimal      `json:"basicSalary" db:"basic_salary"`
	Allowances    decimal.Decimal      `json:"allowances" db:"allowances"`
	Deductions    decimal.Decimal      `json:"deductions" db:"deductions"`
	NetSalaryPaid decimal.Decimal      `json:"netSalaryPaid" db:"net_salary_paid"`
	Status        PayrollPaymentStatus `json:"status" db:"status"`
	ProcessedAt   *time.Time           `json:"processedAt,omitempty" db:"processed_at"`
}

// NewPayrollBatch assembles a pending batch and its total from snapshot lines.
func NewPayrollBatch(orgID int64, month, year int, submittedBy int64, payments []PayrollPayment, now time.Time) *PayrollBatch {
	total := decimal.Zero
	for i := range payments {
		payments[i].Status = PayrollPaymentPending
		total = total.Add(payments[i].NetSalaryPaid)
	}
	return &PayrollBatch{
		OrganizationID: orgID,
		Month:          month,
		Year:           year,
		Status:         PayrollPendingApproval,
		TotalAmount:    total,
		TotalEmployees: len(payments),
		SubmittedBy:    submittedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
		Payments:       payments,
	}
}

// BeginProcessing moves an approved batch out of PENDING_APPROVAL.
func (b *PayrollBatch) BeginProcessing(approvedBy int64, at time.Time) error {
	if err := checkTransition(PayrollTransitions, "payroll batch", b.ID, b.Status, PayrollProcessing); err != nil {
		return err
	}
	b.Status = PayrollProcessing
	b.ApprovedBy = &approvedBy
	b.UpdatedAt = at
	return nil
}

// Complete records the settling transaction and marks every line processed.
func (b *PayrollBatch) Complete(transactionID int64, at time.Time) error {
	if err := checkTransition(PayrollTransitions, "payroll batch", b.ID, b.Status, PayrollCompleted); err != nil {
		return err
	}
	for i := range b.Payments {
		b.Payments[i].Status = PayrollPaymentProcessed
		b.Payments[i].ProcessedAt = &at
	}
	b.Status = PayrollCompleted
	b.TransactionID = &transactionID
	b.UpdatedAt = at
	return nil
}

// Reject refuses a pending batch. A batch past approval fails the transition
// check whatever the reason.
func (b *PayrollBatch) Reject(reason string, at time.Time) error {
	if err := checkTransition(PayrollTransitions, "payroll batch", b.ID, b.Status, PayrollRejected); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	for i := range b.Payments {
		b.Payments[i].Status = PayrollPaymentRejected
	}
	b.Status = PayrollRejected
	b.RejectionReason = reason
	b.UpdatedAt = at
	return nil
}

// Employee and SalaryStructure come from the employee directory, which this service only reads.
type Employee struct {
	ID             int64  `json:"id" db:"id"`
	OrganizationID int64  `json:"organizationId" db:"organization_id"`
	FirstName      string `json:"firstName" db:"first_name"`
	LastName       string `json:"lastName" db:"last_name"`
	Email          string `json:"email" db:"email"`
	Active         bool   `json:"active" db:"active"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

type SalaryStructure struct {
	ID            int64           `json:"id" db:"id"`
	EmployeeID    int64           `json:"employeeId" db:"employee_id"`
	BasicSalary   decimal.Decimal `json:"basicSalary" db:"basic_salary"`
	Allowances    decimal.Decimal `json:"allowances" db:"allowances"`
	Deductions    decimal.Decimal `json:"deductions" db:"deductions"`
	Active        bool            `json:"active" db:"active"`
	EffectiveFrom time.Time       `json:"effectiveFrom" db:"effective_from"`
}

// NetSalary is earnings minus deductions.
func (s SalaryStructure) NetSalary() decimal.Decimal {
	return s.BasicSalary.Add(s.Allowances).Sub(s.Deductions)
}

// Snapshot freezes the structure into a pending payroll line for employee.
// Components are rounded to whole minor units first so the net always equals
// the stored parts.
func (s SalaryStructure) Snapshot(employee Employee) PayrollPayment {
	s.BasicSalary = s.BasicSalary.Round(AmountScale)
	s.Allowances = s.Allowances.Round(AmountScale)
	s.Deductions = s.Deductions.Round(AmountScale)
	return PayrollPayment{
		EmployeeID:    employee.ID,
		EmployeeName:  employee.FullName(),
		BasicSalary:   s.BasicSalary,
		Allowances:    s.Allowances,
		Deductions:    s.Deductions,
		NetSalaryPaid: s.NetSalary(),
		Status:        PayrollPaymentPending,
	}
}
