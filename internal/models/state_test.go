package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingBatch() *PayrollBatch {
	lines := []PayrollPayment{
		{EmployeeID: 1, NetSalaryPaid: decimal.RequireFromString("700.00")},
		{EmployeeID: 2, NetSalaryPaid: decimal.RequireFromString("500.00")},
	}
	b := NewPayrollBatch(5, 3, 2024, 11, lines, time.Now())
	b.ID = 42
	return b
}

func TestNewPayrollBatch(t *testing.T) {
	b := pendingBatch()

	assert.Equal(t, PayrollPendingApproval, b.Status)
	assert.True(t, decimal.RequireFromString("1200.00").Equal(b.TotalAmount))
	assert.Equal(t, 2, b.TotalEmployees)
	for _, p := range b.Payments {
		assert.Equal(t, PayrollPaymentPending, p.Status)
	}
}

func TestPayrollBatch_Lifecycle(t *testing.T) {
	t.Run("approve then complete", func(t *testing.T) {
		b := pendingBatch()
		at := time.Now()

		require.NoError(t, b.BeginProcessing(99, at))
		assert.Equal(t, PayrollProcessing, b.Status)
		require.NoError(t, b.Complete(7, at))

		assert.Equal(t, PayrollCompleted, b.Status)
		assert.Equal(t, int64(7), *b.TransactionID)
		assert.Equal(t, int64(99), *b.ApprovedBy)
		for _, p := range b.Payments {
			assert.Equal(t, PayrollPaymentProcessed, p.Status)
			assert.NotNil(t, p.ProcessedAt)
		}
	})

	t.Run("complete requires processing", func(t *testing.T) {
		b := pendingBatch()
		err := b.Complete(7, time.Now())

		var transitionErr *InvalidStateTransitionError
		require.True(t, errors.As(err, &transitionErr))
		assert.Equal(t, "PENDING_APPROVAL", transitionErr.From)
		assert.Equal(t, "COMPLETED", transitionErr.To)
		assert.Nil(t, b.TransactionID)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		b := pendingBatch()
		assert.ErrorIs(t, b.Reject("   ", time.Now()), ErrRejectionReasonRequired)
		assert.Equal(t, PayrollPendingApproval, b.Status)
	})

	t.Run("reject past approval fails the transition before the reason", func(t *testing.T) {
		b := pendingBatch()
		require.NoError(t, b.BeginProcessing(30, time.Now()))

		var transitionErr *InvalidStateTransitionError
		err := b.Reject("", time.Now())
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, "PROCESSING", transitionErr.From)
		assert.NotErrorIs(t, err, ErrRejectionReasonRequired)
	})

	t.Run("terminal states refuse every transition", func(t *testing.T) {
		for _, status := range []PayrollStatus{PayrollCompleted, PayrollRejected} {
			b := pendingBatch()
			b.Status = status
			before := *b

			var transitionErr *InvalidStateTransitionError
			assert.ErrorAs(t, b.BeginProcessing(1, time.Now()), &transitionErr)
			assert.ErrorAs(t, b.Reject("late", time.Now()), &transitionErr)
			assert.Equal(t, before.Status, b.Status)
			assert.Equal(t, before.ApprovedBy, b.ApprovedBy)
			assert.Empty(t, b.RejectionReason)
			assert.True(t, status.IsTerminal())
		}
	})
}

func TestPayrollStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, PayrollPendingApproval.CanTransitionTo(PayrollProcessing))
	assert.True(t, PayrollPendingApproval.CanTransitionTo(PayrollRejected))
	assert.False(t, PayrollPendingApproval.CanTransitionTo(PayrollCompleted))
	assert.False(t, PayrollRejected.CanTransitionTo(PayrollProcessing))
	assert.False(t, PayrollPendingApproval.IsTerminal())
}

func TestVendorPayment_Transitions(t *testing.T) {
	p := &VendorPayment{ID: 3, Status: VendorPaymentPending}
	require.NoError(t, p.MarkFailed("insufficient funds", time.Now()))
	assert.Equal(t, VendorPaymentFailed, p.Status)

	var transitionErr *InvalidStateTransitionError
	assert.ErrorAs(t, p.MarkProcessed(10, time.Now()), &transitionErr)
	assert.Nil(t, p.TransactionID)
	assert.True(t, p.Status.IsTerminal())
}

func TestOrganization_Debit(t *testing.T) {
	org := &Organization{ID: 5, Balance: decimal.RequireFromString("1000.00")}

	next, err := org.Debit(decimal.RequireFromString("600.00"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("400.00").Equal(next))

	_, err = org.Debit(decimal.RequireFromString("1200.00"))
	var fundsErr *InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, "1200.00", fundsErr.Required.StringFixed(2))
	assert.Equal(t, "1000.00", fundsErr.Available.StringFixed(2))

	_, err = org.Debit(decimal.Zero)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
	_, err = org.Credit(decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   error
	}{
		{"10.05", nil},
		{"10.050", nil},
		{"1", nil},
		{"0", ErrNonPositiveAmount},
		{"-0.01", ErrNonPositiveAmount},
		{"10.005", ErrAmountPrecision},
		{"0.001", ErrAmountPrecision},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	org := &Organization{ID: 5, Balance: decimal.RequireFromString("1000.00")}
	next, err := org.Debit(decimal.RequireFromString("10.005"))
	assert.ErrorIs(t, err, ErrAmountPrecision)
	assert.True(t, org.Balance.Equal(next))
	_, err = org.Credit(decimal.RequireFromString("0.001"))
	assert.ErrorIs(t, err, ErrAmountPrecision)
}

func TestSource(t *testing.T) {
	src := PayrollSource(9)
	assert.Equal(t, SourcePayrollPayment, src.Type())
	assert.Equal(t, int64(9), src.ID())

	data, err := json.Marshal(src)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"PAYROLL_PAYMENT","id":9}`, string(data))

	var decoded Source
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, src, decoded)

	_, err = ParseSource("REFUND", 1)
	assert.Error(t, err)
	assert.True(t, Source{}.IsZero())
}

func TestSalaryStructure_Snapshot(t *testing.T) {
	s := SalaryStructure{
		BasicSalary: decimal.RequireFromString("1000"),
		Allowances:  decimal.RequireFromString("250.50"),
		Deductions:  decimal.RequireFromString("100.25"),
	}
	line := s.Snapshot(Employee{ID: 4, FirstName: "Ada", LastName: "Obi"})

	assert.Equal(t, "1150.25", line.NetSalaryPaid.StringFixed(2))
	assert.Equal(t, "Ada Obi", line.EmployeeName)
	assert.Equal(t, int64(4), line.EmployeeID)

	s.Allowances = decimal.RequireFromString("250.505")
	s.Deductions = decimal.RequireFromString("100.254")
	line = s.Snapshot(Employee{ID: 4})
	assert.Equal(t, "250.51", line.Allowances.String())
	assert.Equal(t, "100.25", line.Deductions.String())
	assert.Equal(t, "1150.26", line.NetSalaryPaid.String())
	assert.NoError(t, ValidateAmount(line.NetSalaryPaid))
}
