package audit

import (
	"errors"
	"testing"

	"github.com/ruralpay/orgledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	a := NewLogger(zap.New(core))

	a.LogTransaction(&models.Transaction{
		ID:             3,
		OrganizationID: 1,
		Type:           models.TransactionDebit,
		Amount:         decimal.NewFromInt(600),
		BalanceAfter:   decimal.NewFromInt(400),
		Source:         models.PayrollSource(9),
	})
	a.LogTransition("payroll batch", 9, "PENDING_APPROVAL", "REJECTED", 2)
	a.LogError("debit", 1, decimal.NewFromInt(600), errors.New("insufficient funds"))

	entries := logs.All()
	require.Len(t, entries, 3)

	for _, e := range entries {
		assert.Equal(t, "audit", e.LoggerName)
	}

	txn := entries[0].ContextMap()
	assert.Equal(t, "DEBIT", txn["event_type"])
	assert.Equal(t, "600.00", txn["amount"])
	assert.Equal(t, "400.00", txn["balance_after"])
	assert.Equal(t, "PAYROLL_PAYMENT:9", txn["source"])

	transition := entries[1].ContextMap()
	assert.Equal(t, EventTransition, transition["event_type"])
	assert.Equal(t, "REJECTED", transition["to"])

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "FAILED", entries[2].ContextMap()["status"])
}
