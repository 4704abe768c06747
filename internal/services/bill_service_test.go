package services

import (
	"testing"
	"time"

	"github.com/ruralpay/orgledger/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBillNumber(t *testing.T) {
	date := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name      string
		org       string
		vendor    string
		paymentID int64
		want      string
	}{
		{"plain names", "Acme Ltd", "Global Supplies", 4, "ACM-GLO-20240315-4"},
		{"punctuation is stripped", "A.B.C. Holdings", "x-y", 12, "ABC-XY-20240315-12"},
		{"digits count", "3M Nigeria", "7up Bottling", 1, "3MN-7UP-20240315-1"},
		{"empty after stripping", "!!!", "   ", 9, "XXX-XXX-20240315-9"},
		{"non-ascii letters are skipped", "Ümit Çelik", "Zoë", 5, "MIT-ZO-20240315-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BillNumber(tt.org, tt.vendor, date, tt.paymentID)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("requires a persisted payment", func(t *testing.T) {
		_, err := BillNumber("Acme", "Global", date, 0)
		assert.ErrorIs(t, err, models.ErrMissingPaymentID)
	})
}
