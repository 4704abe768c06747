package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	t.Run("applies every statement in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		for range schema {
			mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.ExpectCommit()

		assert.NoError(t, Migrate(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops and rolls back on failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS organizations").
			WillReturnError(errors.New("permission denied"))
		mock.ExpectRollback()

		err = Migrate(context.Background(), db)
		assert.ErrorContains(t, err, "migration statement 1 failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSchema_EnforcesLedgerConstraints(t *testing.T) {
	joined := ""
	for _, stmt := range schema {
		joined += stmt + "\n"
	}

	assert.Contains(t, joined, "CHECK (balance >= 0)")
	assert.Contains(t, joined, "UNIQUE (organization_id, month, year)")
	assert.Contains(t, joined, "vendor_payment_id  BIGINT NOT NULL UNIQUE")
	assert.Contains(t, joined, "bill_number        VARCHAR(64) NOT NULL UNIQUE")
	assert.Contains(t, joined, "ON DELETE CASCADE")
}
