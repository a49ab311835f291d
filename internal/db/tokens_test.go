package db

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/backend/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})

	return NewDB(sqlDB), mock
}

func TestCreateVerificationToken(t *testing.T) {
	t.Run("stores a token for a known purpose", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectExec("INSERT INTO verification_tokens").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := db.CreateVerificationToken("token", uuid.New(), models.TokenPurposePasswordReset, time.Now().Add(time.Hour))
		assert.NoError(t, err)
	})

	t.Run("rejects an unknown purpose before touching the store", func(t *testing.T) {
		db, _ := newMockDB(t)

		err := db.CreateVerificationToken("token", uuid.New(), models.TokenPurpose("magic_link"), time.Now().Add(time.Hour))
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}
