package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/backend/internal/testutil"
)

func TestCleanupSweep(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	svc := NewCleanupService(db, "@every 1m", 30*24*time.Hour)

	mock.ExpectExec("DELETE FROM auth_tokens").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM two_factor_sessions").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM verification_tokens").
		WillReturnResult(sqlmock.NewResult(0, 7))

	svc.cleanup()
}

func TestCleanupSweepContinuesAfterError(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	svc := NewCleanupService(db, "@every 1m", 30*24*time.Hour)

	mock.ExpectExec("DELETE FROM auth_tokens").
		WillReturnError(assert.AnError)
	mock.ExpectExec("DELETE FROM two_factor_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM verification_tokens").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// One failing step must not stop the remaining sweeps
	svc.cleanup()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	db, _ := testutil.SetupMockDB(t)
	svc := NewCleanupService(db, "not a schedule", time.Hour)

	err := svc.Start()
	require.Error(t, err)
}
