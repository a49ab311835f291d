package testutil

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/driftline/backend/internal/db"
)

// SetupMockDB creates a sqlmock-backed DB wrapper for handler and data
// layer tests. Expectations are verified on cleanup.
func SetupMockDB(t *testing.T) (*db.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet sqlmock expectations: %v", err)
		}
		sqlDB.Close()
	})

	return db.NewDB(sqlDB), mock
}
