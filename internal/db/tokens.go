package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/driftline/backend/internal/db/queries"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/google/uuid"
)

// ErrTokenInvalid is returned when a verification token is absent,
// already consumed, or past its expiry. The three cases are deliberately
// indistinguishable to callers.
var ErrTokenInvalid = errors.New("invalid or expired token")

// CreateVerificationToken stores a single-use token for a user
func (db *DB) CreateVerificationToken(token string, userID uuid.UUID, purpose models.TokenPurpose, expiresAt time.Time) error {
	if !models.IsValidTokenPurpose(string(purpose)) {
		return models.ErrInvalidInput
	}
	_, err := db.Exec(queries.CreateVerificationTokenQuery, token, userID, purpose, expiresAt)
	if err != nil {
		debug.Error("Failed to create verification token: %v", err)
		return err
	}
	return nil
}

// GetVerificationToken looks up a token without consuming it. Validity is
// judged by the caller via models.VerificationToken.Valid.
func (db *DB) GetVerificationToken(token string, purpose models.TokenPurpose) (*models.VerificationToken, error) {
	vt := &models.VerificationToken{}
	err := db.QueryRow(queries.GetVerificationTokenQuery, token, purpose).Scan(
		&vt.Token,
		&vt.UserID,
		&vt.Purpose,
		&vt.ExpiresAt,
		&vt.ConsumedAt,
		&vt.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTokenInvalid
		}
		debug.Error("Failed to get verification token: %v", err)
		return nil, err
	}
	return vt, nil
}

// ConsumeVerificationToken redeems a token, returning its owner. The
// conditional update makes the token single-use even under concurrent
// requests: the loser of the race gets ErrTokenInvalid.
func (db *DB) ConsumeVerificationToken(token string, purpose models.TokenPurpose) (uuid.UUID, error) {
	var userID uuid.UUID
	err := db.QueryRow(queries.ConsumeVerificationTokenQuery, token, purpose).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, ErrTokenInvalid
		}
		debug.Error("Failed to consume verification token: %v", err)
		return uuid.Nil, err
	}
	return userID, nil
}

// InvalidateUserTokens consumes every live token a user holds for one
// purpose, used before issuing a replacement reset link.
func (db *DB) InvalidateUserTokens(userID uuid.UUID, purpose models.TokenPurpose) error {
	_, err := db.Exec(queries.InvalidateUserTokensQuery, userID, purpose)
	if err != nil {
		debug.Error("Failed to invalidate user tokens: %v", err)
		return err
	}
	return nil
}

// CleanupVerificationTokens deletes tokens expired longer than the
// retention window ago.
func (db *DB) CleanupVerificationTokens(retention time.Duration) (int64, error) {
	result, err := db.Exec(queries.CleanupVerificationTokensQuery, retention.String())
	if err != nil {
		debug.Error("Failed to cleanup verification tokens: %v", err)
		return 0, err
	}
	return result.RowsAffected()
}

// StoreAuthToken stores an issued JWT and returns the row ID so the
// session record can reference it.
func (db *DB) StoreAuthToken(userID uuid.UUID, token string, expiresAt time.Time) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.QueryRow(queries.StoreAuthTokenQuery, userID, token, expiresAt).Scan(&id)
	if err != nil {
		debug.Error("Failed to store auth token: %v", err)
		return uuid.Nil, err
	}
	return id, nil
}

// RemoveAuthToken deletes a stored token; its session row cascades
func (db *DB) RemoveAuthToken(token string) error {
	_, err := db.Exec(queries.RemoveAuthTokenQuery, token)
	if err != nil {
		debug.Error("Failed to remove auth token: %v", err)
		return err
	}
	return nil
}

// GetAuthTokenID resolves a presented token to its row ID. Expired or
// revoked tokens resolve to models.ErrNotFound.
func (db *DB) GetAuthTokenID(token string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.QueryRow(queries.GetAuthTokenIDQuery, token).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, models.ErrNotFound
		}
		debug.Error("Failed to look up auth token: %v", err)
		return uuid.Nil, err
	}
	return id, nil
}

// CleanupExpiredAuthTokens deletes expired tokens; sessions cascade
func (db *DB) CleanupExpiredAuthTokens() (int64, error) {
	result, err := db.Exec(queries.CleanupExpiredAuthTokensQuery)
	if err != nil {
		debug.Error("Failed to cleanup expired auth tokens: %v", err)
		return 0, err
	}
	return result.RowsAffected()
}
