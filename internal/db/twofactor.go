package db

import (
	"database/sql"
	"errors"

	"github.com/driftline/backend/internal/db/queries"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCode is returned when a submitted 2FA code matches
	// neither the TOTP secret nor an unused backup code.
	ErrInvalidCode = errors.New("invalid two-factor code")
	// ErrNotSetUp is returned when a 2FA operation needs a pending
	// secret and none exists.
	ErrNotSetUp = errors.New("two-factor setup has not been started")
)

// StorePendingTOTPSecret saves a generated secret awaiting confirmation,
// replacing any prior pending secret.
func (db *DB) StorePendingTOTPSecret(userID uuid.UUID, secret string) error {
	_, err := db.Exec(queries.StorePendingTOTPSecretQuery, userID, secret)
	if err != nil {
		debug.Error("Failed to store pending TOTP secret: %v", err)
		return err
	}
	return nil
}

// GetPendingTOTPSecret retrieves the pending secret for a user
func (db *DB) GetPendingTOTPSecret(userID uuid.UUID) (string, error) {
	var secret sql.NullString
	err := db.QueryRow(queries.GetPendingTOTPSecretQuery, userID).Scan(&secret)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", models.ErrNotFound
		}
		debug.Error("Failed to get pending TOTP secret: %v", err)
		return "", err
	}
	if !secret.Valid || secret.String == "" {
		return "", ErrNotSetUp
	}
	return secret.String, nil
}

// GetTwoFactorState returns whether 2FA is enabled and the confirmed secret
func (db *DB) GetTwoFactorState(userID uuid.UUID) (bool, string, error) {
	var enabled bool
	var secret sql.NullString
	err := db.QueryRow(queries.GetTwoFactorStateQuery, userID).Scan(&enabled, &secret)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, "", models.ErrNotFound
		}
		debug.Error("Failed to get two-factor state: %v", err)
		return false, "", err
	}
	return enabled, secret.String, nil
}

// EnableTwoFactor promotes the pending secret to the confirmed one and
// stores a fresh batch of backup code hashes, retiring any earlier batch.
// The whole transition commits atomically.
func (db *DB) EnableTwoFactor(userID uuid.UUID, codeHashes []string) error {
	tx, err := db.Begin()
	if err != nil {
		debug.Error("Failed to begin transaction: %v", err)
		return err
	}
	defer tx.Rollback()

	var id uuid.UUID
	err = tx.QueryRow(queries.PromotePendingTOTPSecretQuery, userID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotSetUp
		}
		debug.Error("Failed to promote pending TOTP secret: %v", err)
		return err
	}

	if _, err = tx.Exec(queries.RetireBackupCodesQuery, userID); err != nil {
		debug.Error("Failed to retire old backup codes: %v", err)
		return err
	}

	for _, hash := range codeHashes {
		if _, err = tx.Exec(queries.InsertBackupCodeQuery, uuid.New(), userID, hash); err != nil {
			debug.Error("Failed to insert backup code: %v", err)
			return err
		}
	}

	return tx.Commit()
}

// DisableTwoFactor clears the user's secrets and retires remaining backup codes
func (db *DB) DisableTwoFactor(userID uuid.UUID) error {
	tx, err := db.Begin()
	if err != nil {
		debug.Error("Failed to begin transaction: %v", err)
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec(queries.DisableTwoFactorQuery, userID); err != nil {
		debug.Error("Failed to disable two-factor: %v", err)
		return err
	}
	if _, err = tx.Exec(queries.RetireBackupCodesQuery, userID); err != nil {
		debug.Error("Failed to retire backup codes: %v", err)
		return err
	}

	return tx.Commit()
}

// GetUnusedBackupCodes returns the caller's live backup codes (hashes only)
func (db *DB) GetUnusedBackupCodes(userID uuid.UUID) ([]*models.BackupCode, error) {
	rows, err := db.Query(queries.GetUnusedBackupCodesQuery, userID)
	if err != nil {
		debug.Error("Failed to get backup codes: %v", err)
		return nil, err
	}
	defer rows.Close()

	var codes []*models.BackupCode
	for rows.Next() {
		code := &models.BackupCode{}
		err := rows.Scan(&code.ID, &code.UserID, &code.CodeHash, &code.CreatedAt)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ConsumeBackupCode marks a single backup code used. The conditional
// update means two racing submissions of the same code see exactly one
// true result.
func (db *DB) ConsumeBackupCode(codeID uuid.UUID) (bool, error) {
	result, err := db.Exec(queries.ConsumeBackupCodeQuery, codeID)
	if err != nil {
		debug.Error("Failed to consume backup code: %v", err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CountUnusedBackupCodes returns how many backup codes remain for a user
func (db *DB) CountUnusedBackupCodes(userID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow(queries.CountUnusedBackupCodesQuery, userID).Scan(&count)
	if err != nil {
		debug.Error("Failed to count backup codes: %v", err)
		return 0, err
	}
	return count, nil
}

// CreateTwoFactorSession creates the short-lived session between a correct
// password and a correct 2FA code.
func (db *DB) CreateTwoFactorSession(userID uuid.UUID, sessionToken string) (*models.TwoFactorSession, error) {
	session := &models.TwoFactorSession{UserID: userID, SessionToken: sessionToken}
	err := db.QueryRow(queries.CreateTwoFactorSessionQuery, userID, sessionToken).
		Scan(&session.ID, &session.ExpiresAt)
	if err != nil {
		debug.Error("Failed to create two-factor session: %v", err)
		return nil, err
	}
	return session, nil
}

// GetTwoFactorSession retrieves an unexpired two-factor session by token
func (db *DB) GetTwoFactorSession(sessionToken string) (*models.TwoFactorSession, error) {
	session := &models.TwoFactorSession{SessionToken: sessionToken}
	err := db.QueryRow(queries.GetTwoFactorSessionQuery, sessionToken).
		Scan(&session.ID, &session.UserID, &session.Attempts, &session.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrNotFound
		}
		debug.Error("Failed to get two-factor session: %v", err)
		return nil, err
	}
	return session, nil
}

// IncrementTwoFactorAttempts bumps the attempt counter for a session
func (db *DB) IncrementTwoFactorAttempts(sessionToken string) (int, error) {
	var attempts int
	err := db.QueryRow(queries.IncrementTwoFactorAttemptsQuery, sessionToken).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, models.ErrNotFound
		}
		debug.Error("Failed to increment two-factor attempts: %v", err)
		return 0, err
	}
	return attempts, nil
}

// DeleteTwoFactorSession removes a two-factor session after verification
func (db *DB) DeleteTwoFactorSession(sessionToken string) error {
	_, err := db.Exec(queries.DeleteTwoFactorSessionQuery, sessionToken)
	if err != nil {
		debug.Error("Failed to delete two-factor session: %v", err)
		return err
	}
	return nil
}

// DeleteExpiredTwoFactorSessions removes all expired two-factor sessions
func (db *DB) DeleteExpiredTwoFactorSessions() (int64, error) {
	result, err := db.Exec(queries.DeleteExpiredTwoFactorSessionsQuery)
	if err != nil {
		debug.Error("Failed to delete expired two-factor sessions: %v", err)
		return 0, err
	}
	return result.RowsAffected()
}
