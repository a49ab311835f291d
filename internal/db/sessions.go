package db

import (
	"github.com/driftline/backend/internal/db/queries"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/google/uuid"
)

// CreateSession records an active login session backed by a stored token
func (db *DB) CreateSession(session *models.Session) error {
	err := db.QueryRow(queries.CreateSessionQuery,
		session.UserID,
		session.TokenID,
		session.IPAddress,
		session.UserAgent,
	).Scan(&session.ID, &session.CreatedAt, &session.LastActiveAt)
	if err != nil {
		debug.Error("Failed to create session: %v", err)
		return err
	}
	return nil
}

// GetUserSessions returns a user's sessions, most recently active first
func (db *DB) GetUserSessions(userID uuid.UUID) ([]*models.Session, error) {
	rows, err := db.Query(queries.GetUserSessionsQuery, userID)
	if err != nil {
		debug.Error("Failed to get user sessions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session := &models.Session{}
		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.TokenID,
			&session.IPAddress,
			&session.UserAgent,
			&session.CreatedAt,
			&session.LastActiveAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// UpdateSessionActivity bumps last_active_at for the session backing a token
func (db *DB) UpdateSessionActivity(tokenID uuid.UUID) error {
	_, err := db.Exec(queries.UpdateSessionActivityQuery, tokenID)
	if err != nil {
		debug.Error("Failed to update session activity: %v", err)
		return err
	}
	return nil
}

// RevokeSession deletes the token behind a session, but only when the
// session belongs to the caller. A session owned by someone else is
// reported as not found rather than forbidden.
func (db *DB) RevokeSession(sessionID, callerID uuid.UUID) error {
	result, err := db.Exec(queries.RevokeSessionQuery, sessionID, callerID)
	if err != nil {
		debug.Error("Failed to revoke session: %v", err)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RevokeAllSessions deletes every token (and so every session) for a user
func (db *DB) RevokeAllSessions(userID uuid.UUID) error {
	_, err := db.Exec(queries.RevokeAllSessionsQuery, userID)
	if err != nil {
		debug.Error("Failed to revoke all sessions: %v", err)
		return err
	}
	return nil
}
