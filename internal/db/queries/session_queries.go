package queries

// Session queries. Sessions are backed by auth_tokens with ON DELETE
// CASCADE, so revocation deletes the token and the session row follows.
const (
	CreateSessionQuery = `
		INSERT INTO sessions (user_id, token_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, last_active_at`

	GetUserSessionsQuery = `
		SELECT id, user_id, token_id, ip_address, user_agent, created_at, last_active_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY last_active_at DESC`

	UpdateSessionActivityQuery = `
		UPDATE sessions
		SET last_active_at = NOW()
		WHERE token_id = $1`

	// Ownership is part of the predicate: revoking a session that exists
	// but belongs to someone else affects zero rows.
	RevokeSessionQuery = `
		DELETE FROM auth_tokens
		USING sessions
		WHERE sessions.id = $1
			AND sessions.user_id = $2
			AND auth_tokens.id = sessions.token_id`

	RevokeAllSessionsQuery = `
		DELETE FROM auth_tokens
		WHERE user_id = $1`
)
