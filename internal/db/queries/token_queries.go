package queries

// Verification token queries (email verification and password reset share
// one purpose-tagged table).
const (
	CreateVerificationTokenQuery = `
		INSERT INTO verification_tokens (token, user_id, purpose, expires_at)
		VALUES ($1, $2, $3, $4)`

	GetVerificationTokenQuery = `
		SELECT token, user_id, purpose, expires_at, consumed_at, created_at
		FROM verification_tokens
		WHERE token = $1 AND purpose = $2`

	// Conditional consume: the WHERE clause on consumed_at and expires_at
	// means a token redeems at most once even under concurrent requests.
	ConsumeVerificationTokenQuery = `
		UPDATE verification_tokens
		SET consumed_at = NOW()
		WHERE token = $1 AND purpose = $2
			AND consumed_at IS NULL AND expires_at > NOW()
		RETURNING user_id`

	// Issued reset tokens for a user are invalidated when a new one is
	// requested, keeping at most one live reset link per account.
	InvalidateUserTokensQuery = `
		UPDATE verification_tokens
		SET consumed_at = NOW()
		WHERE user_id = $1 AND purpose = $2 AND consumed_at IS NULL`

	CleanupVerificationTokensQuery = `
		DELETE FROM verification_tokens
		WHERE expires_at < NOW() - $1::interval`
)

// Auth token queries
const (
	StoreAuthTokenQuery = `
		INSERT INTO auth_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	RemoveAuthTokenQuery = `
		DELETE FROM auth_tokens
		WHERE token = $1`

	GetAuthTokenIDQuery = `
		SELECT id FROM auth_tokens
		WHERE token = $1 AND expires_at > NOW()`

	CleanupExpiredAuthTokensQuery = `
		DELETE FROM auth_tokens
		WHERE expires_at < NOW()`
)
