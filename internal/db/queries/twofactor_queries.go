package queries

// Two-factor queries
const (
	// Overwrites any prior pending secret: at most one outstanding
	// pending secret per user.
	StorePendingTOTPSecretQuery = `
		UPDATE users
		SET totp_pending_secret = $2, updated_at = NOW()
		WHERE id = $1`

	GetPendingTOTPSecretQuery = `
		SELECT totp_pending_secret
		FROM users
		WHERE id = $1`

	GetTwoFactorStateQuery = `
		SELECT two_factor_enabled, totp_secret
		FROM users
		WHERE id = $1`

	// Promotes the pending secret to the confirmed one. The guard on
	// totp_pending_secret makes enabling without a prior setup a no-op.
	PromotePendingTOTPSecretQuery = `
		UPDATE users
		SET totp_secret = totp_pending_secret,
			totp_pending_secret = NULL,
			two_factor_enabled = true,
			updated_at = NOW()
		WHERE id = $1 AND totp_pending_secret IS NOT NULL
		RETURNING id`

	DisableTwoFactorQuery = `
		UPDATE users
		SET two_factor_enabled = false,
			totp_secret = NULL,
			totp_pending_secret = NULL,
			updated_at = NOW()
		WHERE id = $1`

	// Backup code queries. Rows are never deleted; regeneration marks the
	// previous batch used so the audit trail survives.
	InsertBackupCodeQuery = `
		INSERT INTO backup_codes (id, user_id, code_hash)
		VALUES ($1, $2, $3)`

	RetireBackupCodesQuery = `
		UPDATE backup_codes
		SET used = true, used_at = NOW()
		WHERE user_id = $1 AND used = false`

	GetUnusedBackupCodesQuery = `
		SELECT id, user_id, code_hash, created_at
		FROM backup_codes
		WHERE user_id = $1 AND used = false
		ORDER BY created_at`

	// Conditional consume: concurrent submissions of the same code race on
	// used = false and exactly one wins.
	ConsumeBackupCodeQuery = `
		UPDATE backup_codes
		SET used = true, used_at = NOW()
		WHERE id = $1 AND used = false`

	CountUnusedBackupCodesQuery = `
		SELECT COUNT(*)
		FROM backup_codes
		WHERE user_id = $1 AND used = false`

	// Two-factor login session queries
	CreateTwoFactorSessionQuery = `
		INSERT INTO two_factor_sessions (user_id, session_token, expires_at, attempts)
		VALUES ($1, $2, NOW() + INTERVAL '5 minutes', 0)
		RETURNING id, expires_at`

	GetTwoFactorSessionQuery = `
		SELECT id, user_id, attempts, expires_at
		FROM two_factor_sessions
		WHERE session_token = $1 AND expires_at > NOW()`

	IncrementTwoFactorAttemptsQuery = `
		UPDATE two_factor_sessions
		SET attempts = attempts + 1
		WHERE session_token = $1 AND expires_at > NOW()
		RETURNING attempts`

	DeleteTwoFactorSessionQuery = `
		DELETE FROM two_factor_sessions
		WHERE session_token = $1`

	DeleteExpiredTwoFactorSessionsQuery = `
		DELETE FROM two_factor_sessions
		WHERE expires_at < NOW()`
)
