package queries

// User queries
const (
	CreateUserQuery = `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	GetUserByIDQuery = `
		SELECT id, username, email, password_hash, role, email_verified_at,
			two_factor_enabled, totp_secret, totp_pending_secret,
			created_at, updated_at
		FROM users
		WHERE id = $1`

	GetUserByEmailQuery = `
		SELECT id, username, email, password_hash, role, email_verified_at,
			two_factor_enabled, totp_secret, totp_pending_secret,
			created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER($1)`

	UpdatePasswordQuery = `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	MarkEmailVerifiedQuery = `
		UPDATE users
		SET email_verified_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND email_verified_at IS NULL`
)
