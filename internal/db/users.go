package db

import (
	"database/sql"
	"errors"

	"github.com/driftline/backend/internal/db/queries"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert violates a unique constraint,
// such as registering an email that already has an account.
var ErrDuplicate = errors.New("record already exists")

// CreateUser inserts a new user row
func (db *DB) CreateUser(user *models.User) error {
	err := db.QueryRow(queries.CreateUserQuery,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		debug.Error("Failed to create user: %v", err)
		return err
	}
	return nil
}

// GetUserByID retrieves a user by their ID
func (db *DB) GetUserByID(userID string) (*models.User, error) {
	return db.scanUser(db.QueryRow(queries.GetUserByIDQuery, userID))
}

// GetUserByEmail retrieves a user by their email, case-insensitively
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	return db.scanUser(db.QueryRow(queries.GetUserByEmailQuery, email))
}

func (db *DB) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.EmailVerifiedAt,
		&user.TwoFactorEnabled,
		&user.TOTPSecret,
		&user.TOTPPendingSecret,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrNotFound
		}
		debug.Error("Failed to scan user: %v", err)
		return nil, err
	}
	return user, nil
}

// UpdatePassword replaces the user's password hash
func (db *DB) UpdatePassword(userID uuid.UUID, passwordHash string) error {
	_, err := db.Exec(queries.UpdatePasswordQuery, userID, passwordHash)
	if err != nil {
		debug.Error("Failed to update password: %v", err)
		return err
	}
	return nil
}

// MarkEmailVerified sets the user's email_verified_at timestamp. Already
// verified accounts are left untouched.
func (db *DB) MarkEmailVerified(userID uuid.UUID) error {
	_, err := db.Exec(queries.MarkEmailVerifiedQuery, userID)
	if err != nil {
		debug.Error("Failed to mark email verified: %v", err)
		return err
	}
	return nil
}
