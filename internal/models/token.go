package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose tags a verification token with the flow it belongs to.
// Email verification and password reset share one table and one
// consume path; only the purpose differs.
type TokenPurpose string

const (
	TokenPurposeEmailVerify   TokenPurpose = "email_verify"
	TokenPurposePasswordReset TokenPurpose = "password_reset"
)

// IsValidTokenPurpose checks if a given string is a known token purpose
func IsValidTokenPurpose(p string) bool {
	return p == string(TokenPurposeEmailVerify) || p == string(TokenPurposePasswordReset)
}

// VerificationToken is a single-use credential proving possession of an
// email inbox (email_verify) or a reset request (password_reset).
// A token is valid iff ConsumedAt is nil and ExpiresAt is in the future.
type VerificationToken struct {
	Token      string       `json:"-"`
	UserID     uuid.UUID    `json:"userId"`
	Purpose    TokenPurpose `json:"purpose"`
	ExpiresAt  time.Time    `json:"expiresAt"`
	ConsumedAt *time.Time   `json:"consumedAt,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// Valid reports whether the token can still be redeemed at the given time
func (t *VerificationToken) Valid(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}
