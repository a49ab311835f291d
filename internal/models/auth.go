package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an active login session. One row exists per issued
// auth token; deleting the token cascades to the session.
type Session struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	TokenID      uuid.UUID `json:"-"`
	IPAddress    string    `json:"ipAddress"`
	UserAgent    string    `json:"userAgent"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
	Current      bool      `json:"current"`
}

// BackupCode is a single-use recovery credential issued when 2FA is
// enabled. Only the bcrypt hash is stored; rows are kept after use.
type BackupCode struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	CodeHash  string     `json:"-"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TwoFactorSession is the short-lived session created between a correct
// password and a correct 2FA code during login.
type TwoFactorSession struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Attempts     int       `json:"attempts"`
}

// LoginResponse is returned from the login endpoint. When the account has
// 2FA enabled, Token is empty and SessionToken carries the pending
// two-factor session.
type LoginResponse struct {
	Token             string `json:"token,omitempty"`
	RequiresTwoFactor bool   `json:"requiresTwoFactor,omitempty"`
	SessionToken      string `json:"sessionToken,omitempty"`
}
