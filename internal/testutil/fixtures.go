package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/driftline/backend/internal/config"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/password"
)

// Default test passwords
const (
	DefaultTestPassword = "TestPassword123!"
	WeakTestPassword    = "weak"
)

// Two-factor test values
const (
	ValidTOTPSecret = "JBSWY3DPEHPK3PXP" // Base32 encoded test secret
	InvalidTOTPCode = "000000"
	ValidBackupCode = "ABCDE-FGHJK"
)

// Test JWT secret
const TestJWTSecret = "test-jwt-secret-for-testing-only"

// ValidUser returns a user model for testing
func ValidUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Username: "testuser",
		Email:    "user@test.com",
		Role:     "user",
	}
}

// TestConfig returns an application config with fast, deterministic
// settings for tests.
func TestConfig() *config.Config {
	return &config.Config{
		Host:                 "localhost",
		Port:                 8080,
		AppName:              "Driftline",
		BaseURL:              "http://localhost:3000",
		JWTExpiryMinutes:     60,
		ResetTokenTTL:        time.Hour,
		VerifyTokenTTL:       24 * time.Hour,
		TwoFactorMaxAttempts: 3,
		BackupCodeCount:      10,
		CleanupInterval:      "@every 1m",
		TokenRetentionWindow: 30 * 24 * time.Hour,
		PasswordPolicy:       password.Policy{MinLength: 8},
		CookieSecure:         false,
	}
}
