package config

import (
	"os"
	"strconv"
	"time"

	"github.com/driftline/backend/pkg/debug"
	"github.com/driftline/backend/pkg/password"
)

// Config holds the application configuration
type Config struct {
	Host string
	Port int

	// AppName appears as the TOTP issuer and the email sender name.
	AppName string
	// BaseURL is the public frontend origin used to build verification
	// and password-reset links.
	BaseURL string

	JWTExpiryMinutes      int
	ResetTokenTTL         time.Duration
	VerifyTokenTTL        time.Duration
	TwoFactorMaxAttempts  int
	BackupCodeCount       int
	CleanupInterval       string // cron spec
	TokenRetentionWindow  time.Duration
	PasswordPolicy        password.Policy
	CookieSecure          bool
}

// NewConfig creates a Config from environment variables with defaults
// suitable for local development.
func NewConfig() *Config {
	cfg := &Config{
		Host:                 getEnv("DL_HOST", "localhost"),
		Port:                 getEnvInt("DL_PORT", 8080),
		AppName:              getEnv("DL_APP_NAME", "Driftline"),
		BaseURL:              getEnv("DL_BASE_URL", "http://localhost:3000"),
		JWTExpiryMinutes:     getEnvInt("DL_JWT_EXPIRY_MINUTES", 60*24),
		ResetTokenTTL:        getEnvDuration("DL_RESET_TOKEN_TTL", time.Hour),
		VerifyTokenTTL:       getEnvDuration("DL_VERIFY_TOKEN_TTL", 24*time.Hour),
		TwoFactorMaxAttempts: getEnvInt("DL_2FA_MAX_ATTEMPTS", 3),
		BackupCodeCount:      getEnvInt("DL_BACKUP_CODE_COUNT", 10),
		CleanupInterval:      getEnv("DL_CLEANUP_SCHEDULE", "@every 1m"),
		TokenRetentionWindow: getEnvDuration("DL_TOKEN_RETENTION", 30*24*time.Hour),
		CookieSecure:         getEnvBool("DL_COOKIE_SECURE", true),
		PasswordPolicy: password.Policy{
			MinLength:           getEnvInt("DL_PASSWORD_MIN_LENGTH", 8),
			RequireUppercase:    getEnvBool("DL_PASSWORD_REQUIRE_UPPER", false),
			RequireLowercase:    getEnvBool("DL_PASSWORD_REQUIRE_LOWER", false),
			RequireNumbers:      getEnvBool("DL_PASSWORD_REQUIRE_NUMBER", false),
			RequireSpecialChars: getEnvBool("DL_PASSWORD_REQUIRE_SPECIAL", false),
		},
	}

	debug.Info("Application configuration loaded (host=%s port=%d)", cfg.Host, cfg.Port)
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		debug.Warning("Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		debug.Warning("Invalid duration for %s, using default %s", key, fallback)
	}
	return fallback
}
