package auth

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/driftline/backend/internal/config"
	"github.com/driftline/backend/internal/db"
	"github.com/driftline/backend/internal/email"
)

// EmailService defines the interface for email operations needed by auth handlers
type EmailService interface {
	SendVerificationEmail(ctx context.Context, to, username, token string, ttl time.Duration) error
	SendPasswordResetEmail(ctx context.Context, to, username, token string, ttl time.Duration) error
	SendSecurityAlertEmail(ctx context.Context, to, username, event string) error
}

// Handler handles authentication-related requests
type Handler struct {
	db           *db.DB
	emailService EmailService
	cfg          *config.Config
	validate     *validator.Validate
}

// NewHandler creates a new auth handler
func NewHandler(database *db.DB, emailService EmailService, cfg *config.Config) *Handler {
	return &Handler{
		db:           database,
		emailService: emailService,
		cfg:          cfg,
		validate:     validator.New(),
	}
}

// NewHandlerWithEmailService creates a new auth handler with the concrete email service
// This is a convenience function for production code
func NewHandlerWithEmailService(database *db.DB, emailService *email.Service, cfg *config.Config) *Handler {
	return NewHandler(database, emailService, cfg)
}
