package email

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/driftline/backend/internal/email/providers"
	"github.com/driftline/backend/pkg/debug"
	emailtypes "github.com/driftline/backend/pkg/email"
)

// Service sends account lifecycle emails through a configured provider.
type Service struct {
	provider providers.Provider
	cfg      *emailtypes.Config
	appName  string
	baseURL  string
}

// ConfigFromEnv builds the provider configuration from environment variables.
func ConfigFromEnv() *emailtypes.Config {
	return &emailtypes.Config{
		ProviderType: emailtypes.ProviderType(os.Getenv("DL_EMAIL_PROVIDER")),
		APIKey:       os.Getenv("DL_EMAIL_API_KEY"),
		Domain:       os.Getenv("DL_EMAIL_DOMAIN"),
		FromEmail:    os.Getenv("DL_EMAIL_FROM_ADDRESS"),
		FromName:     os.Getenv("DL_EMAIL_FROM_NAME"),
	}
}

// NewService creates an email service backed by the provider named in cfg.
// Links in outgoing emails are built against baseURL.
func NewService(cfg *emailtypes.Config, appName, baseURL string) (*Service, error) {
	provider, err := providers.New(cfg.ProviderType)
	if err != nil {
		return nil, fmt.Errorf("failed to create email provider: %w", err)
	}

	if err := provider.Initialize(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}

	debug.Info("email service ready with provider: %s", cfg.ProviderType)
	return &Service{
		provider: provider,
		cfg:      cfg,
		appName:  appName,
		baseURL:  baseURL,
	}, nil
}

// SendVerificationEmail sends an address confirmation link to a newly
// registered (or re-requesting) user.
func (s *Service) SendVerificationEmail(ctx context.Context, to, username, token string, ttl time.Duration) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, url.QueryEscape(token))
	return s.sendTemplated(ctx, to, emailtypes.TemplateEmailVerification, map[string]string{
		"AppName":   s.appName,
		"Username":  username,
		"Link":      link,
		"ExpiresIn": formatTTL(ttl),
	})
}

// SendPasswordResetEmail sends a single-use password reset link.
func (s *Service) SendPasswordResetEmail(ctx context.Context, to, username, token string, ttl time.Duration) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, url.QueryEscape(token))
	return s.sendTemplated(ctx, to, emailtypes.TemplatePasswordReset, map[string]string{
		"AppName":   s.appName,
		"Username":  username,
		"Link":      link,
		"ExpiresIn": formatTTL(ttl),
	})
}

// SendSecurityAlertEmail notifies a user about a security-relevant change
// to their account, such as a completed password reset. The event text is
// rendered as the body of the alert.
func (s *Service) SendSecurityAlertEmail(ctx context.Context, to, username, event string) error {
	return s.sendTemplated(ctx, to, emailtypes.TemplateSecurityEvent, map[string]string{
		"AppName":  s.appName,
		"Username": username,
		"Event":    event,
	})
}

// TestConnection verifies the provider credentials by sending a test email.
func (s *Service) TestConnection(ctx context.Context, testEmail string) error {
	return s.provider.TestConnection(ctx, testEmail)
}

func (s *Service) sendTemplated(ctx context.Context, to string, templateType emailtypes.TemplateType, variables map[string]string) error {
	tmpl := GetTemplate(templateType)
	if tmpl == nil {
		debug.Error("no template registered for type: %s", templateType)
		return providers.ErrInvalidTemplate
	}

	data := &emailtypes.EmailData{
		To:        []string{to},
		Subject:   tmpl.Subject,
		Variables: variables,
		Template:  tmpl,
	}

	if err := s.provider.Send(ctx, data); err != nil {
		debug.Error("failed to send %s email to %s: %v", templateType, to, err)
		return err
	}

	debug.Info("sent %s email to %s", templateType, to)
	return nil
}

// formatTTL renders a duration the way users expect to read it in an email.
func formatTTL(ttl time.Duration) string {
	if ttl >= time.Hour && ttl%time.Hour == 0 {
		hours := int(ttl / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(ttl / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
