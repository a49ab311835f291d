package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/driftline/backend/pkg/debug"
	emailtypes "github.com/driftline/backend/pkg/email"
)

// sendgridProvider implements the Provider interface for SendGrid
type sendgridProvider struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

// init registers the SendGrid provider
func init() {
	Register(emailtypes.ProviderSendGrid, func() Provider {
		return &sendgridProvider{}
	})
}

// Initialize sets up the SendGrid client
func (p *sendgridProvider) Initialize(cfg *emailtypes.Config) error {
	if err := p.ValidateConfig(cfg); err != nil {
		return err
	}

	p.client = sendgrid.NewSendClient(cfg.APIKey)
	p.fromName = cfg.FromName
	p.fromEmail = cfg.FromEmail
	debug.Info("initialized sendgrid client with sender: %s <%s>", cfg.FromName, cfg.FromEmail)
	return nil
}

// ValidateConfig validates the SendGrid configuration
func (p *sendgridProvider) ValidateConfig(cfg *emailtypes.Config) error {
	if cfg.APIKey == "" {
		debug.Error("sendgrid API key not provided")
		return ErrProviderNotConfigured
	}

	if cfg.FromEmail == "" {
		debug.Error("sendgrid from_email not provided")
		return errors.New("sendgrid from_email is required")
	}

	if cfg.FromName == "" {
		debug.Error("sendgrid from_name not provided")
		return errors.New("sendgrid from_name is required")
	}

	return nil
}

// Send sends an email using SendGrid
func (p *sendgridProvider) Send(ctx context.Context, data *emailtypes.EmailData) error {
	if p.client == nil {
		debug.Error("sendgrid client not initialized")
		return ErrProviderNotConfigured
	}

	if data.Template == nil {
		debug.Error("email template not provided")
		return ErrInvalidTemplate
	}

	textContent, htmlContent, err := renderTemplate(data)
	if err != nil {
		return err
	}

	from := mail.NewEmail(p.fromName, p.fromEmail)
	debug.Info("sending email from %s <%s>", p.fromName, p.fromEmail)

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = data.Subject

	personalization := mail.NewPersonalization()
	for _, to := range data.To {
		personalization.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(personalization)

	message.AddContent(mail.NewContent("text/plain", textContent))
	message.AddContent(mail.NewContent("text/html", htmlContent))

	response, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		debug.Error("failed to send email: %v", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		debug.Error("sendgrid API error: %d - %s", response.StatusCode, response.Body)
		return fmt.Errorf("sendgrid API error: %d - %s", response.StatusCode, response.Body)
	}

	debug.Info("successfully sent email with status code: %d", response.StatusCode)
	return nil
}

// TestConnection tests the connection to SendGrid
func (p *sendgridProvider) TestConnection(ctx context.Context, testEmail string) error {
	if p.client == nil {
		debug.Error("sendgrid client not initialized")
		return ErrProviderNotConfigured
	}

	debug.Info("testing sendgrid connection with test email to: %s", testEmail)

	from := mail.NewEmail(p.fromName, p.fromEmail)
	to := mail.NewEmail("", testEmail)
	message := mail.NewSingleEmail(from, "Driftline Email Test", to,
		"This is a test email from Driftline.",
		"<p>This is a test email from Driftline.</p>")

	response, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		debug.Error("sendgrid test failed: %v", err)
		return fmt.Errorf("sendgrid test failed: %w", err)
	}

	if response.StatusCode >= 400 {
		debug.Error("sendgrid test returned status %d: %s", response.StatusCode, response.Body)
		return fmt.Errorf("sendgrid API error: %d - %s", response.StatusCode, response.Body)
	}

	debug.Info("sendgrid test succeeded with status code: %d", response.StatusCode)
	return nil
}
