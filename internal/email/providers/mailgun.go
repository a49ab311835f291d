package providers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/driftline/backend/pkg/debug"
	emailtypes "github.com/driftline/backend/pkg/email"
)

// mailgunProvider implements the Provider interface for Mailgun
type mailgunProvider struct {
	mg        *mailgun.MailgunImpl
	domain    string
	fromName  string
	fromEmail string
}

// init registers the Mailgun provider
func init() {
	Register(emailtypes.ProviderMailgun, func() Provider {
		return &mailgunProvider{}
	})
}

// Initialize sets up the Mailgun client
func (p *mailgunProvider) Initialize(cfg *emailtypes.Config) error {
	if err := p.ValidateConfig(cfg); err != nil {
		return err
	}

	p.mg = mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	p.domain = cfg.Domain
	p.fromName = cfg.FromName
	p.fromEmail = cfg.FromEmail
	debug.Info("initialized mailgun client for domain: %s with sender: %s <%s>", cfg.Domain, cfg.FromName, cfg.FromEmail)
	return nil
}

// ValidateConfig validates the Mailgun configuration
func (p *mailgunProvider) ValidateConfig(cfg *emailtypes.Config) error {
	if cfg.APIKey == "" {
		debug.Error("mailgun API key not provided")
		return ErrProviderNotConfigured
	}

	if cfg.Domain == "" {
		debug.Error("mailgun domain not provided")
		return errors.New("mailgun domain is required")
	}

	if cfg.FromEmail == "" {
		debug.Error("mailgun from_email not provided")
		return errors.New("mailgun from_email is required")
	}

	if cfg.FromName == "" {
		debug.Error("mailgun from_name not provided")
		return errors.New("mailgun from_name is required")
	}

	return nil
}

// Send sends an email using Mailgun
func (p *mailgunProvider) Send(ctx context.Context, data *emailtypes.EmailData) error {
	if p.mg == nil {
		debug.Error("mailgun client not initialized")
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

	from := fmt.Sprintf("%s <%s>", p.fromName, p.fromEmail)
	message := p.mg.NewMessage(
		from,
		data.Subject,
		textContent,
		data.To...,
	)
	message.SetHtml(htmlContent)

	debug.Info("sending email from %s to %v", from, data.To)

	_, id, err := p.mg.Send(ctx, message)
	if err != nil {
		debug.Error("failed to send email: %v", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	debug.Info("successfully sent email with ID: %s", id)
	return nil
}

// TestConnection tests the connection to Mailgun
func (p *mailgunProvider) TestConnection(ctx context.Context, testEmail string) error {
	if p.mg == nil {
		debug.Error("mailgun client not initialized")
		return ErrProviderNotConfigured
	}

	from := fmt.Sprintf("%s <%s>", p.fromName, p.fromEmail)
	debug.Info("testing mailgun connection with test email to: %s", testEmail)

	message := p.mg.NewMessage(
		from,
		"Driftline Email Test",
		"This is a test email from Driftline.",
		testEmail,
	)

	_, id, err := p.mg.Send(ctx, message)
	if err != nil {
		debug.Error("mailgun test failed: %v", err)
		return fmt.Errorf("mailgun test failed: %w", err)
	}

	debug.Info("mailgun test succeeded with ID: %s", id)
	return nil
}

// renderTemplate substitutes template variables into both the HTML and text
// bodies of an email.
func renderTemplate(data *emailtypes.EmailData) (textContent, htmlContent string, err error) {
	if len(data.Variables) == 0 {
		return data.Template.TextContent, data.Template.HTMLContent, nil
	}

	htmlTmpl, err := template.New("email_html").Parse(data.Template.HTMLContent)
	if err != nil {
		debug.Error("failed to parse HTML template: %v", err)
		return "", "", fmt.Errorf("failed to parse HTML template: %w", err)
	}

	textTmpl, err := template.New("email_text").Parse(data.Template.TextContent)
	if err != nil {
		debug.Error("failed to parse text template: %v", err)
		return "", "", fmt.Errorf("failed to parse text template: %w", err)
	}

	if err := executeTemplate(htmlTmpl, data.Variables, &htmlContent); err != nil {
		debug.Error("failed to execute HTML template: %v", err)
		return "", "", fmt.Errorf("failed to execute HTML template: %w", err)
	}

	if err := executeTemplate(textTmpl, data.Variables, &textContent); err != nil {
		debug.Error("failed to execute text template: %v", err)
		return "", "", fmt.Errorf("failed to execute text template: %w", err)
	}

	return textContent, htmlContent, nil
}

func executeTemplate(tmpl *template.Template, vars map[string]string, result *string) error {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, vars); err != nil {
		return err
	}
	*result = buf.String()
	return nil
}
