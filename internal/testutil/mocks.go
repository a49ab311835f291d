package testutil

import (
	"context"
	"sync"
	"time"
)

// SentEmail records one dispatched message
type SentEmail struct {
	To       string
	Username string
	Token    string
	Event    string
	TTL      time.Duration
}

// MockEmailService is a mock implementation of the email service
type MockEmailService struct {
	mu                 sync.Mutex
	VerificationEmails []SentEmail
	ResetEmails        []SentEmail
	SecurityEmails     []SentEmail
	SendError          error
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

// SendVerificationEmail implements the EmailService interface
func (m *MockEmailService) SendVerificationEmail(ctx context.Context, to, username, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendError != nil {
		return m.SendError
	}
	m.VerificationEmails = append(m.VerificationEmails, SentEmail{To: to, Username: username, Token: token, TTL: ttl})
	return nil
}

// SendPasswordResetEmail implements the EmailService interface
func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, to, username, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendError != nil {
		return m.SendError
	}
	m.ResetEmails = append(m.ResetEmails, SentEmail{To: to, Username: username, Token: token, TTL: ttl})
	return nil
}

// SendSecurityAlertEmail implements the EmailService interface
func (m *MockEmailService) SendSecurityAlertEmail(ctx context.Context, to, username, event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendError != nil {
		return m.SendError
	}
	m.SecurityEmails = append(m.SecurityEmails, SentEmail{To: to, Username: username, Event: event})
	return nil
}

// LastResetToken returns the token from the most recent reset email
func (m *MockEmailService) LastResetToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ResetEmails) == 0 {
		return "", false
	}
	return m.ResetEmails[len(m.ResetEmails)-1].Token, true
}

// LastVerificationToken returns the token from the most recent verification email
func (m *MockEmailService) LastVerificationToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.VerificationEmails) == 0 {
		return "", false
	}
	return m.VerificationEmails[len(m.VerificationEmails)-1].Token, true
}

// Reset clears recorded emails and errors
func (m *MockEmailService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.VerificationEmails = nil
	m.ResetEmails = nil
	m.SecurityEmails = nil
	m.SendError = nil
}
