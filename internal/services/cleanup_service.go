package services

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/driftline/backend/internal/db"
	"github.com/driftline/backend/pkg/debug"
)

// CleanupService periodically removes expired auth tokens (sessions
// cascade), stale two-factor sessions, and verification tokens past
// their retention window.
type CleanupService struct {
	db        *db.DB
	cron      *cron.Cron
	schedule  string
	retention time.Duration
}

// NewCleanupService creates a cleanup service. The schedule uses cron
// syntax, including descriptors like "@every 1m".
func NewCleanupService(database *db.DB, schedule string, retention time.Duration) *CleanupService {
	return &CleanupService{
		db:        database,
		cron:      cron.New(),
		schedule:  schedule,
		retention: retention,
	}
}

// Start registers the cleanup job and begins the scheduler. An initial
// cleanup runs immediately so restarts don't leave stale rows waiting
// for the next tick.
func (s *CleanupService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.cleanup); err != nil {
		debug.Error("Failed to schedule cleanup job: %v", err)
		return err
	}

	go s.cleanup()
	s.cron.Start()
	debug.Info("Cleanup service started with schedule: %s", s.schedule)
	return nil
}

// Stop stops the scheduler, waiting for a running cleanup to finish
func (s *CleanupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	debug.Info("Cleanup service stopped")
}

// cleanup performs one sweep over all expirable state
func (s *CleanupService) cleanup() {
	debug.Debug("Running expired credential cleanup...")

	tokensDeleted, err := s.db.CleanupExpiredAuthTokens()
	if err != nil {
		debug.Error("Failed to delete expired auth tokens: %v", err)
	} else if tokensDeleted > 0 {
		debug.Info("Deleted %d expired auth tokens (sessions cascade)", tokensDeleted)
	}

	twoFactorDeleted, err := s.db.DeleteExpiredTwoFactorSessions()
	if err != nil {
		debug.Error("Failed to delete expired two-factor sessions: %v", err)
	} else if twoFactorDeleted > 0 {
		debug.Info("Deleted %d expired two-factor sessions", twoFactorDeleted)
	}

	verificationDeleted, err := s.db.CleanupVerificationTokens(s.retention)
	if err != nil {
		debug.Error("Failed to delete old verification tokens: %v", err)
	} else if verificationDeleted > 0 {
		debug.Info("Deleted %d verification tokens past retention", verificationDeleted)
	}

	debug.Debug("Cleanup completed")
}
