package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/store"
)

// HousekeepingService periodically deletes expired database records so
// sessions, tokens, codes and ceremony state do not accumulate forever.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. An interval of 0
// or less defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker, blocking until any
// in-progress cleanup finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run immediately on startup.
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes expired records. Each sweep is independent; one
// failing does not stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Debug("starting housekeeping cleanup")

	sweeps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"refresh_tokens", s.Store.RefreshTokens().DeleteExpiredRefreshTokens},
		{"sessions", s.Store.Sessions().DeleteExpiredSessions},
		{"mfa_sessions", s.Store.MFASessions().DeleteExpiredMFASessions},
		{"authorization_codes", s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes},
		{"webauthn_challenges", s.Store.WebAuthnChallenges().DeleteExpiredWebAuthnChallenges},
		{"password_resets", s.Store.PasswordResets().DeleteExpiredPasswordResets},
	}

	succeeded := 0
	for _, sweep := range sweeps {
		if err := sweep.fn(ctx); err != nil {
			s.Logger.Error("housekeeping sweep failed", "table", sweep.name, "error", err)
			continue
		}
		succeeded++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_sweeps", succeeded, "total_sweeps", len(sweeps))
}
