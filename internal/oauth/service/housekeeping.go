package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/metrics"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
)

const DefaultHousekeepingInterval = time.Hour

// HousekeepingService periodically deletes expired tokens, codes and
// approvals so the tables do not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Clock    clockx.Clock
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, DefaultHousekeepingInterval is used.
func NewHousekeepingService(
	st store.Store,
	clock clockx.Clock,
	logger *slog.Logger,
	m *metrics.Metrics,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	return &HousekeepingService{
		Store:    st,
		Clock:    clock,
		Logger:   logger,
		Metrics:  m,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each table is independent: a failure in one
// does not stop the others. Access tokens with a valid refresh token stay.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.Clock.Now()

	tasks := []struct {
		table string
		run   func(context.Context, time.Time) (int64, error)
	}{
		// Refresh tokens first, so the access tokens they kept alive can go
		// in the same pass.
		{"refresh_tokens", s.Store.RefreshTokens().DeleteExpiredRefreshTokens},
		{"access_tokens", s.Store.AccessTokens().DeleteExpiredAccessTokens},
		{"authorization_codes", s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes},
		{"approvals", s.Store.Approvals().DeleteExpiredApprovals},
	}

	var total int64
	for _, task := range tasks {
		n, err := task.run(ctx, now)
		if err != nil {
			s.Logger.Error("housekeeping failed", "table", task.table, "error", err)
			continue
		}
		s.Metrics.HousekeepingDeleted(task.table, n)
		total += n
	}

	s.Logger.Info("housekeeping cleanup completed", "deleted", total)
}
