package service

import (
	"context"
	"fmt"
	"time"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
)

const (
	defaultSecurityEventLimit = 100
	maxSecurityEventLimit     = 500
)

// AuditService is the read side of the audit pipeline: it backs the
// security dashboard. Writes go through ports.AuditRecorder and never
// pass through here.
type AuditService struct {
	repo     ports.AuditRepository
	sessions *SessionRegistry
}

func NewAuditService(repo ports.AuditRepository, sessions *SessionRegistry) *AuditService {
	return &AuditService{repo: repo, sessions: sessions}
}

// RecentSecurityEvents returns the latest security-sensitive events,
// most recent first.
func (s *AuditService) RecentSecurityEvents(ctx context.Context, limit int64) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = defaultSecurityEventLimit
	}
	if limit > maxSecurityEventLimit {
		limit = maxSecurityEventLimit
	}
	return s.repo.FindRecentByKinds(ctx, domain.SecurityEventKinds, limit)
}

// EventsForUser pages through one user's audit trail.
func (s *AuditService) EventsForUser(ctx context.Context, userID string, limit, offset int64) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.FindByUser(ctx, userID, limit, offset)
}

// Summary aggregates the security counters shown on the dashboard.
func (s *AuditService) Summary(ctx context.Context) (*domain.SecuritySummary, error) {
	now := time.Now().UTC()
	last24h := now.Add(-24 * time.Hour)
	last7d := now.Add(-7 * 24 * time.Hour)

	summary := &domain.SecuritySummary{}

	var err error
	if summary.FailedLogins24h, err = s.repo.CountByKindSince(ctx, domain.AuditLoginFailed, last24h); err != nil {
		return nil, fmt.Errorf("count failed logins: %w", err)
	}
	if summary.SuccessfulLogins24h, err = s.repo.CountByKindSince(ctx, domain.AuditLoginSuccess, last24h); err != nil {
		return nil, fmt.Errorf("count successful logins: %w", err)
	}
	if summary.RateLimitExceeded24h, err = s.repo.CountByKindSince(ctx, domain.AuditRateLimitExceeded, last24h); err != nil {
		return nil, fmt.Errorf("count rate limited: %w", err)
	}
	if summary.TwoFactorFailures7d, err = s.repo.CountByKindSince(ctx, domain.AuditTwoFactorFailed, last7d); err != nil {
		return nil, fmt.Errorf("count 2fa failures: %w", err)
	}
	if summary.SuspiciousActivity7d, err = s.repo.CountByKindSince(ctx, domain.AuditSuspiciousActivity, last7d); err != nil {
		return nil, fmt.Errorf("count suspicious activity: %w", err)
	}
	if summary.ActiveSessions, err = s.sessions.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("count active sessions: %w", err)
	}

	if total := summary.FailedLogins24h + summary.SuccessfulLogins24h; total > 0 {
		summary.FailureRate24h = float64(summary.FailedLogins24h) / float64(total) * 100
	}

	return summary, nil
}
