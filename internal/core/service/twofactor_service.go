package service

import (
	"context"
	"fmt"
	"time"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
)

// TwoFactorService drives TOTP enrollment and verification.
// State machine: DISABLED → PENDING (setup) → ACTIVE (first valid code);
// ACTIVE → DISABLED only through an explicit, code-verified disable.
type TwoFactorService struct {
	users   ports.UserRepository
	limiter ports.RateLimiter
	replay  ports.ReplayGuard
	audit   ports.AuditRecorder
	issuer  string
	now     func() time.Time
}

func NewTwoFactorService(users ports.UserRepository, limiter ports.RateLimiter, replay ports.ReplayGuard, audit ports.AuditRecorder, issuer string) *TwoFactorService {
	if issuer == "" {
		issuer = "AgroBolivia"
	}
	return &TwoFactorService{
		users:   users,
		limiter: limiter,
		replay:  replay,
		audit:   audit,
		issuer:  issuer,
		now:     time.Now,
	}
}

func twoFactorKey(userID string) string {
	return "2fa:" + userID
}

// BeginEnrollment generates a fresh secret and parks the account in
// PENDING. Calling it again before confirmation overwrites the pending
// secret; no orphaned secrets accumulate.
func (s *TwoFactorService) BeginEnrollment(ctx context.Context, userID string) (string, string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if user.TwoFactorState == domain.TwoFactorActive {
		return "", "", domain.ErrTwoFactorAlreadyOn
	}

	secret, err := generateTOTPSecret()
	if err != nil {
		return "", "", err
	}
	if err := s.users.SetTwoFactor(ctx, userID, secret, domain.TwoFactorPending); err != nil {
		return "", "", fmt.Errorf("store pending secret: %w", err)
	}

	return secret, provisioningURI(s.issuer, user.Email, secret), nil
}

// ConfirmEnrollment promotes PENDING to ACTIVE on the first valid code.
func (s *TwoFactorService) ConfirmEnrollment(ctx context.Context, userID, code string, client domain.ClientInfo) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorState != domain.TwoFactorPending || user.TwoFactorSecret == "" {
		return domain.ErrTwoFactorNotEnrolled
	}

	if err := s.checkCode(ctx, user, code, client); err != nil {
		return err
	}

	if err := s.users.SetTwoFactor(ctx, userID, user.TwoFactorSecret, domain.TwoFactorActive); err != nil {
		return fmt.Errorf("activate two-factor: %w", err)
	}
	s.audit.Record(domain.AuditEvent{
		Kind:      domain.AuditTwoFactorEnabled,
		UserID:    userID,
		Action:    "two-factor enabled",
		IP:        client.IP,
		UserAgent: client.UserAgent,
		RequestID: client.RequestID,
	})
	return nil
}

// Verify checks a login-time code for an ACTIVE account.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string, client domain.ClientInfo) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorState != domain.TwoFactorActive || user.TwoFactorSecret == "" {
		return domain.ErrTwoFactorNotEnrolled
	}
	return s.checkCode(ctx, user, code, client)
}

// Disable turns two-factor off after one final valid code.
func (s *TwoFactorService) Disable(ctx context.Context, userID, code string, client domain.ClientInfo) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorState != domain.TwoFactorActive {
		return domain.ErrTwoFactorNotEnrolled
	}
	if err := s.checkCode(ctx, user, code, client); err != nil {
		return err
	}

	if err := s.users.SetTwoFactor(ctx, userID, "", domain.TwoFactorDisabled); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}
	s.audit.Record(domain.AuditEvent{
		Kind:      domain.AuditTwoFactorDisabled,
		UserID:    userID,
		Action:    "two-factor disabled",
		IP:        client.IP,
		UserAgent: client.UserAgent,
		RequestID: client.RequestID,
	})
	return nil
}

// checkCode runs the shared verification path: rate window, RFC 6238
// comparison with ±1 step of skew, then a one-time claim on the matched
// counter so the same code cannot be replayed inside its window.
func (s *TwoFactorService) checkCode(ctx context.Context, user *domain.User, code string, client domain.ClientInfo) error {
	key := twoFactorKey(user.ID)
	if err := s.limiter.Check(ctx, key); err != nil {
		return err
	}

	ok, counter, err := verifyTOTP(user.TwoFactorSecret, code, s.now())
	if err != nil {
		return err
	}
	if ok {
		claimed, err := s.replay.Claim(ctx, user.ID, counter)
		if err != nil {
			return fmt.Errorf("replay claim: %w", err)
		}
		ok = claimed
	}

	if !ok {
		_, _ = s.limiter.RecordFailure(ctx, key)
		s.audit.Record(domain.AuditEvent{
			Kind:      domain.AuditTwoFactorFailed,
			UserID:    user.ID,
			Action:    "two-factor verification failed",
			IP:        client.IP,
			UserAgent: client.UserAgent,
			RequestID: client.RequestID,
		})
		return domain.ErrInvalidTwoFactorCode
	}

	_ = s.limiter.RecordSuccess(ctx, key)
	return nil
}
