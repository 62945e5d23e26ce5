package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

type twoFactorFixture struct {
	svc     *TwoFactorService
	users   *stubUserRepo
	limiter *stubLimiter
	replay  *stubReplayGuard
	audit   *stubRecorder
}

func newTwoFactorFixture(t *testing.T) *twoFactorFixture {
	t.Helper()

	users := newStubUserRepo()
	limiter := newStubLimiter(5)
	replay := newStubReplayGuard()
	audit := &stubRecorder{}

	return &twoFactorFixture{
		svc:     NewTwoFactorService(users, limiter, replay, audit, "AgroBolivia"),
		users:   users,
		limiter: limiter,
		replay:  replay,
		audit:   audit,
	}
}

func (f *twoFactorFixture) seedUser(t *testing.T, state, secret string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:              "user-1",
		Email:           "juan@example.bo",
		Role:            domain.RoleFarmer,
		Active:          true,
		TwoFactorState:  state,
		TwoFactorSecret: secret,
	}
	if _, err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func codeFor(t *testing.T, secret string, offsetSteps int64) string {
	t.Helper()
	key, err := base32NoPad.DecodeString(secret)
	if err != nil {
		t.Fatalf("decoding secret: %v", err)
	}
	return hotpCode(key, time.Now().Unix()/totpPeriod+offsetSteps)
}

func TestTwoFactor_BeginEnrollment(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.seedUser(t, domain.TwoFactorDisabled, "")

	secret, uri, err := f.svc.BeginEnrollment(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("BeginEnrollment returned error: %v", err)
	}
	if secret == "" {
		t.Fatalf("expected a secret")
	}
	if !strings.Contains(uri, "secret="+secret) || !strings.Contains(uri, "juan@example.bo") {
		t.Fatalf("unexpected provisioning uri: %s", uri)
	}

	stored, _ := f.users.FindByID(context.Background(), "user-1")
	if stored.TwoFactorState != domain.TwoFactorPending {
		t.Fatalf("expected PENDING, got %s", stored.TwoFactorState)
	}
	if stored.TwoFactorSecret != secret {
		t.Fatalf("stored secret differs from returned secret")
	}
}

func TestTwoFactor_BeginEnrollment_OverwritesPending(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.seedUser(t, domain.TwoFactorDisabled, "")
	ctx := context.Background()

	first, _, err := f.svc.BeginEnrollment(ctx, "user-1")
	if err != nil {
		t.Fatalf("first enrollment: %v", err)
	}
	second, _, err := f.svc.BeginEnrollment(ctx, "user-1")
	if err != nil {
		t.Fatalf("restarted enrollment: %v", err)
	}
	if first == second {
		t.Fatalf("restart must mint a fresh secret")
	}

	stored, _ := f.users.FindByID(ctx, "user-1")
	if stored.TwoFactorSecret != second {
		t.Fatalf("old secret survived the restart")
	}
}

func TestTwoFactor_BeginEnrollment_AlreadyActive(t *testing.T) {
	f := newTwoFactorFixture(t)
	secret, _ := generateTOTPSecret()
	f.seedUser(t, domain.TwoFactorActive, secret)

	if _, _, err := f.svc.BeginEnrollment(context.Background(), "user-1"); !errors.Is(err, domain.ErrTwoFactorAlreadyOn) {
		t.Fatalf("expected ErrTwoFactorAlreadyOn, got %v", err)
	}
}

func TestTwoFactor_ConfirmEnrollment(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.seedUser(t, domain.TwoFactorDisabled, "")
	ctx := context.Background()

	secret, _, err := f.svc.BeginEnrollment(ctx, "user-1")
	if err != nil {
		t.Fatalf("BeginEnrollment returned error: %v", err)
	}

	if err := f.svc.ConfirmEnrollment(ctx, "user-1", codeFor(t, secret, 0), domain.ClientInfo{}); err != nil {
		t.Fatalf("ConfirmEnrollment returned error: %v", err)
	}

	stored, _ := f.users.FindByID(ctx, "user-1")
	if stored.TwoFactorState != domain.TwoFactorActive {
		t.Fatalf("expected ACTIVE, got %s", stored.TwoFactorState)
	}
	if !f.audit.has(domain.AuditTwoFactorEnabled) {
		t.Fatalf("activation not audited, got %v", f.audit.kinds())
	}
}

func TestTwoFactor_ConfirmEnrollment_WrongCode(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.seedUser(t, domain.TwoFactorDisabled, "")
	ctx := context.Background()

	if _, _, err := f.svc.BeginEnrollment(ctx, "user-1"); err != nil {
		t.Fatalf("BeginEnrollment returned error: %v", err)
	}

	if err := f.svc.ConfirmEnrollment(ctx, "user-1", "000000", domain.ClientInfo{}); !errors.Is(err, domain.ErrInvalidTwoFactorCode) {
		t.Fatalf("expected ErrInvalidTwoFactorCode, got %v", err)
	}

	// A wrong code never activates; the account stays PENDING.
	stored, _ := f.users.FindByID(ctx, "user-1")
	if stored.TwoFactorState != domain.TwoFactorPending {
		t.Fatalf("expected PENDING, got %s", stored.TwoFactorState)
	}
	if !f.audit.has(domain.AuditTwoFactorFailed) {
		t.Fatalf("failed code not audited, got %v", f.audit.kinds())
	}
}

func TestTwoFactor_ConfirmEnrollment_NotPending(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.seedUser(t, domain.TwoFactorDisabled, "")

	if err := f.svc.ConfirmEnrollment(context.Background(), "user-1", "123456", domain.ClientInfo{}); !errors.Is(err, domain.ErrTwoFactorNotEnrolled) {
		t.Fatalf("expected ErrTwoFactorNotEnrolled, got %v", err)
	}
}

func TestTwoFactor_Verify_ReplayBlocked(t *testing.T) {
	f := newTwoFactorFixture(t)
	secret, _ := generateTOTPSecret()
	f.seedUser(t, domain.TwoFactorActive, secret)
	ctx := context.Background()

	code := codeFor(t, secret, 0)
	if err := f.svc.Verify(ctx, "user-1", code, domain.ClientInfo{}); err != nil {
		t.Fatalf("first verification failed: %v", err)
	}

	// The exact same code inside its window is replay.
	if err := f.svc.Verify(ctx, "user-1", code, domain.ClientInfo{}); !errors.Is(err, domain.ErrInvalidTwoFactorCode) {
		t.Fatalf("replayed code accepted: %v", err)
	}
}

func TestTwoFactor_Verify_RateLimited(t *testing.T) {
	f := newTwoFactorFixture(t)
	secret, _ := generateTOTPSecret()
	f.seedUser(t, domain.TwoFactorActive, secret)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := f.svc.Verify(ctx, "user-1", "000000", domain.ClientInfo{}); !errors.Is(err, domain.ErrInvalidTwoFactorCode) {
			t.Fatalf("attempt %d: expected ErrInvalidTwoFactorCode, got %v", i, err)
		}
	}

	// Budget spent: even a correct code is refused now.
	if err := f.svc.Verify(ctx, "user-1", codeFor(t, secret, 0), domain.ClientInfo{}); !errors.Is(err, domain.ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestTwoFactor_Disable(t *testing.T) {
	f := newTwoFactorFixture(t)
	secret, _ := generateTOTPSecret()
	f.seedUser(t, domain.TwoFactorActive, secret)
	ctx := context.Background()

	if err := f.svc.Disable(ctx, "user-1", "000000", domain.ClientInfo{}); !errors.Is(err, domain.ErrInvalidTwoFactorCode) {
		t.Fatalf("disable without a valid code: %v", err)
	}

	if err := f.svc.Disable(ctx, "user-1", codeFor(t, secret, 0), domain.ClientInfo{}); err != nil {
		t.Fatalf("Disable returned error: %v", err)
	}

	stored, _ := f.users.FindByID(ctx, "user-1")
	if stored.TwoFactorState != domain.TwoFactorDisabled {
		t.Fatalf("expected DISABLED, got %s", stored.TwoFactorState)
	}
	if stored.TwoFactorSecret != "" {
		t.Fatalf("secret not cleared on disable")
	}
	if !f.audit.has(domain.AuditTwoFactorDisabled) {
		t.Fatalf("disable not audited, got %v", f.audit.kinds())
	}
}

func TestTwoFactor_Verify_NotEnrolled(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.seedUser(t, domain.TwoFactorDisabled, "")

	if err := f.svc.Verify(context.Background(), "user-1", "123456", domain.ClientInfo{}); !errors.Is(err, domain.ErrTwoFactorNotEnrolled) {
		t.Fatalf("expected ErrTwoFactorNotEnrolled, got %v", err)
	}
}
