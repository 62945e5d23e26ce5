package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
)

const (
	bcryptCost   = 12
	challengeTTL = 5 * time.Minute
	// A pending login challenge tolerates a handful of wrong codes
	// before the client has to start over with the password.
	maxChallengeAttempts = 5
)

// AuthService orchestrates the full authentication flow: rate window,
// credential check, optional second factor, token issuance and session
// lifecycle, with audit events at every decision point.
type AuthService struct {
	users      ports.UserRepository
	sessions   *SessionRegistry
	tokens     ports.TokenService
	twoFactor  ports.TwoFactorService
	limiter    ports.RateLimiter
	challenges ports.ChallengeStore
	audit      ports.AuditRecorder
	log        zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	sessions *SessionRegistry,
	tokens ports.TokenService,
	twoFactor ports.TwoFactorService,
	limiter ports.RateLimiter,
	challenges ports.ChallengeStore,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		twoFactor:  twoFactor,
		limiter:    limiter,
		challenges: challenges,
		audit:      audit,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

// loginKey scopes the auth rate window to an email+IP pair, so one
// attacker hammering one account cannot lock out the rest of the world.
func loginKey(email, ip string) string {
	return "login:" + email + ":" + ip
}

// Register creates a farmer account. Role escalation is an admin
// operation, never part of self-registration.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	if input.Email == "" || input.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:             uuid.NewString(),
		Email:          input.Email,
		PasswordHash:   string(hash),
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Phone:          input.Phone,
		Department:     input.Department,
		Community:      input.Community,
		Role:           domain.RoleFarmer,
		Active:         true,
		TwoFactorState: domain.TwoFactorDisabled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuditEvent{
		Kind:       domain.AuditCreate,
		UserID:     created.ID,
		Resource:   "users",
		ResourceID: created.ID,
		Action:     "user registered",
	})
	return created, nil
}

// Login runs the first authentication factor. With two-factor ACTIVE it
// returns a challenge id instead of tokens; the caller completes the
// login through VerifyTwoFactor.
func (s *AuthService) Login(ctx context.Context, email, password string, client domain.ClientInfo) (*ports.LoginResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	key := loginKey(email, client.IP)
	if err := s.limiter.Check(ctx, key); err != nil {
		if errors.Is(err, domain.ErrRateLimitExceeded) {
			s.audit.Record(domain.AuditEvent{
				Kind:      domain.AuditRateLimitExceeded,
				Action:    "login attempts exceeded",
				Metadata:  map[string]string{"email": email},
				IP:        client.IP,
				UserAgent: client.UserAgent,
				RequestID: client.RequestID,
			})
		}
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.failLogin(ctx, key, email, "user not found", client)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Active {
		s.failLogin(ctx, key, email, "account disabled", client)
		return nil, domain.ErrAccountDisabled
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.failLogin(ctx, key, email, "invalid password", client)
		return nil, domain.ErrInvalidCredentials
	}

	if user.TwoFactorEnabled() {
		challengeID := uuid.NewString()
		challenge := &ports.LoginChallenge{
			UserID:    user.ID,
			IP:        client.IP,
			UserAgent: client.UserAgent,
			ExpiresAt: time.Now().UTC().Add(challengeTTL),
		}
		if err := s.challenges.Save(ctx, challengeID, challenge, challengeTTL); err != nil {
			return nil, fmt.Errorf("save login challenge: %w", err)
		}
		return &ports.LoginResult{TwoFactorRequired: true, ChallengeID: challengeID}, nil
	}

	return s.completeLogin(ctx, user, key, client)
}

// VerifyTwoFactor answers a pending challenge with a TOTP code and, on
// success, finishes the login the password started.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, challengeID, code string, client domain.ClientInfo) (*ports.LoginResult, error) {
	challenge, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if challenge.Attempts >= maxChallengeAttempts {
		_ = s.challenges.Delete(ctx, challengeID)
		return nil, domain.ErrChallengeExpired
	}

	if err := s.twoFactor.Verify(ctx, challenge.UserID, code, client); err != nil {
		if errors.Is(err, domain.ErrInvalidTwoFactorCode) {
			// The deadline was fixed at login; counting an attempt must
			// not push it out.
			remaining := time.Until(challenge.ExpiresAt)
			if remaining <= 0 {
				_ = s.challenges.Delete(ctx, challengeID)
				return nil, domain.ErrChallengeExpired
			}
			challenge.Attempts++
			_ = s.challenges.Save(ctx, challengeID, challenge, remaining)
		}
		return nil, err
	}

	_ = s.challenges.Delete(ctx, challengeID)

	user, err := s.users.FindByID(ctx, challenge.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrAccountDisabled
	}

	return s.completeLogin(ctx, user, loginKey(user.Email, client.IP), client)
}

// completeLogin issues the token pair, opens the session record, clears
// the failure counter and audits the success.
func (s *AuthService) completeLogin(ctx context.Context, user *domain.User, limiterKey string, client domain.ClientInfo) (*ports.LoginResult, error) {
	sessionID := NewSessionID()
	pair, err := s.tokens.IssuePair(user, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.Create(ctx, sessionID, user.ID, pair.RefreshToken, client); err != nil {
		return nil, err
	}

	if err := s.limiter.RecordSuccess(ctx, limiterKey); err != nil {
		s.log.Warn().Err(err).Msg("clearing login counter failed")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("updating last login failed")
	}

	s.audit.Record(domain.AuditEvent{
		Kind:      domain.AuditLoginSuccess,
		UserID:    user.ID,
		Action:    "user logged in",
		IP:        client.IP,
		UserAgent: client.UserAgent,
		RequestID: client.RequestID,
	})

	return &ports.LoginResult{User: user, Tokens: pair}, nil
}

// failLogin increments the rate window and audits the failure. The
// submitted password never reaches the event.
func (s *AuthService) failLogin(ctx context.Context, key, email, reason string, client domain.ClientInfo) {
	if _, err := s.limiter.RecordFailure(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("recording login failure failed")
	}
	s.audit.Record(domain.AuditEvent{
		Kind:      domain.AuditLoginFailed,
		Action:    "login attempt failed",
		Metadata:  map[string]string{"email": email, "reason": reason},
		IP:        client.IP,
		UserAgent: client.UserAgent,
		RequestID: client.RequestID,
	})
}

// Refresh rotates a refresh token. A token that no longer matches the
// session's current reference was already rotated once: that is replay,
// so the whole session dies and the incident is audited.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client domain.ClientInfo) (domain.TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.TokenPair{}, domain.ErrTokenRevoked
		}
		return domain.TokenPair{}, err
	}
	if !user.Active {
		return domain.TokenPair{}, domain.ErrAccountDisabled
	}

	pair, err := s.tokens.IssuePair(user, claims.SessionID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	switch err := s.sessions.Rotate(ctx, claims.SessionID, refreshToken, pair.RefreshToken); {
	case err == nil:
	case errors.Is(err, domain.ErrRefreshReused):
		if revokeErr := s.sessions.Revoke(ctx, claims.SessionID); revokeErr != nil {
			s.log.Error().Err(revokeErr).Str("session_id", claims.SessionID).Msg("revoking replayed session failed")
		}
		s.audit.Record(domain.AuditEvent{
			Kind:      domain.AuditSuspiciousActivity,
			UserID:    claims.UserID,
			Action:    "refresh token replay detected; session revoked",
			Metadata:  map[string]string{"session_id": claims.SessionID},
			IP:        client.IP,
			UserAgent: client.UserAgent,
			RequestID: client.RequestID,
		})
		return domain.TokenPair{}, domain.ErrRefreshReused
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrTokenRevoked):
		return domain.TokenPair{}, domain.ErrTokenRevoked
	default:
		return domain.TokenPair{}, err
	}

	s.audit.Record(domain.AuditEvent{
		Kind:      domain.AuditTokenRefresh,
		UserID:    claims.UserID,
		Action:    "token pair rotated",
		IP:        client.IP,
		UserAgent: client.UserAgent,
		RequestID: client.RequestID,
	})

	return pair, nil
}

// Logout revokes the calling session. Safe to repeat.
func (s *AuthService) Logout(ctx context.Context, auth domain.AuthContext, client domain.ClientInfo) error {
	if err := s.sessions.Revoke(ctx, auth.SessionID); err != nil {
		return err
	}
	s.audit.Record(domain.AuditEvent{
		Kind:      domain.AuditLogout,
		UserID:    auth.UserID,
		Action:    "user logged out",
		IP:        client.IP,
		UserAgent: client.UserAgent,
		RequestID: client.RequestID,
	})
	return nil
}

// LogoutEverywhere revokes every session the user holds.
func (s *AuthService) LogoutEverywhere(ctx context.Context, auth domain.AuthContext, client domain.ClientInfo) error {
	revoked, err := s.sessions.RevokeAll(ctx, auth.UserID)
	if err != nil {
		return err
	}
	s.audit.Record(domain.AuditEvent{
		Kind:      domain.AuditLogout,
		UserID:    auth.UserID,
		Action:    "all sessions revoked",
		Metadata:  map[string]string{"sessions": fmt.Sprintf("%d", revoked)},
		IP:        client.IP,
		UserAgent: client.UserAgent,
		RequestID: client.RequestID,
	})
	return nil
}

// ChangePassword re-hashes the credential and tears down every live
// session so stolen tokens die with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, auth domain.AuthContext, current, next string, client domain.ClientInfo) error {
	user, err := s.users.FindByID(ctx, auth.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	if _, err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("revoking sessions after password change failed")
	}

	s.audit.Record(domain.AuditEvent{
		Kind:      domain.AuditPasswordChange,
		UserID:    user.ID,
		Action:    "password changed",
		IP:        client.IP,
		UserAgent: client.UserAgent,
		RequestID: client.RequestID,
	})
	return nil
}

// Profile returns the caller's account record.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// UpdateProfile applies the allowed self-service field changes.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, fields map[string]string) (*domain.User, error) {
	user, err := s.users.UpdateProfile(ctx, userID, fields)
	if err != nil {
		return nil, err
	}
	s.audit.Record(domain.AuditEvent{
		Kind:       domain.AuditUpdate,
		UserID:     userID,
		Resource:   "users",
		ResourceID: userID,
		Action:     "profile updated",
	})
	return user, nil
}
