package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

// TokenService signs and verifies access/refresh token pairs. The two
// classes use distinct HS256 secrets: a leaked access secret must not be
// able to mint refresh tokens.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// RefreshTTL exposes the configured refresh lifetime so the session
// registry can align session expiry with it.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

type tokenClaims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// IssuePair signs a fresh access/refresh pair bound to sessionID.
func (s *TokenService) IssuePair(user *domain.User, sessionID string) (domain.TokenPair, error) {
	access, err := s.sign(user, sessionID, s.accessSecret, s.accessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(user, sessionID, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) sign(user *domain.User, sessionID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email:     user.Email,
		Role:      user.Role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess validates signature and expiry of an access token.
// Revocation is checked separately against the session registry.
func (s *TokenService) VerifyAccess(token string) (*domain.AccessClaims, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefresh validates a refresh token against the refresh secret.
func (s *TokenService) VerifyRefresh(token string) (*domain.AccessClaims, error) {
	return s.verify(token, s.refreshSecret)
}

func (s *TokenService) verify(token string, secret []byte) (*domain.AccessClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// Pin the algorithm: a token claiming "none" or an asymmetric
		// method must not reach signature verification.
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenMalformed
	}
	if !parsed.Valid || claims.Subject == "" || claims.SessionID == "" {
		return nil, domain.ErrTokenMalformed
	}

	return &domain.AccessClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}, nil
}
