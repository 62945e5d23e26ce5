package domain

import "errors"

// Expected authentication outcomes are sentinel values so callers handle
// each case explicitly; none of them should escape the API boundary
// unmapped.
var (
	// ErrInvalidCredentials covers both "no such user" and "wrong
	// password" so responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")

	ErrTwoFactorRequired     = errors.New("two-factor code required")
	ErrInvalidTwoFactorCode  = errors.New("invalid two-factor code")
	ErrTwoFactorNotEnrolled  = errors.New("two-factor not enrolled")
	ErrTwoFactorAlreadyOn    = errors.New("two-factor already enabled")
	ErrChallengeExpired      = errors.New("two-factor challenge expired")

	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenRevoked   = errors.New("token revoked")
	// ErrRefreshReused marks a refresh token presented after it was
	// already rotated: a replay, treated as a security incident.
	ErrRefreshReused = errors.New("refresh token reused")

	ErrForbidden       = errors.New("forbidden")
	ErrUserExists      = errors.New("user already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
)
