package ports

import (
	"context"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

// LoginResult is the outcome of a successful first authentication factor.
// When the account has two-factor ACTIVE, Tokens is empty and ChallengeID
// carries the short-lived handle the client must answer with a code.
type LoginResult struct {
	User              *domain.User     `json:"user,omitempty"`
	Tokens            domain.TokenPair `json:"tokens,omitempty"`
	TwoFactorRequired bool             `json:"two_factor_required"`
	ChallengeID       string           `json:"challenge_id,omitempty"`
}

// RegisterInput carries the fields accepted at self-registration.
type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Phone      string
	Department string
	Community  string
}

// AuthService orchestrates login, token rotation and session lifecycle.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string, client domain.ClientInfo) (*LoginResult, error)
	VerifyTwoFactor(ctx context.Context, challengeID, code string, client domain.ClientInfo) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, client domain.ClientInfo) (domain.TokenPair, error)
	Logout(ctx context.Context, auth domain.AuthContext, client domain.ClientInfo) error
	LogoutEverywhere(ctx context.Context, auth domain.AuthContext, client domain.ClientInfo) error
	ChangePassword(ctx context.Context, auth domain.AuthContext, current, next string, client domain.ClientInfo) error
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, fields map[string]string) (*domain.User, error)
}

// TwoFactorService manages TOTP enrollment and verification.
type TwoFactorService interface {
	BeginEnrollment(ctx context.Context, userID string) (secret, provisioningURI string, err error)
	ConfirmEnrollment(ctx context.Context, userID, code string, client domain.ClientInfo) error
	Disable(ctx context.Context, userID, code string, client domain.ClientInfo) error
	// Verify checks a login-time code for a user with two-factor ACTIVE.
	Verify(ctx context.Context, userID, code string, client domain.ClientInfo) error
}
