package ports

import (
	"context"
	"time"
)

// LoginChallenge is the short-lived record bridging a verified password
// and a pending second factor. It is never a session: no tokens exist
// until the code is verified.
type LoginChallenge struct {
	UserID    string    `json:"user_id"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeStore holds pending two-factor login challenges with a TTL.
type ChallengeStore interface {
	Save(ctx context.Context, id string, challenge *LoginChallenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*LoginChallenge, error)
	Delete(ctx context.Context, id string) error
}

// ReplayGuard claims one-time use of a TOTP code's time step. Claim
// returns false when the (userID, counter) pair was already used, which
// blocks replay of a just-seen code inside its validity window.
type ReplayGuard interface {
	Claim(ctx context.Context, userID string, counter int64) (bool, error)
}
