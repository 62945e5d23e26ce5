package domain

import "time"

// ClientInfo captures where a request came from. It travels with login
// attempts and is stamped onto sessions and audit events.
type ClientInfo struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Session is the server-side record for one refresh-token family.
// RefreshHash holds the SHA-256 of the currently valid refresh token;
// rotation swaps it atomically so a replayed token can be detected.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RefreshHash string    `json:"-"`
	Revoked     bool      `json:"revoked"`
	IP          string    `json:"ip,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ActiveAt reports whether the session can still back tokens at t.
func (s *Session) ActiveAt(t time.Time) bool {
	return !s.Revoked && t.Before(s.ExpiresAt)
}

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AccessClaims is the verified payload of an access token.
type AccessClaims struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

// AuthContext is the identity attached to a request after the auth
// middleware has validated its access token. Handlers receive it as an
// explicit value, never by digging through ambient request state.
type AuthContext struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}
