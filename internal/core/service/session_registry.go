package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
)

// SessionRegistry tracks one record per issued refresh-token family.
// It stores only a SHA-256 of the current refresh token; the plaintext
// token never touches persistence.
type SessionRegistry struct {
	repo ports.SessionRepository
	ttl  time.Duration
}

func NewSessionRegistry(repo ports.SessionRepository, ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionRegistry{repo: repo, ttl: ttl}
}

// hashToken is the refresh-token reference stored server-side.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewSessionID returns a fresh session identifier. Tokens embed the id,
// so callers mint it first, sign the pair, then Create the record.
func NewSessionID() string {
	return uuid.NewString()
}

// Create opens a new session bound to refreshToken for the given user.
func (r *SessionRegistry) Create(ctx context.Context, id, userID, refreshToken string, client domain.ClientInfo) (*domain.Session, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		ID:          id,
		UserID:      userID,
		RefreshHash: hashToken(refreshToken),
		IP:          client.IP,
		UserAgent:   client.UserAgent,
		CreatedAt:   now,
		LastSeenAt:  now,
		ExpiresAt:   now.Add(r.ttl),
	}
	if err := r.repo.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Rotate swaps the session's refresh reference from presented to next in
// one atomic step. Exactly one of two concurrent calls with the same
// presented token succeeds; the loser sees domain.ErrRefreshReused.
func (r *SessionRegistry) Rotate(ctx context.Context, sessionID, presented, next string) error {
	return r.repo.SwapRefreshHash(ctx, sessionID, hashToken(presented), hashToken(next))
}

// IsActive reports whether the session still backs valid tokens.
func (r *SessionRegistry) IsActive(ctx context.Context, sessionID string) (bool, error) {
	session, err := r.repo.FindByID(ctx, sessionID)
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return false, nil
		}
		return false, err
	}
	return session.ActiveAt(time.Now()), nil
}

// Touch updates last-activity. Last-write-wins; a lost update is
// acceptable, so callers may ignore the error.
func (r *SessionRegistry) Touch(ctx context.Context, sessionID string) error {
	return r.repo.Touch(ctx, sessionID)
}

// Revoke marks the session dead. Idempotent.
func (r *SessionRegistry) Revoke(ctx context.Context, sessionID string) error {
	return r.repo.Revoke(ctx, sessionID)
}

// RevokeAll implements "logout everywhere" for one user.
func (r *SessionRegistry) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return r.repo.RevokeAllForUser(ctx, userID)
}

// CountActive is used by the security dashboard.
func (r *SessionRegistry) CountActive(ctx context.Context) (int64, error) {
	return r.repo.CountActive(ctx)
}
