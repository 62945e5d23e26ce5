package ports

import (
	"context"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

// SessionRepository defines the persistence interface for the session
// registry. It is the single source of truth for token-family validity.
type SessionRepository interface {
	Insert(ctx context.Context, session *domain.Session) error
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	// SwapRefreshHash atomically replaces the stored refresh hash, but
	// only if the session still holds currentHash and is not revoked.
	// It returns domain.ErrRefreshReused when the hash does not match,
	// domain.ErrTokenRevoked for a revoked session and
	// domain.ErrSessionNotFound when the session is gone. Two
	// concurrent swaps with the same currentHash must yield exactly
	// one success.
	SwapRefreshHash(ctx context.Context, id, currentHash, nextHash string) error
	Touch(ctx context.Context, id string) error
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}
