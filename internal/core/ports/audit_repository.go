package ports

import (
	"context"
	"time"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

// AuditRepository defines the persistence interface for the audit log.
// Events are insert-only.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
	// FindRecentByKinds returns events of the given kinds, most recent
	// first.
	FindRecentByKinds(ctx context.Context, kinds []string, limit int64) ([]domain.AuditEvent, error)
	FindByUser(ctx context.Context, userID string, limit, offset int64) ([]domain.AuditEvent, error)
	CountByKindSince(ctx context.Context, kind string, since time.Time) (int64, error)
}

// AuditRecorder is the fire-and-forget write side of the audit pipeline.
// Record must never block the caller beyond a bounded, small overhead and
// must never surface an error into the originating request.
type AuditRecorder interface {
	Record(event domain.AuditEvent)
}
