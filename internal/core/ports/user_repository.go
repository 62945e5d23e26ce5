package ports

import (
	"context"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

// UserRepository defines the persistence interface for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string) error
	// SetTwoFactor stores secret and state together so enrollment
	// transitions are a single write.
	SetTwoFactor(ctx context.Context, id, secret, state string) error
	UpdateProfile(ctx context.Context, id string, fields map[string]string) (*domain.User, error)
}
