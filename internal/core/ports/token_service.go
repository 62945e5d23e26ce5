package ports

import (
	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

// TokenService mints and verifies the two token classes. Access and
// refresh tokens are signed with distinct secrets so a leaked access
// secret cannot mint refresh tokens. Revocation decisions belong to the
// session registry, not here.
type TokenService interface {
	IssuePair(user *domain.User, sessionID string) (domain.TokenPair, error)
	VerifyAccess(token string) (*domain.AccessClaims, error)
	VerifyRefresh(token string) (*domain.AccessClaims, error)
}
