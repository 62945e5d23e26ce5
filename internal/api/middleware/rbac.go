package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
)

// RBAC enforces role membership after Auth has run. A denial is
// security-relevant even though the token is valid, so it is audited as
// UNAUTHORIZED_ACCESS.
func RBAC(audit ports.AuditRecorder, allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth, ok := AuthContextFrom(c)
			if !ok {
				return domain.ErrTokenMalformed
			}
			if _, member := allowed[auth.Role]; !member {
				audit.Record(domain.AuditEvent{
					Kind:      domain.AuditUnauthorizedAccess,
					UserID:    auth.UserID,
					Action:    c.Request().Method + " " + c.Path(),
					Metadata:  map[string]string{"role": auth.Role},
					IP:        c.RealIP(),
					UserAgent: c.Request().UserAgent(),
					RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
				})
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
