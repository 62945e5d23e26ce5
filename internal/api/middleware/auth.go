package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/agrobolivia/farm-platform/internal/api/metrics"
	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
	"github.com/agrobolivia/farm-platform/internal/core/service"
)

const authContextKey = "auth_context"

// AuthContextFrom extracts the identity the Auth middleware attached to
// the request. The second return is false on unauthenticated routes.
func AuthContextFrom(c echo.Context) (domain.AuthContext, bool) {
	auth, ok := c.Get(authContextKey).(domain.AuthContext)
	return auth, ok
}

// Auth validates the bearer access token and checks the session registry
// before letting a protected request through. Cryptographic validity is
// not enough: a revoked session kills its outstanding access tokens here.
func Auth(tokens ports.TokenService, sessions *service.SessionRegistry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := tokens.VerifyAccess(parts[1])
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(verifyLabel(err)).Inc()
				return err
			}

			active, err := sessions.IsActive(c.Request().Context(), claims.SessionID)
			if err != nil {
				return err
			}
			if !active {
				metrics.TokenVerificationsTotal.WithLabelValues("revoked").Inc()
				return domain.ErrTokenRevoked
			}
			metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()

			// Liveness hint only; a lost update is fine.
			_ = sessions.Touch(c.Request().Context(), claims.SessionID)

			c.Set(authContextKey, domain.AuthContext{
				UserID:    claims.UserID,
				Email:     claims.Email,
				Role:      claims.Role,
				SessionID: claims.SessionID,
			})

			return next(c)
		}
	}
}

func verifyLabel(err error) string {
	if errors.Is(err, domain.ErrTokenExpired) {
		return "expired"
	}
	return "malformed"
}
