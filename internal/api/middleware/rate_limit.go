package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/agrobolivia/farm-platform/internal/api/metrics"
	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
)

// RateLimit throttles general API traffic per origin IP over a fixed
// window. The tighter per-account auth window lives inside the auth
// service; this one just keeps bulk abuse off the handlers.
func RateLimit(limiter ports.RateLimiter, audit ports.AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if err := limiter.Allow(c.Request().Context(), ip); err != nil {
				if errors.Is(err, domain.ErrRateLimitExceeded) {
					metrics.RateLimitedTotal.WithLabelValues("api").Inc()
					audit.Record(domain.AuditEvent{
						Kind:      domain.AuditRateLimitExceeded,
						Action:    c.Request().Method + " " + c.Path(),
						IP:        ip,
						UserAgent: c.Request().UserAgent(),
						RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
					})
				}
				return err
			}
			return next(c)
		}
	}
}
