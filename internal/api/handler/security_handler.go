package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/agrobolivia/farm-platform/internal/api/middleware"
	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
	"github.com/agrobolivia/farm-platform/internal/core/service"
)

// SecurityHandler serves the admin security dashboard reads.
type SecurityHandler struct {
	audit    *service.AuditService
	recorder ports.AuditRecorder
}

func NewSecurityHandler(audit *service.AuditService, recorder ports.AuditRecorder) *SecurityHandler {
	return &SecurityHandler{audit: audit, recorder: recorder}
}

// Summary returns aggregate security counters for the dashboard.
//
// @Summary      Security summary
// @Tags         security
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.SecuritySummary
// @Failure      403  {object}  map[string]string
// @Router       /security/summary [get]
func (h *SecurityHandler) Summary(c echo.Context) error {
	summary, err := h.audit.Summary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// Events returns recent security-sensitive audit events, newest first.
//
// @Summary      Recent security events
// @Tags         security
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Max events to return (default 100, cap 500)"
// @Success      200    {array}   domain.AuditEvent
// @Failure      403    {object}  map[string]string
// @Router       /security/events [get]
func (h *SecurityHandler) Events(c echo.Context) error {
	limit := queryInt64(c, "limit", 0)

	events, err := h.audit.RecentSecurityEvents(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// UserAuditTrail pages through one user's full audit trail.
//
// @Summary      Audit trail for a user
// @Tags         security
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string  true   "User id"
// @Param        limit    query     int     false  "Page size (default 50)"
// @Param        offset   query     int     false  "Page offset"
// @Success      200      {array}   domain.AuditEvent
// @Failure      403      {object}  map[string]string
// @Router       /security/audit/{user_id} [get]
func (h *SecurityHandler) UserAuditTrail(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing user id")
	}

	limit := queryInt64(c, "limit", 0)
	offset := queryInt64(c, "offset", 0)

	events, err := h.audit.EventsForUser(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return err
	}

	// Reading someone's trail is itself worth a trace.
	if auth, ok := middleware.AuthContextFrom(c); ok {
		h.recorder.Record(domain.AuditEvent{
			Kind:       domain.AuditExport,
			UserID:     auth.UserID,
			Resource:   "audit_log",
			ResourceID: userID,
			Action:     "user audit trail exported",
			IP:         c.RealIP(),
			UserAgent:  c.Request().UserAgent(),
			RequestID:  c.Response().Header().Get(echo.HeaderXRequestID),
		})
	}

	return c.JSON(http.StatusOK, events)
}

func queryInt64(c echo.Context, name string, fallback int64) int64 {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
