package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

// clientInfo extracts the calling client's network identity from the
// request. The request id is the one assigned by the RequestID
// middleware so audit entries can be correlated with access logs.
func clientInfo(c echo.Context) domain.ClientInfo {
	return domain.ClientInfo{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	}
}
