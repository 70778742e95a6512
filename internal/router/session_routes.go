package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-stand-manager/internal/handler"
)

// RegisterSessions registers the session lifecycle under /v1.  limit wraps
// the mutating routes.
func RegisterSessions(e *echo.Echo, h *handler.SessionHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := v1(e, jwtSecret)

	g.POST("/sessions", h.Open, limit)
	g.GET("/sessions/:id", h.Get)
	g.PATCH("/sessions/:id", h.Update, limit)
	g.POST("/sessions/:id/checkout", h.Checkout, limit)
	g.POST("/sessions/:id/cancel", h.Cancel, limit)
	g.GET("/sessions/:id/fee", h.Fee)
}
