package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-stand-manager/internal/handler"
	"github.com/iliyamo/parking-stand-manager/internal/middleware"
	"github.com/iliyamo/parking-stand-manager/internal/model"
)

// RegisterStands registers stand reads for every role and the
// administration routes for admins.  cache wraps the stand listing only;
// occupancy and active sessions are always read live.
func RegisterStands(e *echo.Echo, h *handler.StandHandler, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	g := v1(e, jwtSecret)

	g.GET("/stands", h.List, cache)
	g.GET("/stands/:id", h.Get)
	g.GET("/stands/:id/occupancy", h.Occupancy)
	g.GET("/stands/:id/sessions", h.ActiveSessions)

	admin := middleware.RequireRole(model.RoleSuperAdmin, model.RoleStandAdmin)
	super := middleware.RequireRole(model.RoleSuperAdmin)
	g.POST("/stands", h.Create, super, limit)
	g.PATCH("/stands/:id", h.Update, admin, limit)
	g.POST("/stands/:id/reconcile", h.Reconcile, super, limit)
}
