// Package router registers the HTTP routes of the service.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-stand-manager/internal/middleware"
	"github.com/iliyamo/parking-stand-manager/internal/model"
)

// staffRoles may use every session route; stand scoping is enforced by the
// services.
var staffRoles = []model.Role{model.RoleSuperAdmin, model.RoleStandAdmin, model.RoleStaff}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc, metrics http.Handler) {
	e.GET("/healthz", health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// v1 returns the authenticated /v1 group.
func v1(e *echo.Echo, jwtSecret string) *echo.Group {
	return e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(staffRoles...),
	)
}
