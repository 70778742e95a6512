package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-stand-manager/internal/middleware"
	"github.com/iliyamo/parking-stand-manager/internal/service"
	"github.com/iliyamo/parking-stand-manager/internal/validation"
)

// StandHandler serves stand administration and the per-stand views of the
// occupancy ledger.
type StandHandler struct {
	Stands   *service.StandService
	Sessions *service.SessionService
}

func NewStandHandler(stands *service.StandService, sessions *service.SessionService) *StandHandler {
	if stands == nil || sessions == nil {
		panic("nil service passed to NewStandHandler")
	}
	return &StandHandler{Stands: stands, Sessions: sessions}
}

// List handles GET /v1/stands.
func (h *StandHandler) List(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	stands, err := h.Stands.List(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]standResponse, 0, len(stands))
	for i := range stands {
		items = append(items, toStand(&stands[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/stands/:id.
func (h *StandHandler) Get(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid stand id")
	}
	st, err := h.Stands.Get(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toStand(st))
}

// Create handles POST /v1/stands.
func (h *StandHandler) Create(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req validation.CreateStandRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	st, err := h.Stands.Create(c.Request().Context(), actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toStand(st))
}

// Update handles PATCH /v1/stands/:id.
func (h *StandHandler) Update(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid stand id")
	}
	var req validation.UpdateStandRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	st, err := h.Stands.Update(c.Request().Context(), actor, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toStand(st))
}

// Reconcile handles POST /v1/stands/:id/reconcile.
func (h *StandHandler) Reconcile(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid stand id")
	}
	rec, err := h.Stands.Reconcile(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"stand_id": rec.StandID,
		"before":   rec.Before,
		"after":    rec.After,
		"capacity": rec.Capacity,
		"drift":    rec.After - rec.Before,
	})
}

// Occupancy handles GET /v1/stands/:id/occupancy.
func (h *StandHandler) Occupancy(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid stand id")
	}
	occ, err := h.Sessions.Occupancy(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"stand_id":  occ.StandID,
		"current":   occ.Current,
		"capacity":  occ.Capacity,
		"available": occ.Available,
	})
}

// ActiveSessions handles GET /v1/stands/:id/sessions.
func (h *StandHandler) ActiveSessions(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid stand id")
	}
	sessions, err := h.Sessions.ListActive(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toSessions(sessions)})
}
