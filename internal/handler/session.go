package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-stand-manager/internal/middleware"
	"github.com/iliyamo/parking-stand-manager/internal/service"
	"github.com/iliyamo/parking-stand-manager/internal/validation"
)

// SessionHandler exposes the session state machine.  Routes are mounted
// behind JWTAuth, so an actor is always present.
type SessionHandler struct {
	Sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	if sessions == nil {
		panic("nil session service passed to NewSessionHandler")
	}
	return &SessionHandler{Sessions: sessions}
}

// Open handles POST /v1/sessions.
func (h *SessionHandler) Open(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req validation.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.Sessions.Open(c.Request().Context(), actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toSession(s))
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid session id")
	}
	s, err := h.Sessions.Get(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toSession(s))
}

// Update handles PATCH /v1/sessions/:id.
func (h *SessionHandler) Update(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid session id")
	}
	var req validation.UpdateSessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.Sessions.Update(c.Request().Context(), actor, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toSession(s))
}

// Checkout handles POST /v1/sessions/:id/checkout.  The body is optional.
func (h *SessionHandler) Checkout(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid session id")
	}
	var req validation.CheckoutRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	s, err := h.Sessions.Checkout(c.Request().Context(), actor, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toSession(s))
}

// Cancel handles POST /v1/sessions/:id/cancel.
func (h *SessionHandler) Cancel(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid session id")
	}
	s, err := h.Sessions.Cancel(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toSession(s))
}

// Fee handles GET /v1/sessions/:id/fee.
func (h *SessionHandler) Fee(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid session id")
	}
	f, err := h.Sessions.Fee(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toFee(f))
}
