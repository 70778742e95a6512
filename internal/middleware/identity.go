package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

// ActorKey is the echo context key under which JWTAuth stores the caller.
const ActorKey = "actor"

// ActorFrom returns the authenticated caller, if any.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(ActorKey).(model.Actor)
	return a, ok
}

// actorID identifies the caller in rate limit and cache keys.  Anonymous
// requests share the "guest" identity.
func actorID(c echo.Context) string {
	a, ok := ActorFrom(c)
	if !ok {
		return "guest"
	}
	id := string(a.Role) + "-" + strconv.FormatUint(a.UserID, 10)
	if a.StandID != nil {
		id += "-s" + strconv.FormatUint(*a.StandID, 10)
	}
	return id
}
