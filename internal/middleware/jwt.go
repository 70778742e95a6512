package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-stand-manager/internal/logging"
	"github.com/iliyamo/parking-stand-manager/internal/model"
)

// JWTAuth validates a Bearer HS256 access token and stores the caller as a
// model.Actor under ActorKey.  The token must carry sub (user id) and role;
// staff tokens must also carry stand_id.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			actor, err := actorFromClaims(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}

			c.Set(ActorKey, actor)
			req := c.Request()
			l := logging.WithContext(req.Context()).With().
				Uint64("user_id", actor.UserID).
				Str("role", string(actor.Role)).
				Logger()
			c.SetRequest(req.WithContext(logging.Into(req.Context(), l)))
			return next(c)
		}
	}
}

func actorFromClaims(claims jwt.MapClaims) (model.Actor, error) {
	uid, err := claimUint(claims["sub"])
	if err != nil || uid == 0 {
		return model.Actor{}, fmt.Errorf("invalid subject claim")
	}
	role, _ := claims["role"].(string)
	a := model.Actor{UserID: uid, Role: model.Role(role)}
	if !a.Role.Valid() {
		return model.Actor{}, fmt.Errorf("invalid role claim")
	}
	if v, ok := claims["stand_id"]; ok && v != nil {
		sid, err := claimUint(v)
		if err != nil {
			return model.Actor{}, fmt.Errorf("invalid stand_id claim")
		}
		a.StandID = &sid
	}
	if a.Role == model.RoleStaff && a.StandID == nil {
		return model.Actor{}, fmt.Errorf("staff token without stand_id")
	}
	return a, nil
}

// claimUint accepts JSON numbers and numeric strings.
func claimUint(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case float64:
		if t < 0 || t != float64(uint64(t)) {
			return 0, fmt.Errorf("not an unsigned integer: %v", t)
		}
		return uint64(t), nil
	case string:
		return strconv.ParseUint(t, 10, 64)
	}
	return 0, fmt.Errorf("unsupported claim type %T", v)
}
