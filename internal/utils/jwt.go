// Package utils mints HS256 access tokens in the shape JWTAuth expects.
// The service itself does not issue tokens; this is used by tests and the
// token command for local tooling.
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/parking-stand-manager/internal/model"
)

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a token for actor valid for ttl.  Claims: sub, role,
// stand_id (when set), exp, iat.
func NewAccessToken(secret string, actor model.Actor, ttl time.Duration) (AccessToken, error) {
	if !actor.Role.Valid() {
		return AccessToken{}, errors.New("unknown role")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  actor.UserID,
		"role": string(actor.Role),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	if actor.StandID != nil {
		claims["stand_id"] = *actor.StandID
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
