package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// tokenExpired peeks at a bearer token without verifying its signature.
// The second return is false when the token is not a parseable JWT or
// carries no expiry claim; verification then falls through to the backend,
// which is the real authority either way.
func tokenExpired(rawToken string, now time.Time) (expired bool, ok bool) {
	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return false, false
	}

	claims, isMap := token.Claims.(jwtlib.MapClaims)
	if !isMap {
		return false, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, false
	}
	return exp.Before(now), true
}
