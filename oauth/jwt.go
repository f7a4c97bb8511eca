package oauth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Expired peeks at the exp claim of a JWT access token without verifying the
// signature. Opaque tokens and tokens without exp are never reported expired;
// the verify request decides for those.
func Expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return now.After(time.Unix(int64(exp), 0))
}
