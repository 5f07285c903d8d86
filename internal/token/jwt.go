package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParseJWT validates a signed JWT (HMAC) and returns its claims. Only the
// signature and standard time claims are checked here; claim semantics are
// the evaluators' concern.
func ParseJWT(tokenString string, signingKey []byte) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	return Claims(mapClaims), nil
}

// SignJWT issues a signed token for the given claims. Used by tests and the
// bootstrap tooling; production tokens come from the authentication
// subsystem.
func SignJWT(claims Claims, signingKey []byte) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	signed, err := tok.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
