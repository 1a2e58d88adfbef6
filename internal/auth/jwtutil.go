package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload embedded in every session token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// SignHS256 creates a compact JWT string for claims using HS256.
func SignHS256(claims Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// expiryLeeway makes a token valid up to and including its exp second; jwt
// otherwise rejects now == exp.
const expiryLeeway = time.Nanosecond

// ParseAndVerifyHS256 verifies the token signature and expiry against now and
// returns its claims. A token fails only once now is past exp. Tokens without
// an expiry or subject are rejected.
func ParseAndVerifyHS256(token string, secret []byte, now func() time.Time) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
		jwt.WithLeeway(expiryLeeway),
	)
	if err != nil {
		return Claims{}, err
	}
	if !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("token subject missing")
	}
	return claims, nil
}
