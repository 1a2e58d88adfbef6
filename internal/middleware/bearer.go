package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aischool/aischool-backend/internal/auth"
)

const (
	localAccountID = "account_id"
	bearerPrefix   = "bearer "
)

// Verifier checks a bearer token and returns the identity it proves.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	authz := c.Get(fiber.HeaderAuthorization)
	if len(authz) < len(bearerPrefix) || !strings.EqualFold(authz[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(authz[len(bearerPrefix):])
	return token, token != ""
}

// BearerAuth rejects requests without a valid session token and stores the
// caller's account id in the request locals. The token is trusted
// as-is; no account lookup happens here.
func BearerAuth(v Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "authorization token required")
		}
		id, err := v.Verify(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, auth.ErrAuthFailure.Error())
		}
		c.Locals(localAccountID, id.AccountID)
		return c.Next()
	}
}

// AccountID returns the authenticated caller set by BearerAuth, or "".
func AccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(localAccountID).(string)
	return id
}
