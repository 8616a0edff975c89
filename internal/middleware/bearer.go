package middleware

import (
	"strings"

	"pm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier turns a bearer token into the user it was issued for.
type TokenVerifier interface {
	VerifyToken(raw string) (*SessionUser, error)
}

// BearerAuth accepts "Authorization: Bearer <token>" when no session user is present.
// A present but invalid token is rejected with 401.
func BearerAuth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUser(c) != nil {
			return c.Next()
		}
		h := c.Get(fiber.HeaderAuthorization)
		if h == "" {
			return c.Next()
		}
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return response.Unauthorized(c, "Invalid authorization header")
		}
		user, err := v.VerifyToken(strings.TrimSpace(raw))
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}
		SetUser(c, user)
		return c.Next()
	}
}
