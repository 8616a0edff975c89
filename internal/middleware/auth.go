package middleware

import (
	"pm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUser(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// RequireOrgAdmin allows only session users whose org role is admin or who carry the
// admin role name. Integration tokens never pass.
func RequireOrgAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if user.WorkspaceScope != "" || !user.IsOrgAdmin() {
			return response.Forbidden(c, "Only organization admins can perform this action")
		}
		return c.Next()
	}
}

// GetUser returns the request's user (nil if not logged in).
func GetUser(c *fiber.Ctx) *SessionUser {
	u, _ := c.Locals(userLocal).(*SessionUser)
	return u
}

// SetUser attaches a user to the request without touching the session.
func SetUser(c *fiber.Ctx, u *SessionUser) {
	c.Locals(userLocal, u)
}
