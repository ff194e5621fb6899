// middleware/auth.go
package middleware

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Locals keys shared by the middleware and handlers.
const (
	LocalUserID   = "user_id"
	LocalRoles    = "user_roles"
	LocalDeviceID = "device_id"
)

// UserContextMiddleware extracts the user identity and roles set by the gateway.
// Requests without X-User-ID are rejected.
func UserContextMiddleware(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			logger.Warn("[USER_CTX] X-User-ID missing", "path", c.Path())
			return unauthorized(c, "missing X-User-ID, request must come through gateway with auth context")
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalRoles, parseRoles(c.Get("X-User-Roles")))

		logger.Debug("[USER_CTX] resolved", "user_id", userID, "path", c.Path())
		return c.Next()
	}
}

func parseRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// RequireRole lets the request through only when the user carries role.
// Must run after UserContextMiddleware.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals(LocalRoles).([]string)
		if !slices.Contains(roles, role) {
			return forbidden(c, "requires role "+role)
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id stored by the auth middleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
