// middleware/sse_auth.go
package middleware

import (
	"context"
	"log/slog"
	"strings"

	"hunter-quest-system/apperr"

	"github.com/gofiber/fiber/v2"
)

// Identity is what a token validator resolves an access token to.
type Identity struct {
	UserID   string
	DeviceID string
	Roles    []string
}

// TokenValidator checks an access token presented by a browser EventSource,
// which cannot send gateway headers.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken, deviceID string) (*Identity, error)
}

// SSEAuthMiddleware validates `token` and `device_id` from the query string.
//
// Usage:
//
//	app.Get("/activity-log/stream", middleware.SSEAuthMiddleware(validator, logger), activity.StreamActivitySSE)
func SSEAuthMiddleware(validator TokenValidator, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))
		if accessToken == "" || deviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token or device_id in query",
				"code":  apperr.CodeValidation,
			})
		}

		id, err := validator.ValidateToken(c.UserContext(), accessToken, deviceID)
		if err != nil {
			logger.Warn("[SSEAuth] validation failed", "device_id", deviceID, "error", err)
			return unauthorized(c, "unauthorized")
		}

		c.Locals(LocalUserID, id.UserID)
		c.Locals(LocalDeviceID, id.DeviceID)
		c.Locals(LocalRoles, id.Roles)
		logger.Debug("[SSEAuth] authenticated", "user_id", id.UserID, "device_id", id.DeviceID)
		return c.Next()
	}
}
