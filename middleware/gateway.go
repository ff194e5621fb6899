// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"hunter-quest-system/apperr"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware validates the Bearer token the gateway attaches to every
// forwarded request. An empty expected token disables the check (local development).
func GatewayAuthMiddleware(expectedToken string, logger *slog.Logger) fiber.Handler {
	if expectedToken == "" {
		logger.Warn("[GATEWAY_AUTH] GAME_SERVICE_TOKEN is not set; gateway authentication disabled")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			logger.Warn("[GATEWAY_AUTH] missing Authorization header", "path", c.Path())
			return unauthorized(c, "gateway authentication token missing")
		}

		// accept "Bearer <token>" or the raw token
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			logger.Warn("[GATEWAY_AUTH] invalid token", "path", c.Path())
			return unauthorized(c, "invalid gateway authentication token")
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
		"code":  apperr.CodeUnauthenticated,
	})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": msg,
		"code":  apperr.CodeForbidden,
	})
}
