// handlers/routes.go
package handlers

import (
	"log/slog"

	"hunter-quest-system/apperr"
	"hunter-quest-system/middleware"
	"hunter-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Hunters      *services.HunterService
	Quests       *services.QuestService
	Completion   *services.CompletionService
	Achievements *services.AchievementService
	Catalog      *services.CatalogService
	Activity     *services.ActivityService
}

type Options struct {
	GatewayToken string
	// StreamValidator authenticates the SSE feed; nil leaves the stream behind the gateway headers.
	StreamValidator middleware.TokenValidator
	Logger          *slog.Logger
}

// Setup registers every route. The gateway strips its own prefix before forwarding.
func Setup(app *fiber.App, svc Services, opts Options) {
	log := opts.Logger

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// EventSource cannot send gateway headers, so the stream authenticates by query token.
	if opts.StreamValidator != nil {
		app.Get("/activity-log/stream",
			middleware.SSEAuthMiddleware(opts.StreamValidator, log),
			ensureHunter(svc.Hunters, log),
			svc.Activity.StreamActivitySSE,
		)
	}

	secured := app.Group("/",
		middleware.GatewayAuthMiddleware(opts.GatewayToken, log),
		middleware.UserContextMiddleware(log),
		ensureHunter(svc.Hunters, log),
	)
	if opts.StreamValidator == nil {
		secured.Get("/activity-log/stream", svc.Activity.StreamActivitySSE)
	}

	setupHunterRoutes(secured, svc.Hunters, log)
	setupQuestRoutes(secured, svc.Quests, svc.Completion, log)
	setupProgressionRoutes(secured, svc, log)
	setupActivityRoutes(secured, svc.Activity, log)

	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	setupAdminRoutes(admin, svc, log)
}

// ensureHunter creates the progression row on a user's first request.
func ensureHunter(hunters *services.HunterService, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := hunters.EnsureHunter(c.UserContext(), middleware.UserID(c)); err != nil {
			return writeError(c, log, err)
		}
		return c.Next()
	}
}

// writeError renders err as {"error", "code"} with the status its code maps to.
func writeError(c *fiber.Ctx, log *slog.Logger, err error) error {
	code := apperr.CodeOf(err)
	msg := err.Error()
	if code == apperr.CodeInternal {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		msg = "internal error"
	}
	return c.Status(code.HTTPStatus()).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"code":  apperr.CodeValidation,
	})
}
