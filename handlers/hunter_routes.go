package handlers

import (
	"log/slog"

	"hunter-quest-system/middleware"
	"hunter-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func setupHunterRoutes(r fiber.Router, hunters *services.HunterService, log *slog.Logger) {
	r.Get("/auth/user", func(c *fiber.Ctx) error {
		h, err := hunters.GetHunter(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(h)
	})

	r.Patch("/auth/profile", func(c *fiber.Ctx) error {
		var req services.UpdateProfileInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		h, err := hunters.UpdateProfile(c.UserContext(), middleware.UserID(c), req)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(h)
	})

	r.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := hunters.Leaderboard(c.UserContext(), c.QueryInt("limit", services.DefaultLeaderboardLimit))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(entries)
	})
}
