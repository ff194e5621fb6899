// handlers/progression_routes.go
package handlers

import (
	"log/slog"

	"hunter-quest-system/middleware"

	"github.com/gofiber/fiber/v2"
)

func setupProgressionRoutes(r fiber.Router, svc Services, log *slog.Logger) {
	r.Get("/skills", func(c *fiber.Ctx) error {
		skills, err := svc.Catalog.ListSkills(c.UserContext())
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(skills)
	})

	r.Get("/user-skills", func(c *fiber.Ctx) error {
		owned, err := svc.Catalog.ListUserSkills(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(owned)
	})

	r.Post("/skills/:id/unlock", func(c *fiber.Ctx) error {
		us, err := svc.Completion.UnlockSkill(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(us)
	})

	r.Get("/achievements", func(c *fiber.Ctx) error {
		list, err := svc.Achievements.List(c.UserContext())
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(list)
	})

	r.Get("/user-achievements", func(c *fiber.Ctx) error {
		owned, err := svc.Achievements.ListUnlocked(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(owned)
	})
}

func setupAdminRoutes(r fiber.Router, svc Services, log *slog.Logger) {
	r.Post("/achievements/:id/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return badRequest(c, "user_id is required")
		}
		if _, err := svc.Hunters.EnsureHunter(c.UserContext(), req.UserID); err != nil {
			return writeError(c, log, err)
		}
		ua, err := svc.Completion.UnlockAchievement(c.UserContext(), req.UserID, c.Params("id"))
		if err != nil {
			return writeError(c, log, err)
		}
		log.Info("[Admin] achievement granted", "by", middleware.UserID(c), "user_id", req.UserID, "achievement_id", ua.AchievementID)
		return c.Status(fiber.StatusCreated).JSON(ua)
	})

	r.Post("/skills/:id/icon", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("icon")
		if err != nil {
			return badRequest(c, "icon file is required")
		}
		skill, err := svc.Catalog.SetSkillIcon(c.UserContext(), c.Params("id"), fh)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(skill)
	})

	r.Post("/achievements/:id/icon", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("icon")
		if err != nil {
			return badRequest(c, "icon file is required")
		}
		a, err := svc.Catalog.SetAchievementIcon(c.UserContext(), c.Params("id"), fh)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(a)
	})
}
