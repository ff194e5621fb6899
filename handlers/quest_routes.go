package handlers

import (
	"log/slog"

	"hunter-quest-system/middleware"
	"hunter-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func setupQuestRoutes(r fiber.Router, quests *services.QuestService, completion *services.CompletionService, log *slog.Logger) {
	// Quests
	r.Get("/quests", func(c *fiber.Ctx) error {
		list, err := quests.ListQuests(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(list)
	})

	r.Get("/quests/:id", func(c *fiber.Ctx) error {
		q, err := quests.GetQuest(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(q)
	})

	r.Post("/quests", func(c *fiber.Ctx) error {
		var req services.CreateQuestInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		q, err := quests.CreateQuest(c.UserContext(), middleware.UserID(c), req)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(q)
	})

	r.Patch("/quests/:id", func(c *fiber.Ctx) error {
		var req services.UpdateQuestInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		q, err := quests.UpdateQuest(c.UserContext(), middleware.UserID(c), c.Params("id"), req)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(q)
	})

	r.Delete("/quests/:id", func(c *fiber.Ctx) error {
		if err := quests.DeleteQuest(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return writeError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/quests/:id/complete", func(c *fiber.Ctx) error {
		res, err := completion.CompleteQuest(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(res)
	})

	// Missions
	r.Get("/missions", func(c *fiber.Ctx) error {
		list, err := quests.ListMissions(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(list)
	})

	r.Get("/missions/:id", func(c *fiber.Ctx) error {
		m, err := quests.GetMission(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(m)
	})

	r.Post("/missions", func(c *fiber.Ctx) error {
		var req services.CreateMissionInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		m, err := quests.CreateMission(c.UserContext(), middleware.UserID(c), req)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	r.Patch("/missions/:id", func(c *fiber.Ctx) error {
		var req services.UpdateMissionInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		m, err := quests.UpdateMission(c.UserContext(), middleware.UserID(c), c.Params("id"), req)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(m)
	})

	r.Delete("/missions/:id", func(c *fiber.Ctx) error {
		if err := quests.DeleteMission(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return writeError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Daily / weekly hunts
	r.Get("/daily-hunts", func(c *fiber.Ctx) error {
		list, err := quests.ListDailyHunts(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(list)
	})

	r.Post("/daily-hunts", func(c *fiber.Ctx) error {
		var req services.CreateHuntInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
		h, err := quests.CreateDailyHunt(c.UserContext(), middleware.UserID(c), req)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(h)
	})

	r.Post("/daily-hunts/:id/complete", func(c *fiber.Ctx) error {
		res, err := completion.CompleteDailyHunt(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(res)
	})
}
