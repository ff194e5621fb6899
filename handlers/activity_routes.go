package handlers

import (
	"log/slog"
	"time"

	"hunter-quest-system/middleware"
	"hunter-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

// parseBound accepts RFC 3339 timestamps or plain dates. A plain end date covers the whole day.
func parseBound(raw string, end bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false
	}
	if end {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, true
}

func setupActivityRoutes(r fiber.Router, activity *services.ActivityService, log *slog.Logger) {
	r.Get("/activity-log", func(c *fiber.Ctx) error {
		entries, err := activity.List(c.UserContext(), middleware.UserID(c), c.QueryInt("limit", services.DefaultActivityLimit))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(entries)
	})

	r.Get("/activity-log/range", func(c *fiber.Ctx) error {
		start, ok := parseBound(c.Query("startDate"), false)
		if !ok {
			return badRequest(c, "startDate must be RFC 3339 or YYYY-MM-DD")
		}
		end, ok := parseBound(c.Query("endDate"), true)
		if !ok {
			return badRequest(c, "endDate must be RFC 3339 or YYYY-MM-DD")
		}
		entries, err := activity.Range(c.UserContext(), middleware.UserID(c), start, end)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(entries)
	})

	r.Get("/activity-log/summary", func(c *fiber.Ctx) error {
		days, err := activity.Summary(c.UserContext(), middleware.UserID(c), c.QueryInt("days", services.DefaultSummaryDays))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(days)
	})
}
