package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
	"hunter-quest-system/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 500
	DefaultSummaryDays   = 7
	MaxSummaryDays       = 90

	// DefaultStreamOverlap is how far behind the newest delivered row each poll re-scans.
	// Rows are stamped before their transaction commits, so a row may become visible
	// after a newer one has already been streamed.
	DefaultStreamOverlap = 30 * time.Second
)

type ActivityService struct {
	Repo         repository.Repository
	Clock        clockwork.Clock
	Location     *time.Location
	Logger       *slog.Logger
	PollInterval time.Duration
	// StreamOverlap bounds how late a row may commit and still reach open streams.
	StreamOverlap time.Duration
}

func NewActivityService(repo repository.Repository, clock clockwork.Clock, loc *time.Location, logger *slog.Logger) *ActivityService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ActivityService{Repo: repo, Clock: clock, Location: loc, Logger: logger, PollInterval: 2 * time.Second, StreamOverlap: DefaultStreamOverlap}
}

// List returns the newest entries first. Out of range limits fall back to the default.
func (s *ActivityService) List(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	return s.Repo.ListActivityLog(ctx, userID, limit)
}

func (s *ActivityService) Range(ctx context.Context, userID string, start, end time.Time) ([]models.ActivityLog, error) {
	if end.Before(start) {
		return nil, apperr.Validation("endDate must not be before startDate")
	}
	return s.Repo.ListActivityLogByRange(ctx, userID, start, end)
}

var summaryPrinter = message.NewPrinter(language.English)

// Summary buckets XP per local calendar day for the last days days, oldest first.
// Days without activity are present with zero XP.
func (s *ActivityService) Summary(ctx context.Context, userID string, days int) ([]models.DailyXP, error) {
	if days <= 0 || days > MaxSummaryDays {
		days = DefaultSummaryDays
	}
	now := s.Clock.Now().In(s.Location)
	first := startOfDay(now).AddDate(0, 0, -(days - 1))

	entries, err := s.Repo.ListActivityLogByRange(ctx, userID, first, now)
	if err != nil {
		return nil, err
	}

	out := make([]models.DailyXP, days)
	index := make(map[string]int, days)
	for i := range out {
		day := first.AddDate(0, 0, i).Format(time.DateOnly)
		out[i].Day = day
		index[day] = i
	}
	for _, e := range entries {
		i, ok := index[e.CreatedAt.In(s.Location).Format(time.DateOnly)]
		if !ok {
			continue
		}
		out[i].XP += e.XPGained
		out[i].Actions++
	}
	for i := range out {
		out[i].XPPretty = summaryPrinter.Sprintf("%d XP", out[i].XP)
	}
	return out, nil
}

// StreamActivitySSE pushes new activity rows for the authenticated user as server-sent events.
func (s *ActivityService) StreamActivitySSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated", "code": apperr.CodeUnauthenticated})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// fasthttp cancels this context when the server shuts down
	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-done:
				cancel()
			case <-ctx.Done():
			}
		}()
		s.stream(ctx, userID, w)
	})
	return nil
}

// stream polls for rows newer than the cursor and writes them until the client goes away.
// Each poll re-reads StreamOverlap behind the cursor; ids already written are skipped.
func (s *ActivityService) stream(ctx context.Context, userID string, w *bufio.Writer) {
	cursor := s.Clock.Now()
	seen := make(map[string]time.Time)
	// rows already inside the window when the client connects are history
	if prior, err := s.Repo.ListActivityLogSince(ctx, userID, cursor.Add(-s.StreamOverlap)); err != nil {
		s.Logger.Warn("[SSE] init failed", "user_id", userID, "error", err)
	} else {
		for _, e := range prior {
			seen[e.ID] = e.CreatedAt
			if e.CreatedAt.After(cursor) {
				cursor = e.CreatedAt
			}
		}
	}

	_, _ = w.WriteString(":\n\n")
	if err := w.Flush(); err != nil {
		return
	}

	ticker := s.Clock.NewTicker(s.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			entries, err := s.Repo.ListActivityLogSince(ctx, userID, cursor.Add(-s.StreamOverlap))
			if err != nil {
				s.Logger.Warn("[SSE] query failed", "user_id", userID, "error", err)
				continue
			}
			fresh := 0
			for _, e := range entries {
				if _, ok := seen[e.ID]; ok {
					continue
				}
				seen[e.ID] = e.CreatedAt
				if e.CreatedAt.After(cursor) {
					cursor = e.CreatedAt
				}
				payload, _ := json.Marshal(e)
				fmt.Fprintf(w, "event: activity\nid: %s\ndata: %s\n\n", e.ID, payload)
				fresh++
			}
			floor := cursor.Add(-s.StreamOverlap)
			for id, at := range seen {
				if !at.After(floor) {
					delete(seen, id)
				}
			}
			if fresh == 0 {
				// keepalive; a failed flush means the client disconnected
				_, _ = w.WriteString(":\n\n")
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}
