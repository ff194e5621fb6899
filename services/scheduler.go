// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hunter-quest-system/repository"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Scheduler reopens hunts at their reset boundary and optionally fails overdue quests.
type Scheduler struct {
	Repo              repository.Repository
	Clock             clockwork.Clock
	Location          *time.Location
	Logger            *slog.Logger
	HuntResetInterval time.Duration
	ExpireOverdue     bool

	sched gocron.Scheduler
}

func NewScheduler(repo repository.Repository, clock clockwork.Clock, loc *time.Location, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Repo:              repo,
		Clock:             clock,
		Location:          loc,
		Logger:            logger,
		HuntResetInterval: time.Minute,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(s.Clock),
		gocron.WithLocation(s.Location),
	)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.HuntResetInterval),
		gocron.NewTask(func() {
			if _, err := s.ResetDueHunts(ctx); err != nil {
				s.Logger.Error("[Scheduler] hunt reset failed", "error", err)
			}
		}),
		gocron.WithName("hunt-reset"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule hunt reset: %w", err)
	}

	if s.ExpireOverdue {
		_, err = sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
			gocron.NewTask(func() {
				if _, err := s.ExpireOverdueQuests(ctx); err != nil {
					s.Logger.Error("[Scheduler] quest expiry failed", "error", err)
				}
			}),
			gocron.WithName("quest-expiry"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("schedule quest expiry: %w", err)
		}
	}

	s.sched = sched
	sched.Start()
	s.Logger.Info("[Scheduler] started", "hunt_reset_interval", s.HuntResetInterval, "expire_overdue", s.ExpireOverdue)
	return nil
}

func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// ResetDueHunts makes every hunt past its boundary claimable again and moves the
// boundary to the next one after now. Hunts not yet due are left alone.
func (s *Scheduler) ResetDueHunts(ctx context.Context) (int, error) {
	now := s.Clock.Now().In(s.Location)
	reset := 0
	err := s.Repo.WithinTx(ctx, func(tx repository.Repository) error {
		hunts, err := tx.ListDueDailyHunts(ctx, now)
		if err != nil {
			return err
		}
		for _, h := range hunts {
			_, err := tx.UpdateDailyHunt(ctx, h.ID, map[string]any{
				"is_completed": false,
				"completed_at": nil,
				"reset_date":   NextHuntReset(now, h.IsWeekly),
			})
			if err != nil {
				return err
			}
			reset++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if reset > 0 {
		s.Logger.Info("[Scheduler] hunts reset", "count", reset)
	}
	return reset, nil
}

func (s *Scheduler) ExpireOverdueQuests(ctx context.Context) (int64, error) {
	n, err := s.Repo.ExpireOverdueQuests(ctx, s.Clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info("[Scheduler] overdue quests failed", "count", n)
	}
	return n, nil
}
