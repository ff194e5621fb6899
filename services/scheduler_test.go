package services

import (
	"testing"
	"time"

	"hunter-quest-system/models"
	"hunter-quest-system/repository/repotest"
)

func TestResetDueHunts(t *testing.T) {
	repo, clock := repotest.New(t)
	sched := NewScheduler(repo, clock, time.UTC, discardLogger)
	f := newFixtureWith(t, repo, clock, false)
	ctx := t.Context()
	repotest.SeedUser(t, repo, "u1")

	// Wednesday 10:00: daily resets Thursday 00:00, weekly Monday 00:00
	daily := &models.DailyHunt{UserID: "u1", Title: "read", XPReward: 15, ResetDate: NextHuntReset(clock.Now(), false)}
	weekly := &models.DailyHunt{UserID: "u1", Title: "review", IsWeekly: true, XPReward: 50, ResetDate: NextHuntReset(clock.Now(), true)}
	for _, h := range []*models.DailyHunt{daily, weekly} {
		if err := repo.CreateDailyHunt(ctx, h); err != nil {
			t.Fatal(err)
		}
		if _, err := f.completion.CompleteDailyHunt(ctx, h.ID, "u1"); err != nil {
			t.Fatal(err)
		}
	}

	if n, err := sched.ResetDueHunts(ctx); err != nil || n != 0 {
		t.Fatalf("nothing is due yet: n=%d err=%v", n, err)
	}

	clock.Advance(14 * time.Hour) // Thursday 00:00
	n, err := sched.ResetDueHunts(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected the daily hunt to reset: n=%d err=%v", n, err)
	}
	d, _ := repo.GetDailyHunt(ctx, daily.ID)
	if d.IsCompleted || d.CompletedAt != nil || !d.ResetDate.Equal(time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("daily hunt not reopened: %+v", d)
	}
	w, _ := repo.GetDailyHunt(ctx, weekly.ID)
	if !w.IsCompleted {
		t.Fatal("weekly hunt reopened before its boundary")
	}

	// running again at the same instant is a no-op
	if n, _ := sched.ResetDueHunts(ctx); n != 0 {
		t.Fatalf("reset is not idempotent: %d", n)
	}

	if _, err := f.completion.CompleteDailyHunt(ctx, daily.ID, "u1"); err != nil {
		t.Fatalf("daily hunt should be claimable again: %v", err)
	}

	clock.Advance(4 * 24 * time.Hour) // Monday 00:00
	if _, err := sched.ResetDueHunts(ctx); err != nil {
		t.Fatal(err)
	}
	w, _ = repo.GetDailyHunt(ctx, weekly.ID)
	if w.IsCompleted || !w.ResetDate.Equal(time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("weekly hunt not reopened: %+v", w)
	}
}

func TestExpireOverdueQuests(t *testing.T) {
	repo, clock := repotest.New(t)
	sched := NewScheduler(repo, clock, time.UTC, discardLogger)
	ctx := t.Context()

	due := clock.Now().Add(time.Hour)
	q := &models.Quest{UserID: "u1", Title: "taxes", Rarity: models.RarityEpic, XPReward: 75, Status: models.QuestStatusActive, DueDate: &due}
	if err := repo.CreateQuest(ctx, q); err != nil {
		t.Fatal(err)
	}

	if n, _ := sched.ExpireOverdueQuests(ctx); n != 0 {
		t.Fatalf("quest expired early")
	}
	clock.Advance(2 * time.Hour)
	if n, _ := sched.ExpireOverdueQuests(ctx); n != 1 {
		t.Fatalf("expected one expiry, got %d", n)
	}
	got, _ := repo.GetQuest(ctx, q.ID)
	if got.Status != models.QuestStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestSchedulerStartsAndStops(t *testing.T) {
	repo, clock := repotest.New(t)
	sched := NewScheduler(repo, clock, time.UTC, discardLogger)
	sched.ExpireOverdue = true

	if err := sched.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := sched.Shutdown(); err != nil {
		t.Fatal(err)
	}
}
