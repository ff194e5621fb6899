package services

import (
	"testing"
	"time"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
)

func newHunter() models.User {
	return models.User{ID: "u1", Level: 1, Rank: models.RankE}
}

func TestApplyXPLevelBoundary(t *testing.T) {
	u := newHunter()
	u.CurrentXP, u.TotalXP = 95, 95

	got, err := ApplyXP(u, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != 2 || got.CurrentXP != 5 || got.TotalXP != 105 {
		t.Fatalf("expected L2/5/105, got L%d/%d/%d", got.Level, got.CurrentXP, got.TotalXP)
	}
}

func TestApplyXPMultiLevel(t *testing.T) {
	got, err := ApplyXP(newHunter(), 250)
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != 3 || got.CurrentXP != 50 {
		t.Fatalf("expected L3/50, got L%d/%d", got.Level, got.CurrentXP)
	}
}

func TestApplyXPInvariantHolds(t *testing.T) {
	u := newHunter()
	for _, xp := range []int64{0, 15, 35, 75, 150, 99, 1, 100, 1234} {
		var err error
		if u, err = ApplyXP(u, xp); err != nil {
			t.Fatal(err)
		}
		if u.TotalXP != int64(u.Level-1)*XPPerLevel+u.CurrentXP {
			t.Fatalf("invariant broken after +%d: %+v", xp, u)
		}
		if u.CurrentXP < 0 || u.CurrentXP >= XPPerLevel {
			t.Fatalf("current xp out of range: %d", u.CurrentXP)
		}
		if u.Rank != RankForLevel(u.Level) {
			t.Fatalf("rank %s does not match level %d", u.Rank, u.Level)
		}
	}
}

func TestApplyXPRejectsNegative(t *testing.T) {
	u := newHunter()
	got, err := ApplyXP(u, -1)
	if !apperr.HasCode(err, apperr.CodeValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
	if got != u {
		t.Fatal("user must be unchanged on rejection")
	}
}

func TestApplyXPRankUp(t *testing.T) {
	u := newHunter()
	u.Level, u.CurrentXP, u.TotalXP = 19, 90, 1890

	got, _ := ApplyXP(u, 15)
	if got.Level != 20 || got.Rank != models.RankB {
		t.Fatalf("expected L20 rank B, got L%d %s", got.Level, got.Rank)
	}
}

func TestRankForLevel(t *testing.T) {
	cases := []struct {
		level int
		want  models.Rank
	}{
		{0, models.RankE},
		{1, models.RankE},
		{4, models.RankE},
		{5, models.RankD},
		{10, models.RankC},
		{19, models.RankC},
		{20, models.RankB},
		{34, models.RankB},
		{35, models.RankA},
		{50, models.RankS},
		{74, models.RankS},
		{75, models.RankSS},
		{500, models.RankSS},
	}
	for _, tc := range cases {
		if got := RankForLevel(tc.level); got != tc.want {
			t.Errorf("level %d: expected %s, got %s", tc.level, tc.want, got)
		}
	}
}

func TestXPForRarity(t *testing.T) {
	cases := map[models.QuestRarity]int64{
		models.RarityCommon:    15,
		models.RarityRare:      35,
		models.RarityEpic:      75,
		models.RarityLegendary: 150,
		"mythic":               15,
	}
	for r, want := range cases {
		if got := XPForRarity(r); got != want {
			t.Errorf("%s: expected %d, got %d", r, want, got)
		}
	}
}

func TestLevelHelpers(t *testing.T) {
	if LevelForTotalXP(0) != 1 || LevelForTotalXP(99) != 1 || LevelForTotalXP(100) != 2 || LevelForTotalXP(250) != 3 {
		t.Fatal("LevelForTotalXP off")
	}
	u := models.User{Level: 3, CurrentXP: 40}
	if XPToNextLevel(u) != 60 {
		t.Fatalf("expected 60 to next level, got %d", XPToNextLevel(u))
	}
	if LevelProgressPercent(u) != 40 {
		t.Fatalf("expected 40%%, got %d", LevelProgressPercent(u))
	}
}

func TestApplyStreakTick(t *testing.T) {
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	at := func(d time.Time) *time.Time { return &d }

	cases := []struct {
		name        string
		last        *time.Time
		streak      int
		longest     int
		wantStreak  int
		wantLongest int
	}{
		{"first activity", nil, 0, 0, 1, 1},
		{"yesterday late", at(time.Date(2025, 1, 14, 23, 59, 0, 0, time.UTC)), 3, 3, 4, 4},
		{"yesterday early", at(time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC)), 3, 5, 4, 5},
		{"same day", at(time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)), 3, 5, 3, 5},
		{"two days ago", at(time.Date(2025, 1, 13, 23, 0, 0, 0, time.UTC)), 9, 9, 1, 9},
		{"clock skew ahead", at(time.Date(2025, 1, 16, 1, 0, 0, 0, time.UTC)), 2, 2, 2, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := newHunter()
			u.LastActiveDate, u.CurrentStreak, u.LongestStreak = tc.last, tc.streak, tc.longest

			got := ApplyStreakTick(u, now)
			if got.CurrentStreak != tc.wantStreak || got.LongestStreak != tc.wantLongest {
				t.Fatalf("expected %d/%d, got %d/%d", tc.wantStreak, tc.wantLongest, got.CurrentStreak, got.LongestStreak)
			}
			if got.LastActiveDate == nil || !got.LastActiveDate.Equal(now) {
				t.Fatalf("last active not stamped: %v", got.LastActiveDate)
			}
		})
	}
}

func TestApplyStreakTickUsesLocalDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2025-01-15 23:30 UTC is already the 16th in Tokyo
	last := time.Date(2025, 1, 15, 1, 0, 0, 0, tokyo)
	now := time.Date(2025, 1, 15, 23, 30, 0, 0, time.UTC).In(tokyo)

	u := newHunter()
	u.LastActiveDate, u.CurrentStreak, u.LongestStreak = &last, 1, 1
	got := ApplyStreakTick(u, now)
	if got.CurrentStreak != 2 {
		t.Fatalf("expected streak to continue across the local midnight, got %d", got.CurrentStreak)
	}
}

func TestLongestStreakNeverDecreases(t *testing.T) {
	u := newHunter()
	day := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	gaps := []int{1, 1, 1, 3, 1, 0, 1, 5, 1}
	longest := 0
	for _, g := range gaps {
		day = day.AddDate(0, 0, g)
		u = ApplyStreakTick(u, day)
		if u.LongestStreak < longest {
			t.Fatalf("longest streak went down: %d -> %d", longest, u.LongestStreak)
		}
		if u.LongestStreak < u.CurrentStreak {
			t.Fatalf("longest %d below current %d", u.LongestStreak, u.CurrentStreak)
		}
		longest = u.LongestStreak
	}
}

func TestNextHuntReset(t *testing.T) {
	wed := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	mon := time.Date(2025, 1, 13, 10, 0, 0, 0, time.UTC)
	sun := time.Date(2025, 1, 19, 23, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		now    time.Time
		weekly bool
		want   time.Time
	}{
		{"daily", wed, false, time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)},
		{"weekly midweek", wed, true, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
		{"weekly on monday", mon, true, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
		{"weekly on sunday", sun, true, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := NextHuntReset(tc.now, tc.weekly); !got.Equal(tc.want) {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}
