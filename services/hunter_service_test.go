package services

import (
	"strings"
	"testing"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
	"hunter-quest-system/repository/repotest"
)

func TestEnsureHunterCreatesOnce(t *testing.T) {
	repo, _ := repotest.New(t)
	s := NewHunterService(repo, discardLogger)
	ctx := t.Context()

	u, err := s.EnsureHunter(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Level != 1 || u.Rank != models.RankE || u.HunterClass != models.HunterClassFighter {
		t.Fatalf("unexpected new hunter %+v", u)
	}
	if _, err := repo.UpdateUser(ctx, "u1", map[string]any{"total_xp": 40, "current_xp": 40}); err != nil {
		t.Fatal(err)
	}

	again, err := s.EnsureHunter(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if again.TotalXP != 40 {
		t.Fatalf("existing hunter was reset: %+v", again)
	}
}

func TestGetHunterSnapshot(t *testing.T) {
	repo, _ := repotest.New(t)
	s := NewHunterService(repo, discardLogger)
	ctx := t.Context()
	repotest.SeedUser(t, repo, "u1")
	if _, err := repo.UpdateUser(ctx, "u1", map[string]any{"level": 2, "current_xp": 30, "total_xp": 130}); err != nil {
		t.Fatal(err)
	}

	h, err := s.GetHunter(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	// 30 of the 100 XP needed for level 3
	if h.XPToNextLevel != 70 || h.LevelProgressPercent != 30 {
		t.Fatalf("unexpected snapshot %+v", h)
	}
}

func TestUpdateProfile(t *testing.T) {
	repo, _ := repotest.New(t)
	s := NewHunterService(repo, discardLogger)
	ctx := t.Context()

	h, err := s.UpdateProfile(ctx, "u1", UpdateProfileInput{HunterName: ptr("  Jinwoo  "), HunterClass: ptr("MAGE")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if h.HunterName == nil || *h.HunterName != "Jinwoo" || h.HunterClass != models.HunterClassMage {
		t.Fatalf("unexpected profile %+v", h.User)
	}

	cases := []struct {
		name string
		in   UpdateProfileInput
	}{
		{"empty name", UpdateProfileInput{HunterName: ptr("   ")}},
		{"long name", UpdateProfileInput{HunterName: ptr(strings.Repeat("a", MaxHunterNameLength+1))}},
		{"unknown class", UpdateProfileInput{HunterClass: ptr("bard")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.UpdateProfile(ctx, "u1", tc.in); !apperr.HasCode(err, apperr.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// 30 multibyte runes still fit.
	if _, err := s.UpdateProfile(ctx, "u1", UpdateProfileInput{HunterName: ptr(strings.Repeat("성", MaxHunterNameLength))}); err != nil {
		t.Fatalf("rune-length name rejected: %v", err)
	}
}

func TestParseHunterClass(t *testing.T) {
	for raw, want := range map[string]models.HunterClass{
		"fighter":  models.HunterClassFighter,
		" Ranger ": models.HunterClassRanger,
		"tANK":     models.HunterClassTank,
	} {
		got, err := ParseHunterClass(raw)
		if err != nil || got != want {
			t.Errorf("ParseHunterClass(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
}

func TestLeaderboardOrderAndLimit(t *testing.T) {
	repo, _ := repotest.New(t)
	s := NewHunterService(repo, discardLogger)
	ctx := t.Context()
	for id, xp := range map[string]int{"a": 10, "b": 300, "c": 300, "d": 50} {
		repotest.SeedUser(t, repo, id)
		if _, err := repo.UpdateUser(ctx, id, map[string]any{"total_xp": xp}); err != nil {
			t.Fatal(err)
		}
	}

	top, err := s.Leaderboard(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, e := range top {
		ids = append(ids, e.UserID)
	}
	if strings.Join(ids, ",") != "b,c,d" || top[0].Position != 1 || top[2].Position != 3 {
		t.Fatalf("unexpected leaderboard %+v", top)
	}

	all, _ := s.Leaderboard(ctx, 0)
	if len(all) != 4 {
		t.Fatalf("default limit should include all 4, got %d", len(all))
	}
}
