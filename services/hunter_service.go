package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
	"hunter-quest-system/repository"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MaxHunterNameLength     = 30
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

type HunterService struct {
	Repo   repository.Repository
	Logger *slog.Logger
}

func NewHunterService(repo repository.Repository, logger *slog.Logger) *HunterService {
	return &HunterService{Repo: repo, Logger: logger}
}

// HunterSnapshot is the user plus the derived numbers the dashboard shows.
type HunterSnapshot struct {
	models.User
	XPToNextLevel        int64 `json:"xp_to_next_level"`
	LevelProgressPercent int   `json:"level_progress_percent"`
}

func snapshot(u models.User) *HunterSnapshot {
	return &HunterSnapshot{User: u, XPToNextLevel: XPToNextLevel(u), LevelProgressPercent: LevelProgressPercent(u)}
}

// EnsureHunter returns the user, creating a fresh level 1 hunter on first sight.
func (s *HunterService) EnsureHunter(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.Repo.GetUser(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, err
	}

	u = &models.User{
		ID:          userID,
		HunterClass: models.HunterClassFighter,
		Level:       1,
		Rank:        models.RankE,
	}
	if err := s.Repo.CreateUser(ctx, u); err != nil {
		// another request created it first
		if apperr.HasCode(err, apperr.CodeConflict) {
			return s.Repo.GetUser(ctx, userID)
		}
		return nil, err
	}
	s.Logger.Info("[Hunters] new hunter", "user_id", userID)
	return u, nil
}

func (s *HunterService) GetHunter(ctx context.Context, userID string) (*HunterSnapshot, error) {
	u, err := s.EnsureHunter(ctx, userID)
	if err != nil {
		return nil, err
	}
	return snapshot(*u), nil
}

type UpdateProfileInput struct {
	HunterName  *string `json:"hunter_name"`
	HunterClass *string `json:"hunter_class"`
}

var classCaser = cases.Title(language.English)

// ParseHunterClass accepts any casing ("mage", "MAGE") of a known class.
func ParseHunterClass(raw string) (models.HunterClass, error) {
	c := models.HunterClass(classCaser.String(strings.TrimSpace(raw)))
	if !slices.Contains(models.HunterClasses, c) {
		return "", apperr.Validation(fmt.Sprintf("unknown hunter class %q", raw))
	}
	return c, nil
}

func (s *HunterService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*HunterSnapshot, error) {
	fields := map[string]any{}
	if in.HunterName != nil {
		name := strings.TrimSpace(*in.HunterName)
		if n := utf8.RuneCountInString(name); n < 1 || n > MaxHunterNameLength {
			return nil, apperr.Validation(fmt.Sprintf("hunter_name must be 1-%d characters", MaxHunterNameLength))
		}
		fields["hunter_name"] = name
	}
	if in.HunterClass != nil {
		class, err := ParseHunterClass(*in.HunterClass)
		if err != nil {
			return nil, err
		}
		fields["hunter_class"] = class
	}

	u, err := s.EnsureHunter(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if u, err = s.Repo.UpdateUser(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return snapshot(*u), nil
}

type LeaderboardEntry struct {
	Position    int                `json:"position"`
	UserID      string             `json:"user_id"`
	HunterName  *string            `json:"hunter_name,omitempty"`
	HunterClass models.HunterClass `json:"hunter_class"`
	Level       int                `json:"level"`
	Rank        models.Rank        `json:"rank"`
	TotalXP     int64              `json:"total_xp"`
}

// Leaderboard lists hunters by total XP. Only public profile fields are exposed.
func (s *HunterService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > MaxLeaderboardLimit {
		limit = DefaultLeaderboardLimit
	}
	users, err := s.Repo.ListTopUsers(ctx, limit)
	if err != nil {
		return nil, err
	}
	res := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		res[i] = LeaderboardEntry{
			Position:    i + 1,
			UserID:      u.ID,
			HunterName:  u.HunterName,
			HunterClass: u.HunterClass,
			Level:       u.Level,
			Rank:        u.Rank,
			TotalXP:     u.TotalXP,
		}
	}
	return res, nil
}
