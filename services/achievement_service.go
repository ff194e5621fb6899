package services

import (
	"context"
	"log/slog"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
	"hunter-quest-system/repository"
)

type AchievementService struct {
	Repo      repository.Repository
	AutoAward bool
	Logger    *slog.Logger
}

func NewAchievementService(repo repository.Repository, autoAward bool, logger *slog.Logger) *AchievementService {
	return &AchievementService{Repo: repo, AutoAward: autoAward, Logger: logger}
}

func (s *AchievementService) List(ctx context.Context) ([]models.Achievement, error) {
	return s.Repo.ListAchievements(ctx)
}

func (s *AchievementService) ListUnlocked(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	return s.Repo.ListUserAchievements(ctx, userID)
}

// hunterStats is the snapshot requirement maps are checked against.
type hunterStats map[string]int64

func (s *AchievementService) loadStats(ctx context.Context, tx repository.Repository, u models.User) (hunterStats, error) {
	quests, err := tx.CountQuestsByStatus(ctx, u.ID, models.QuestStatusCompleted)
	if err != nil {
		return nil, err
	}
	missions, err := tx.CountMissionsByStatus(ctx, u.ID, models.MissionStatusCompleted)
	if err != nil {
		return nil, err
	}
	hunts, err := tx.CountActivity(ctx, u.ID, models.ActionDailyHuntCompleted, models.ActionWeeklyHuntCompleted)
	if err != nil {
		return nil, err
	}
	skills, err := tx.ListUserSkills(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return hunterStats{
		models.RequirementLevel:             int64(u.Level),
		models.RequirementTotalXP:           u.TotalXP,
		models.RequirementCurrentStreak:     int64(u.CurrentStreak),
		models.RequirementLongestStreak:     int64(u.LongestStreak),
		models.RequirementQuestsCompleted:   quests,
		models.RequirementMissionsCompleted: missions,
		models.RequirementHuntsCompleted:    hunts,
		models.RequirementSkillsUnlocked:    int64(len(skills)),
	}, nil
}

// meetsRequirement is true only when every key is known and satisfied.
// Empty or partly unknown requirements never auto-award.
func meetsRequirement(stats hunterStats, req map[string]int64) bool {
	if len(req) == 0 {
		return false
	}
	for key, required := range req {
		have, known := stats[key]
		if !known || have < required {
			return false
		}
	}
	return true
}

// Evaluate awards every achievement the user now qualifies for, inside tx.
func (s *AchievementService) Evaluate(ctx context.Context, tx repository.Repository, u models.User) ([]models.UserAchievement, error) {
	if !s.AutoAward {
		return nil, nil
	}
	catalog, err := tx.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := tx.ListUserAchievements(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(owned))
	for _, ua := range owned {
		have[ua.AchievementID] = true
	}

	var stats hunterStats
	var awarded []models.UserAchievement
	for _, a := range catalog {
		if have[a.ID] || len(a.Requirement) == 0 {
			continue
		}
		if stats == nil {
			if stats, err = s.loadStats(ctx, tx, u); err != nil {
				return nil, err
			}
		}
		if !meetsRequirement(stats, a.Requirement) {
			continue
		}
		ua, err := s.unlock(ctx, tx, u.ID, a)
		if err != nil {
			return nil, err
		}
		awarded = append(awarded, *ua)
		s.Logger.Info("[Achievements] awarded", "user_id", u.ID, "achievement", a.Code)
	}
	return awarded, nil
}

func (s *AchievementService) unlock(ctx context.Context, tx repository.Repository, userID string, a models.Achievement) (*models.UserAchievement, error) {
	ua, err := tx.InsertUserAchievement(ctx, userID, a.ID)
	if err != nil {
		return nil, err
	}
	details := map[string]any{"achievementId": a.ID, "name": a.Name}
	if _, err := tx.AppendActivityLog(ctx, userID, models.ActionAchievementUnlocked, 0, details); err != nil {
		return nil, err
	}
	return ua, nil
}

// Unlock grants an achievement by hand (admin grant or a manual-only requirement).
func (s *AchievementService) Unlock(ctx context.Context, tx repository.Repository, userID, achievementID string) (*models.UserAchievement, error) {
	a, err := tx.GetAchievement(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	owned, err := tx.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, ua := range owned {
		if ua.AchievementID == a.ID {
			return nil, apperr.Conflict("achievement already unlocked")
		}
	}
	return s.unlock(ctx, tx, userID, *a)
}
