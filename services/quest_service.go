package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
	"hunter-quest-system/repository"

	"github.com/jonboulle/clockwork"
)

// QuestService owns quest, mission and hunt CRUD. Completion lives in CompletionService.
type QuestService struct {
	Repo     repository.Repository
	Clock    clockwork.Clock
	Location *time.Location
	Logger   *slog.Logger
}

func NewQuestService(repo repository.Repository, clock clockwork.Clock, loc *time.Location, logger *slog.Logger) *QuestService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &QuestService{Repo: repo, Clock: clock, Location: loc, Logger: logger}
}

type CreateQuestInput struct {
	Title           string             `json:"title"`
	Description     *string            `json:"description"`
	Rarity          models.QuestRarity `json:"rarity"`
	MissionID       *string            `json:"mission_id"`
	IsBossObjective bool               `json:"is_boss_objective"`
	DueDate         *time.Time         `json:"due_date"`
}

// UpdateQuestInput is a partial update. An empty MissionID detaches the quest.
type UpdateQuestInput struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	MissionID       *string    `json:"mission_id"`
	IsBossObjective *bool      `json:"is_boss_objective"`
	DueDate         *time.Time `json:"due_date"`
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation("title is required")
	}
	return title, nil
}

// ownMission checks that missionID exists and belongs to userID.
func ownMission(ctx context.Context, repo repository.Repository, userID, missionID string) (*models.Mission, error) {
	m, err := repo.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, apperr.Forbidden("mission belongs to another hunter")
	}
	return m, nil
}

func (s *QuestService) ListQuests(ctx context.Context, userID string) ([]models.Quest, error) {
	return s.Repo.ListQuestsByUser(ctx, userID)
}

func (s *QuestService) GetQuest(ctx context.Context, userID, questID string) (*models.Quest, error) {
	q, err := s.Repo.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, apperr.Forbidden("quest belongs to another hunter")
	}
	return q, nil
}

// CreateQuest snapshots the rarity reward onto the quest.
func (s *QuestService) CreateQuest(ctx context.Context, userID string, in CreateQuestInput) (*models.Quest, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.Rarity == "" {
		in.Rarity = models.RarityCommon
	}
	if !slices.Contains(models.QuestRarities, in.Rarity) {
		return nil, apperr.Validation(fmt.Sprintf("unknown rarity %q", in.Rarity))
	}
	if in.MissionID != nil && *in.MissionID == "" {
		in.MissionID = nil
	}

	q := &models.Quest{
		UserID:          userID,
		Title:           title,
		Description:     in.Description,
		Rarity:          in.Rarity,
		XPReward:        XPForRarity(in.Rarity),
		Status:          models.QuestStatusActive,
		MissionID:       in.MissionID,
		IsBossObjective: in.IsBossObjective,
		DueDate:         in.DueDate,
	}
	err = s.Repo.WithinTx(ctx, func(tx repository.Repository) error {
		if q.MissionID != nil {
			if _, err := ownMission(ctx, tx, userID, *q.MissionID); err != nil {
				return err
			}
		}
		if err := tx.CreateQuest(ctx, q); err != nil {
			return err
		}
		_, err := tx.AppendActivityLog(ctx, userID, models.ActionQuestCreated, 0, map[string]any{
			"questId": q.ID,
			"title":   q.Title,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateQuest never touches status or xp_reward.
func (s *QuestService) UpdateQuest(ctx context.Context, userID, questID string, in UpdateQuestInput) (*models.Quest, error) {
	var out *models.Quest
	err := s.Repo.WithinTx(ctx, func(tx repository.Repository) error {
		q, err := tx.GetQuest(ctx, questID)
		if err != nil {
			return err
		}
		if q.UserID != userID {
			return apperr.Forbidden("quest belongs to another hunter")
		}

		fields := map[string]any{}
		if in.Title != nil {
			title, err := cleanTitle(*in.Title)
			if err != nil {
				return err
			}
			fields["title"] = title
		}
		if in.Description != nil {
			fields["description"] = *in.Description
		}
		if in.IsBossObjective != nil {
			fields["is_boss_objective"] = *in.IsBossObjective
		}
		if in.DueDate != nil {
			fields["due_date"] = *in.DueDate
		}
		if in.MissionID != nil {
			if *in.MissionID == "" {
				fields["mission_id"] = nil
			} else {
				if _, err := ownMission(ctx, tx, userID, *in.MissionID); err != nil {
					return err
				}
				fields["mission_id"] = *in.MissionID
			}
		}
		if len(fields) == 0 {
			out = q
			return nil
		}
		out, err = tx.UpdateQuest(ctx, questID, fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *QuestService) DeleteQuest(ctx context.Context, userID, questID string) error {
	return s.Repo.WithinTx(ctx, func(tx repository.Repository) error {
		q, err := tx.GetQuest(ctx, questID)
		if err != nil {
			return err
		}
		if q.UserID != userID {
			return apperr.Forbidden("quest belongs to another hunter")
		}
		return tx.DeleteQuest(ctx, questID)
	})
}

// --- Missions ---

type CreateMissionInput struct {
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	Difficulty    int        `json:"difficulty"`
	TotalXPReward int64      `json:"total_xp_reward"`
	Deadline      *time.Time `json:"deadline"`
}

type UpdateMissionInput struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Difficulty    *int       `json:"difficulty"`
	TotalXPReward *int64     `json:"total_xp_reward"`
	Deadline      *time.Time `json:"deadline"`
}

func validDifficulty(d int) error {
	if d < models.MinMissionDifficulty || d > models.MaxMissionDifficulty {
		return apperr.Validation(fmt.Sprintf("difficulty must be between %d and %d", models.MinMissionDifficulty, models.MaxMissionDifficulty))
	}
	return nil
}

func (s *QuestService) ListMissions(ctx context.Context, userID string) ([]models.Mission, error) {
	return s.Repo.ListMissionsByUser(ctx, userID)
}

func (s *QuestService) GetMission(ctx context.Context, userID, missionID string) (*models.MissionWithQuests, error) {
	m, err := ownMission(ctx, s.Repo, userID, missionID)
	if err != nil {
		return nil, err
	}
	quests, err := s.Repo.ListQuestsByMission(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return &models.MissionWithQuests{Mission: *m, Quests: quests}, nil
}

func (s *QuestService) CreateMission(ctx context.Context, userID string, in CreateMissionInput) (*models.Mission, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.Difficulty == 0 {
		in.Difficulty = models.MinMissionDifficulty
	}
	if err := validDifficulty(in.Difficulty); err != nil {
		return nil, err
	}
	if in.TotalXPReward < 0 {
		return nil, apperr.Validation("total_xp_reward must not be negative")
	}

	m := &models.Mission{
		UserID:        userID,
		Title:         title,
		Description:   in.Description,
		Difficulty:    in.Difficulty,
		Status:        models.MissionStatusActive,
		TotalXPReward: in.TotalXPReward,
		Deadline:      in.Deadline,
	}
	err = s.Repo.WithinTx(ctx, func(tx repository.Repository) error {
		if err := tx.CreateMission(ctx, m); err != nil {
			return err
		}
		_, err := tx.AppendActivityLog(ctx, userID, models.ActionMissionCreated, 0, map[string]any{
			"missionId": m.ID,
			"title":     m.Title,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *QuestService) UpdateMission(ctx context.Context, userID, missionID string, in UpdateMissionInput) (*models.Mission, error) {
	var out *models.Mission
	err := s.Repo.WithinTx(ctx, func(tx repository.Repository) error {
		m, err := ownMission(ctx, tx, userID, missionID)
		if err != nil {
			return err
		}
		fields := map[string]any{}
		if in.Title != nil {
			title, err := cleanTitle(*in.Title)
			if err != nil {
				return err
			}
			fields["title"] = title
		}
		if in.Description != nil {
			fields["description"] = *in.Description
		}
		if in.Difficulty != nil {
			if err := validDifficulty(*in.Difficulty); err != nil {
				return err
			}
			fields["difficulty"] = *in.Difficulty
		}
		if in.TotalXPReward != nil {
			if *in.TotalXPReward < 0 {
				return apperr.Validation("total_xp_reward must not be negative")
			}
			fields["total_xp_reward"] = *in.TotalXPReward
		}
		if in.Deadline != nil {
			fields["deadline"] = *in.Deadline
		}
		if len(fields) == 0 {
			out = m
			return nil
		}
		out, err = tx.UpdateMission(ctx, missionID, fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMission also deletes the mission's quests.
func (s *QuestService) DeleteMission(ctx context.Context, userID, missionID string) error {
	return s.Repo.WithinTx(ctx, func(tx repository.Repository) error {
		if _, err := ownMission(ctx, tx, userID, missionID); err != nil {
			return err
		}
		return tx.DeleteMission(ctx, missionID)
	})
}

// --- Hunts ---

type CreateHuntInput struct {
	Title     string     `json:"title"`
	IsWeekly  bool       `json:"is_weekly"`
	XPReward  *int64     `json:"xp_reward"`
	ResetDate *time.Time `json:"reset_date"`
}

func (s *QuestService) ListDailyHunts(ctx context.Context, userID string) ([]models.DailyHunt, error) {
	return s.Repo.ListDailyHuntsByUser(ctx, userID)
}

// CreateDailyHunt computes the first reset boundary when the caller leaves it out.
func (s *QuestService) CreateDailyHunt(ctx context.Context, userID string, in CreateHuntInput) (*models.DailyHunt, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	xp := int64(models.DefaultHuntXPReward)
	if in.XPReward != nil {
		if *in.XPReward < 0 {
			return nil, apperr.Validation("xp_reward must not be negative")
		}
		xp = *in.XPReward
	}
	reset := NextHuntReset(s.Clock.Now().In(s.Location), in.IsWeekly)
	if in.ResetDate != nil {
		reset = *in.ResetDate
	}

	h := &models.DailyHunt{
		UserID:    userID,
		Title:     title,
		IsWeekly:  in.IsWeekly,
		XPReward:  xp,
		ResetDate: reset,
	}
	if err := s.Repo.CreateDailyHunt(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}
