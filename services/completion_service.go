package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
	"hunter-quest-system/repository"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CompletionService turns completions into XP, streaks, activity rows and cascades.
// Each call is one transaction; the user row is locked first so concurrent
// completions by the same hunter run one after another.
type CompletionService struct {
	Repo                repository.Repository
	Achievements        *AchievementService
	Clock               clockwork.Clock
	Location            *time.Location
	ApplyMissionBonusXP bool
	Logger              *slog.Logger

	tracer trace.Tracer
}

type CompletionOptions struct {
	Clock               clockwork.Clock
	Location            *time.Location
	ApplyMissionBonusXP bool
	Logger              *slog.Logger
}

func NewCompletionService(repo repository.Repository, achievements *AchievementService, opts CompletionOptions) *CompletionService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &CompletionService{
		Repo:                repo,
		Achievements:        achievements,
		Clock:               opts.Clock,
		Location:            opts.Location,
		ApplyMissionBonusXP: opts.ApplyMissionBonusXP,
		Logger:              opts.Logger,
		tracer:              otel.Tracer("hunter-quest-system/services"),
	}
}

type QuestCompletion struct {
	Quest        models.Quest             `json:"quest"`
	User         models.User              `json:"user"`
	Mission      *models.Mission          `json:"mission,omitempty"`
	Achievements []models.UserAchievement `json:"achievements,omitempty"`
}

type HuntCompletion struct {
	Hunt         models.DailyHunt         `json:"hunt"`
	User         models.User              `json:"user"`
	Achievements []models.UserAchievement `json:"achievements,omitempty"`
}

// completionState is threaded through the step list of one completion.
type completionState struct {
	tx   repository.Repository
	now  time.Time
	user models.User

	quest   *models.Quest
	hunt    *models.DailyHunt
	mission *models.Mission
	awarded []models.UserAchievement
}

type completionStep struct {
	name string
	run  func(ctx context.Context, st *completionState) error
}

// runSteps executes steps in order inside one transaction; the first failure rolls everything back.
func (s *CompletionService) runSteps(ctx context.Context, op, userID string, steps []completionStep) (*completionState, error) {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	var out *completionState
	err := s.Repo.WithinTx(ctx, func(tx repository.Repository) error {
		st := &completionState{tx: tx, now: s.Clock.Now().In(s.Location)}
		for _, step := range steps {
			if err := step.run(ctx, st); err != nil {
				span.SetAttributes(attribute.String("step.failed", step.name))
				return err
			}
		}
		out = st
		return nil
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return out, nil
}

func lockUserStep(userID string) completionStep {
	return completionStep{"lock_user", func(ctx context.Context, st *completionState) error {
		u, err := st.tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		st.user = *u
		return nil
	}}
}

func (s *CompletionService) awardXPStep(xp func(st *completionState) int64) completionStep {
	return completionStep{"apply_xp", func(ctx context.Context, st *completionState) error {
		u, err := ApplyXP(st.user, xp(st))
		if err != nil {
			return err
		}
		st.user = u
		return s.saveProgression(ctx, st)
	}}
}

func (s *CompletionService) streakStep() completionStep {
	return completionStep{"streak_tick", func(ctx context.Context, st *completionState) error {
		st.user = ApplyStreakTick(st.user, st.now)
		return s.saveProgression(ctx, st)
	}}
}

func (s *CompletionService) achievementStep() completionStep {
	return completionStep{"evaluate_achievements", func(ctx context.Context, st *completionState) error {
		if s.Achievements == nil {
			return nil
		}
		awarded, err := s.Achievements.Evaluate(ctx, st.tx, st.user)
		if err != nil {
			return err
		}
		st.awarded = awarded
		return nil
	}}
}

func (s *CompletionService) saveProgression(ctx context.Context, st *completionState) error {
	u, err := st.tx.UpdateUser(ctx, st.user.ID, progressionFields(st.user))
	if err != nil {
		return err
	}
	st.user = *u
	return nil
}

// CompleteQuest marks a quest completed and runs the award cascade.
func (s *CompletionService) CompleteQuest(ctx context.Context, questID, userID string) (*QuestCompletion, error) {
	steps := []completionStep{
		lockUserStep(userID),
		{"load_quest", func(ctx context.Context, st *completionState) error {
			q, err := st.tx.GetQuest(ctx, questID)
			if err != nil {
				return err
			}
			if q.UserID != userID {
				return apperr.Forbidden("quest belongs to another hunter")
			}
			switch q.Status {
			case models.QuestStatusCompleted:
				return apperr.Conflict("quest already completed")
			case models.QuestStatusFailed:
				return apperr.InvalidState("quest has expired")
			}
			st.quest = q
			return nil
		}},
		{"mark_quest_completed", func(ctx context.Context, st *completionState) error {
			q, err := st.tx.UpdateQuest(ctx, st.quest.ID, map[string]any{
				"status":       models.QuestStatusCompleted,
				"completed_at": st.now,
			})
			if err != nil {
				return err
			}
			st.quest = q
			return nil
		}},
		s.awardXPStep(func(st *completionState) int64 { return st.quest.XPReward }),
		s.streakStep(),
		{"log_quest_completed", func(ctx context.Context, st *completionState) error {
			_, err := st.tx.AppendActivityLog(ctx, userID, models.ActionQuestCompleted, st.quest.XPReward, map[string]any{
				"questId": st.quest.ID,
				"title":   st.quest.Title,
				"rarity":  string(st.quest.Rarity),
			})
			return err
		}},
		{"mission_cascade", s.cascadeMission},
		s.achievementStep(),
	}

	st, err := s.runSteps(ctx, "CompleteQuest", userID, steps)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("[Completion] quest completed",
		"user_id", userID, "quest_id", questID, "xp", st.quest.XPReward,
		"level", st.user.Level, "mission_completed", st.mission != nil)
	return &QuestCompletion{Quest: *st.quest, User: st.user, Mission: st.mission, Achievements: st.awarded}, nil
}

// cascadeMission completes the parent mission exactly once, when its last open quest closes.
func (s *CompletionService) cascadeMission(ctx context.Context, st *completionState) error {
	if st.quest.MissionID == nil {
		return nil
	}
	mission, err := st.tx.GetMission(ctx, *st.quest.MissionID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			// dangling reference; the quest itself still counts
			return nil
		}
		return err
	}
	if mission.Status == models.MissionStatusCompleted {
		return nil
	}
	quests, err := st.tx.ListQuestsByMission(ctx, mission.ID)
	if err != nil {
		return err
	}
	for _, q := range quests {
		if !q.IsCompleted() {
			return nil
		}
	}

	mission, err = st.tx.UpdateMission(ctx, mission.ID, map[string]any{
		"status":       models.MissionStatusCompleted,
		"completed_at": st.now,
	})
	if err != nil {
		return err
	}
	st.mission = mission

	if s.ApplyMissionBonusXP {
		u, err := ApplyXP(st.user, mission.TotalXPReward)
		if err != nil {
			return err
		}
		st.user = u
		if err := s.saveProgression(ctx, st); err != nil {
			return err
		}
	}
	_, err = st.tx.AppendActivityLog(ctx, st.user.ID, models.ActionMissionCompleted, mission.TotalXPReward, map[string]any{
		"missionId": mission.ID,
		"title":     mission.Title,
	})
	return err
}

// CompleteDailyHunt claims a hunt for the current cycle.
func (s *CompletionService) CompleteDailyHunt(ctx context.Context, huntID, userID string) (*HuntCompletion, error) {
	steps := []completionStep{
		lockUserStep(userID),
		{"load_hunt", func(ctx context.Context, st *completionState) error {
			h, err := st.tx.GetDailyHunt(ctx, huntID)
			if err != nil {
				return err
			}
			if h.UserID != userID {
				return apperr.Forbidden("hunt belongs to another hunter")
			}
			if h.IsCompleted {
				return apperr.Conflict("hunt already completed for this cycle")
			}
			st.hunt = h
			return nil
		}},
		{"mark_hunt_completed", func(ctx context.Context, st *completionState) error {
			h, err := st.tx.UpdateDailyHunt(ctx, st.hunt.ID, map[string]any{
				"is_completed": true,
				"completed_at": st.now,
			})
			if err != nil {
				return err
			}
			st.hunt = h
			return nil
		}},
		s.awardXPStep(func(st *completionState) int64 { return st.hunt.XPReward }),
		s.streakStep(),
		{"log_hunt_completed", func(ctx context.Context, st *completionState) error {
			action := models.ActionDailyHuntCompleted
			if st.hunt.IsWeekly {
				action = models.ActionWeeklyHuntCompleted
			}
			_, err := st.tx.AppendActivityLog(ctx, userID, action, st.hunt.XPReward, map[string]any{
				"huntId": st.hunt.ID,
				"title":  st.hunt.Title,
			})
			return err
		}},
		s.achievementStep(),
	}

	st, err := s.runSteps(ctx, "CompleteDailyHunt", userID, steps)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("[Completion] hunt completed", "user_id", userID, "hunt_id", huntID, "xp", st.hunt.XPReward)
	return &HuntCompletion{Hunt: *st.hunt, User: st.user, Achievements: st.awarded}, nil
}

// UnlockSkill checks level and prerequisite gates before recording the unlock.
func (s *CompletionService) UnlockSkill(ctx context.Context, userID, skillID string) (*models.UserSkill, error) {
	var unlocked *models.UserSkill
	var skill *models.Skill
	steps := []completionStep{
		lockUserStep(userID),
		{"check_eligibility", func(ctx context.Context, st *completionState) error {
			var err error
			if skill, err = st.tx.GetSkill(ctx, skillID); err != nil {
				return err
			}
			owned, err := st.tx.ListUserSkills(ctx, userID)
			if err != nil {
				return err
			}
			has := make(map[string]bool, len(owned))
			for _, us := range owned {
				has[us.SkillID] = true
			}
			if has[skill.ID] {
				return apperr.Conflict("skill already unlocked")
			}
			if st.user.Level < skill.RequiredLevel {
				return apperr.InvalidState(fmt.Sprintf("requires level %d", skill.RequiredLevel))
			}
			if skill.PrerequisiteSkillID != nil && !has[*skill.PrerequisiteSkillID] {
				return apperr.InvalidState("prerequisite skill not unlocked")
			}
			return nil
		}},
		{"insert_user_skill", func(ctx context.Context, st *completionState) error {
			var err error
			unlocked, err = st.tx.InsertUserSkill(ctx, userID, skill.ID)
			return err
		}},
		{"log_skill_unlocked", func(ctx context.Context, st *completionState) error {
			_, err := st.tx.AppendActivityLog(ctx, userID, models.ActionSkillUnlocked, 0, map[string]any{
				"skillId": skill.ID,
				"name":    skill.Name,
			})
			return err
		}},
		s.achievementStep(),
	}

	if _, err := s.runSteps(ctx, "UnlockSkill", userID, steps); err != nil {
		return nil, err
	}
	s.Logger.Info("[Completion] skill unlocked", "user_id", userID, "skill", skill.Code)
	return unlocked, nil
}

// UnlockAchievement grants an achievement regardless of its requirement.
func (s *CompletionService) UnlockAchievement(ctx context.Context, userID, achievementID string) (*models.UserAchievement, error) {
	var ua *models.UserAchievement
	steps := []completionStep{
		lockUserStep(userID),
		{"unlock_achievement", func(ctx context.Context, st *completionState) error {
			var err error
			ua, err = s.Achievements.Unlock(ctx, st.tx, userID, achievementID)
			return err
		}},
	}
	if _, err := s.runSteps(ctx, "UnlockAchievement", userID, steps); err != nil {
		return nil, err
	}
	return ua, nil
}
