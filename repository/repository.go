package repository

import (
	"context"
	"time"

	"hunter-quest-system/models"
)

// Repository is the persistence contract consumed by the services.
// Getters return an apperr NOT_FOUND error when the row is absent.
//
// WithinTx runs fn against a Repository bound to one database transaction:
// everything fn writes commits together or not at all. Calling WithinTx on a
// transactional Repository reuses the open transaction.
type Repository interface {
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	// Users
	GetUser(ctx context.Context, id string) (*models.User, error)
	// LockUser loads the user with a row lock held until the transaction ends.
	// Every read-modify-write of progression fields goes through it.
	LockUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id string, fields map[string]any) (*models.User, error)
	UpsertUserIdentity(ctx context.Context, user *models.User) error
	ListTopUsers(ctx context.Context, limit int) ([]models.User, error)

	// Quests
	GetQuest(ctx context.Context, id string) (*models.Quest, error)
	CreateQuest(ctx context.Context, quest *models.Quest) error
	UpdateQuest(ctx context.Context, id string, fields map[string]any) (*models.Quest, error)
	DeleteQuest(ctx context.Context, id string) error
	ListQuestsByMission(ctx context.Context, missionID string) ([]models.Quest, error)
	ListQuestsByUser(ctx context.Context, userID string) ([]models.Quest, error)
	CountQuestsByStatus(ctx context.Context, userID string, status models.QuestStatus) (int64, error)
	ExpireOverdueQuests(ctx context.Context, now time.Time) (int64, error)

	// Missions
	GetMission(ctx context.Context, id string) (*models.Mission, error)
	CreateMission(ctx context.Context, mission *models.Mission) error
	UpdateMission(ctx context.Context, id string, fields map[string]any) (*models.Mission, error)
	DeleteMission(ctx context.Context, id string) error
	ListMissionsByUser(ctx context.Context, userID string) ([]models.Mission, error)
	CountMissionsByStatus(ctx context.Context, userID string, status models.MissionStatus) (int64, error)

	// Daily / weekly hunts
	GetDailyHunt(ctx context.Context, id string) (*models.DailyHunt, error)
	CreateDailyHunt(ctx context.Context, hunt *models.DailyHunt) error
	UpdateDailyHunt(ctx context.Context, id string, fields map[string]any) (*models.DailyHunt, error)
	ListDailyHuntsByUser(ctx context.Context, userID string) ([]models.DailyHunt, error)
	ListDueDailyHunts(ctx context.Context, now time.Time) ([]models.DailyHunt, error)

	// Skill tree
	ListSkills(ctx context.Context) ([]models.Skill, error)
	GetSkill(ctx context.Context, id string) (*models.Skill, error)
	GetSkillByCode(ctx context.Context, code string) (*models.Skill, error)
	UpsertSkill(ctx context.Context, skill *models.Skill) (*models.Skill, error)
	UpdateSkill(ctx context.Context, id string, fields map[string]any) (*models.Skill, error)
	InsertUserSkill(ctx context.Context, userID, skillID string) (*models.UserSkill, error)
	ListUserSkills(ctx context.Context, userID string) ([]models.UserSkill, error)

	// Achievements
	ListAchievements(ctx context.Context) ([]models.Achievement, error)
	GetAchievement(ctx context.Context, id string) (*models.Achievement, error)
	UpsertAchievement(ctx context.Context, achievement *models.Achievement) (*models.Achievement, error)
	UpdateAchievement(ctx context.Context, id string, fields map[string]any) (*models.Achievement, error)
	InsertUserAchievement(ctx context.Context, userID, achievementID string) (*models.UserAchievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error)

	// Activity log (append-only)
	AppendActivityLog(ctx context.Context, userID, action string, xpGained int64, details map[string]any) (*models.ActivityLog, error)
	ListActivityLog(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error)
	ListActivityLogByRange(ctx context.Context, userID string, start, end time.Time) ([]models.ActivityLog, error)
	ListActivityLogSince(ctx context.Context, userID string, since time.Time) ([]models.ActivityLog, error)
	CountActivity(ctx context.Context, userID string, actions ...string) (int64, error)
}
