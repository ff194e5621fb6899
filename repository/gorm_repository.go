package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormRepository struct {
	db    *gorm.DB
	clock clockwork.Clock
	inTx  bool
}

// NewGormRepository wraps an open gorm handle. The clock stamps append-only rows
// (activity log, unlocks) so tests can pin time.
func NewGormRepository(db *gorm.DB, clock clockwork.Clock) Repository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &gormRepository{db: db, clock: clock}
}

// AutoMigrate creates or updates every table the repository touches.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Quest{},
		&models.Mission{},
		&models.DailyHunt{},
		&models.Skill{},
		&models.UserSkill{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.ActivityLog{},
	)
}

func (r *gormRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx, clock: r.clock, inTx: true})
	})
}

func (r *gormRepository) q(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// notFound turns gorm's sentinels into domain errors; anything else is wrapped as internal.
// Conflicts carry no cause so driver text never reaches a client.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(what + " already exists")
	}
	return apperr.Wrap(apperr.CodeInternal, "query "+what, err)
}

// updateByID applies a partial update and reloads the row.
func updateByID[T any](ctx context.Context, db *gorm.DB, id string, fields map[string]any, what string) (*T, error) {
	var row T
	res := db.WithContext(ctx).Model(&row).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, notFound(res.Error, what)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound(what + " not found")
	}
	if err := db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, what)
	}
	return &row, nil
}

// --- Users ---

func (r *gormRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.q(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *gormRepository) LockUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.q(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *gormRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.q(ctx).Create(user).Error; err != nil {
		return notFound(err, "user")
	}
	return nil
}

func (r *gormRepository) UpdateUser(ctx context.Context, id string, fields map[string]any) (*models.User, error) {
	return updateByID[models.User](ctx, r.db, id, fields, "user")
}

// UpsertUserIdentity inserts an unknown user or refreshes the identity columns of a known one.
// Progression columns are never touched here. An email already owned by another user is a conflict.
func (r *gormRepository) UpsertUserIdentity(ctx context.Context, user *models.User) error {
	err := r.q(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"first_name",
			"last_name",
			"profile_image_url",
			"updated_at",
		}),
	}).Create(user).Error
	if err != nil {
		return notFound(err, "user identity")
	}
	return nil
}

func (r *gormRepository) ListTopUsers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := r.q(ctx).Order("total_xp DESC").Order("id ASC").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, notFound(err, "users")
	}
	return users, nil
}

// --- Quests ---

func (r *gormRepository) GetQuest(ctx context.Context, id string) (*models.Quest, error) {
	var q models.Quest
	if err := r.q(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "quest")
	}
	return &q, nil
}

func (r *gormRepository) CreateQuest(ctx context.Context, quest *models.Quest) error {
	if err := r.q(ctx).Create(quest).Error; err != nil {
		return notFound(err, "quest")
	}
	return nil
}

func (r *gormRepository) UpdateQuest(ctx context.Context, id string, fields map[string]any) (*models.Quest, error) {
	return updateByID[models.Quest](ctx, r.db, id, fields, "quest")
}

func (r *gormRepository) DeleteQuest(ctx context.Context, id string) error {
	res := r.q(ctx).Delete(&models.Quest{}, "id = ?", id)
	if res.Error != nil {
		return notFound(res.Error, "quest")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("quest not found")
	}
	return nil
}

func (r *gormRepository) ListQuestsByMission(ctx context.Context, missionID string) ([]models.Quest, error) {
	var quests []models.Quest
	if err := r.q(ctx).Where("mission_id = ?", missionID).Order("created_at ASC").Find(&quests).Error; err != nil {
		return nil, notFound(err, "quests")
	}
	return quests, nil
}

func (r *gormRepository) ListQuestsByUser(ctx context.Context, userID string) ([]models.Quest, error) {
	var quests []models.Quest
	if err := r.q(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&quests).Error; err != nil {
		return nil, notFound(err, "quests")
	}
	return quests, nil
}

func (r *gormRepository) CountQuestsByStatus(ctx context.Context, userID string, status models.QuestStatus) (int64, error) {
	var n int64
	err := r.q(ctx).Model(&models.Quest{}).Where("user_id = ? AND status = ?", userID, status).Count(&n).Error
	if err != nil {
		return 0, notFound(err, "quests")
	}
	return n, nil
}

func (r *gormRepository) ExpireOverdueQuests(ctx context.Context, now time.Time) (int64, error) {
	res := r.q(ctx).Model(&models.Quest{}).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", models.QuestStatusActive, now).
		Update("status", models.QuestStatusFailed)
	if res.Error != nil {
		return 0, apperr.Wrap(apperr.CodeInternal, "expire overdue quests", res.Error)
	}
	return res.RowsAffected, nil
}

// --- Missions ---

func (r *gormRepository) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	var m models.Mission
	if err := r.q(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "mission")
	}
	return &m, nil
}

func (r *gormRepository) CreateMission(ctx context.Context, mission *models.Mission) error {
	if err := r.q(ctx).Create(mission).Error; err != nil {
		return notFound(err, "mission")
	}
	return nil
}

func (r *gormRepository) UpdateMission(ctx context.Context, id string, fields map[string]any) (*models.Mission, error) {
	return updateByID[models.Mission](ctx, r.db, id, fields, "mission")
}

// DeleteMission removes the mission together with its quests.
func (r *gormRepository) DeleteMission(ctx context.Context, id string) error {
	return r.WithinTx(ctx, func(tx Repository) error {
		db := tx.(*gormRepository).q(ctx)
		if err := db.Where("mission_id = ?", id).Delete(&models.Quest{}).Error; err != nil {
			return apperr.Wrap(apperr.CodeInternal, "delete mission quests", err)
		}
		res := db.Delete(&models.Mission{}, "id = ?", id)
		if res.Error != nil {
			return apperr.Wrap(apperr.CodeInternal, "delete mission", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("mission not found")
		}
		return nil
	})
}

func (r *gormRepository) ListMissionsByUser(ctx context.Context, userID string) ([]models.Mission, error) {
	var missions []models.Mission
	if err := r.q(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&missions).Error; err != nil {
		return nil, notFound(err, "missions")
	}
	return missions, nil
}

func (r *gormRepository) CountMissionsByStatus(ctx context.Context, userID string, status models.MissionStatus) (int64, error) {
	var n int64
	err := r.q(ctx).Model(&models.Mission{}).Where("user_id = ? AND status = ?", userID, status).Count(&n).Error
	if err != nil {
		return 0, notFound(err, "missions")
	}
	return n, nil
}

// --- Daily hunts ---

func (r *gormRepository) GetDailyHunt(ctx context.Context, id string) (*models.DailyHunt, error) {
	var h models.DailyHunt
	if err := r.q(ctx).First(&h, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "daily hunt")
	}
	return &h, nil
}

func (r *gormRepository) CreateDailyHunt(ctx context.Context, hunt *models.DailyHunt) error {
	if err := r.q(ctx).Create(hunt).Error; err != nil {
		return notFound(err, "daily hunt")
	}
	return nil
}

func (r *gormRepository) UpdateDailyHunt(ctx context.Context, id string, fields map[string]any) (*models.DailyHunt, error) {
	return updateByID[models.DailyHunt](ctx, r.db, id, fields, "daily hunt")
}

func (r *gormRepository) ListDailyHuntsByUser(ctx context.Context, userID string) ([]models.DailyHunt, error) {
	var hunts []models.DailyHunt
	if err := r.q(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&hunts).Error; err != nil {
		return nil, notFound(err, "daily hunts")
	}
	return hunts, nil
}

func (r *gormRepository) ListDueDailyHunts(ctx context.Context, now time.Time) ([]models.DailyHunt, error) {
	var hunts []models.DailyHunt
	if err := r.q(ctx).Where("reset_date <= ?", now).Find(&hunts).Error; err != nil {
		return nil, notFound(err, "daily hunts")
	}
	return hunts, nil
}

// --- Skills ---

func (r *gormRepository) ListSkills(ctx context.Context) ([]models.Skill, error) {
	var skills []models.Skill
	if err := r.q(ctx).Order("required_level ASC").Order("name ASC").Find(&skills).Error; err != nil {
		return nil, notFound(err, "skills")
	}
	return skills, nil
}

func (r *gormRepository) GetSkill(ctx context.Context, id string) (*models.Skill, error) {
	var s models.Skill
	if err := r.q(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "skill")
	}
	return &s, nil
}

func (r *gormRepository) GetSkillByCode(ctx context.Context, code string) (*models.Skill, error) {
	var s models.Skill
	if err := r.q(ctx).First(&s, "code = ?", code).Error; err != nil {
		return nil, notFound(err, "skill")
	}
	return &s, nil
}

// UpsertSkill inserts or refreshes a catalog skill keyed by Code and returns the stored row.
func (r *gormRepository) UpsertSkill(ctx context.Context, skill *models.Skill) (*models.Skill, error) {
	err := r.q(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"description",
			"category",
			"xp_multiplier",
			"streak_bonus",
			"required_level",
			"prerequisite_skill_id",
		}),
	}).Create(skill).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, fmt.Sprintf("upsert skill %s", skill.Code), err)
	}
	return r.GetSkillByCode(ctx, skill.Code)
}

func (r *gormRepository) UpdateSkill(ctx context.Context, id string, fields map[string]any) (*models.Skill, error) {
	return updateByID[models.Skill](ctx, r.db, id, fields, "skill")
}

func (r *gormRepository) InsertUserSkill(ctx context.Context, userID, skillID string) (*models.UserSkill, error) {
	us := models.UserSkill{UserID: userID, SkillID: skillID, UnlockedAt: r.clock.Now()}
	if err := r.q(ctx).Create(&us).Error; err != nil {
		return nil, notFound(err, "user skill")
	}
	return &us, nil
}

func (r *gormRepository) ListUserSkills(ctx context.Context, userID string) ([]models.UserSkill, error) {
	var out []models.UserSkill
	if err := r.q(ctx).Where("user_id = ?", userID).Order("unlocked_at ASC").Find(&out).Error; err != nil {
		return nil, notFound(err, "user skills")
	}
	return out, nil
}

// --- Achievements ---

func (r *gormRepository) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	var out []models.Achievement
	if err := r.q(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, notFound(err, "achievements")
	}
	return out, nil
}

func (r *gormRepository) GetAchievement(ctx context.Context, id string) (*models.Achievement, error) {
	var a models.Achievement
	if err := r.q(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "achievement")
	}
	return &a, nil
}

func (r *gormRepository) UpsertAchievement(ctx context.Context, achievement *models.Achievement) (*models.Achievement, error) {
	err := r.q(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "rarity", "requirement"}),
	}).Create(achievement).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, fmt.Sprintf("upsert achievement %s", achievement.Code), err)
	}
	var stored models.Achievement
	if err := r.q(ctx).First(&stored, "code = ?", achievement.Code).Error; err != nil {
		return nil, notFound(err, "achievement")
	}
	return &stored, nil
}

func (r *gormRepository) UpdateAchievement(ctx context.Context, id string, fields map[string]any) (*models.Achievement, error) {
	return updateByID[models.Achievement](ctx, r.db, id, fields, "achievement")
}

func (r *gormRepository) InsertUserAchievement(ctx context.Context, userID, achievementID string) (*models.UserAchievement, error) {
	ua := models.UserAchievement{UserID: userID, AchievementID: achievementID, UnlockedAt: r.clock.Now()}
	if err := r.q(ctx).Create(&ua).Error; err != nil {
		return nil, notFound(err, "user achievement")
	}
	return &ua, nil
}

func (r *gormRepository) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	if err := r.q(ctx).Where("user_id = ?", userID).Order("unlocked_at ASC").Find(&out).Error; err != nil {
		return nil, notFound(err, "user achievements")
	}
	return out, nil
}

// --- Activity log ---

func (r *gormRepository) AppendActivityLog(ctx context.Context, userID, action string, xpGained int64, details map[string]any) (*models.ActivityLog, error) {
	entry := models.ActivityLog{
		UserID:    userID,
		Action:    action,
		XPGained:  xpGained,
		Details:   details,
		CreatedAt: r.clock.Now(),
	}
	if err := r.q(ctx).Create(&entry).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "append activity log", err)
	}
	return &entry, nil
}

func (r *gormRepository) ListActivityLog(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	err := r.q(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, notFound(err, "activity log")
	}
	return out, nil
}

func (r *gormRepository) ListActivityLogByRange(ctx context.Context, userID string, start, end time.Time) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	err := r.q(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at <= ?", userID, start, end).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, notFound(err, "activity log")
	}
	return out, nil
}

func (r *gormRepository) ListActivityLogSince(ctx context.Context, userID string, since time.Time) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	err := r.q(ctx).
		Where("user_id = ? AND created_at > ?", userID, since).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, notFound(err, "activity log")
	}
	return out, nil
}

func (r *gormRepository) CountActivity(ctx context.Context, userID string, actions ...string) (int64, error) {
	var n int64
	db := r.q(ctx).Model(&models.ActivityLog{}).Where("user_id = ?", userID)
	if len(actions) > 0 {
		db = db.Where("action IN ?", actions)
	}
	if err := db.Count(&n).Error; err != nil {
		return 0, notFound(err, "activity log")
	}
	return n, nil
}
