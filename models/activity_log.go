package models

import (
	"time"

	"gorm.io/gorm"
)

// Activity actions written by the services.
const (
	ActionQuestCreated        = "quest_created"
	ActionQuestCompleted      = "quest_completed"
	ActionMissionCreated      = "mission_created"
	ActionMissionCompleted    = "mission_completed"
	ActionDailyHuntCompleted  = "daily_hunt_completed"
	ActionWeeklyHuntCompleted = "weekly_hunt_completed"
	ActionSkillUnlocked       = "skill_unlocked"
	ActionAchievementUnlocked = "achievement_unlocked"
)

// ActivityLog is an append-only audit row. Rows are never updated or deleted.
type ActivityLog struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string         `gorm:"not null;index:idx_activity_user_created,priority:1" json:"user_id"`
	Action    string         `gorm:"type:varchar(64);not null" json:"action"`
	XPGained  int64          `gorm:"column:xp_gained;not null;default:0" json:"xp_gained"`
	Details   map[string]any `gorm:"type:jsonb;serializer:json" json:"details,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index:idx_activity_user_created,priority:2" json:"created_at"`
}

func (l *ActivityLog) BeforeCreate(*gorm.DB) error {
	newID(&l.ID)
	return nil
}

// DailyXP is one bucket of the analytics summary.
type DailyXP struct {
	Day      string `json:"day"` // YYYY-MM-DD in the service timezone
	XP       int64  `json:"xp"`
	Actions  int    `json:"actions"`
	XPPretty string `json:"xp_pretty"`
}
