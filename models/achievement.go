package models

import (
	"time"

	"gorm.io/gorm"
)

// Achievement: global catalog entry (seeded from the embedded catalog or created by admins)
type Achievement struct {
	ID          string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code        string           `gorm:"uniqueIndex;not null" json:"code"` // e.g., "first-blood", "week-warrior"
	Name        string           `gorm:"not null" json:"name"`
	Description *string          `gorm:"type:text" json:"description,omitempty"`
	Icon        *string          `gorm:"type:text" json:"icon,omitempty"`
	Rarity      QuestRarity      `gorm:"type:varchar(16);not null;default:'common'" json:"rarity"`
	Requirement map[string]int64 `gorm:"type:jsonb;serializer:json" json:"requirement,omitempty"` // e.g., {"quests_completed": 10}, {"current_streak": 7}
}

func (a *Achievement) BeforeCreate(*gorm.DB) error {
	newID(&a.ID)
	return nil
}

// UserAchievement: unlocked instance (many-to-many)
type UserAchievement struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
}

func (ua *UserAchievement) BeforeCreate(*gorm.DB) error {
	newID(&ua.ID)
	return nil
}

// Requirement keys understood by the achievement evaluator. Anything else is opaque
// data and keeps the achievement manual-only.
const (
	RequirementLevel             = "level"
	RequirementTotalXP           = "total_xp"
	RequirementCurrentStreak     = "current_streak"
	RequirementLongestStreak     = "longest_streak"
	RequirementQuestsCompleted   = "quests_completed"
	RequirementMissionsCompleted = "missions_completed"
	RequirementHuntsCompleted    = "hunts_completed"
	RequirementSkillsUnlocked    = "skills_unlocked"
)
