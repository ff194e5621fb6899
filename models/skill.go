package models

import (
	"time"

	"gorm.io/gorm"
)

// Skill is a node of the global skill tree. PrerequisiteSkillID points at a single parent.
type Skill struct {
	ID                  string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code                string  `gorm:"uniqueIndex;not null" json:"code"` // slug of the name, stable across seeds
	Name                string  `gorm:"not null" json:"name"`
	Description         *string `gorm:"type:text" json:"description,omitempty"`
	Icon                *string `gorm:"type:text" json:"icon,omitempty"`
	Category            string  `gorm:"not null" json:"category"`
	XPMultiplier        int     `gorm:"column:xp_multiplier;default:0" json:"xp_multiplier"` // display only
	StreakBonus         int     `gorm:"default:0" json:"streak_bonus"`                       // display only
	RequiredLevel       int     `gorm:"not null;default:1" json:"required_level"`
	PrerequisiteSkillID *string `gorm:"index" json:"prerequisite_skill_id,omitempty"`
}

func (s *Skill) BeforeCreate(*gorm.DB) error {
	newID(&s.ID)
	return nil
}

// UserSkill marks a skill unlocked for a user. Unlocks are never revoked.
type UserSkill struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"not null;uniqueIndex:idx_user_skill" json:"user_id"`
	SkillID    string    `gorm:"not null;uniqueIndex:idx_user_skill" json:"skill_id"`
	UnlockedAt time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
}

func (us *UserSkill) BeforeCreate(*gorm.DB) error {
	newID(&us.ID)
	return nil
}
