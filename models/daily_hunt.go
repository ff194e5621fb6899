package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultHuntXPReward = 15

// DailyHunt is a recurring task; IsWeekly selects the reset cadence.
type DailyHunt struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string     `gorm:"index;not null" json:"user_id"`
	Title       string     `gorm:"type:text;not null" json:"title"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	IsWeekly    bool       `gorm:"not null;default:false" json:"is_weekly"`
	XPReward    int64      `gorm:"column:xp_reward;not null;default:15" json:"xp_reward"`
	ResetDate   time.Time  `gorm:"not null;index" json:"reset_date"` // next boundary at which it becomes claimable again
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (h *DailyHunt) BeforeCreate(*gorm.DB) error {
	newID(&h.ID)
	return nil
}
