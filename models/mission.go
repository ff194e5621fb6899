package models

import (
	"time"

	"gorm.io/gorm"
)

type MissionStatus string

const (
	MissionStatusActive    MissionStatus = "active"
	MissionStatusCompleted MissionStatus = "completed"
)

const (
	MinMissionDifficulty = 1
	MaxMissionDifficulty = 5
)

// Mission groups quests (quests hold the foreign key) and carries a completion bonus.
type Mission struct {
	ID            string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string        `gorm:"index;not null" json:"user_id"`
	Title         string        `gorm:"type:text;not null" json:"title"`
	Description   *string       `gorm:"type:text" json:"description,omitempty"`
	Difficulty    int           `gorm:"not null;default:1" json:"difficulty"`
	Status        MissionStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	TotalXPReward int64         `gorm:"column:total_xp_reward;not null;default:0" json:"total_xp_reward"`
	Deadline      *time.Time    `json:"deadline,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (m *Mission) BeforeCreate(*gorm.DB) error {
	newID(&m.ID)
	return nil
}

// MissionWithQuests is the read model returned by GET /missions/:id.
type MissionWithQuests struct {
	Mission Mission `json:"mission"`
	Quests  []Quest `json:"quests"`
}
