package models

import (
	"time"

	"gorm.io/gorm"
)

// QuestRarity selects the XP snapshotted onto a quest at creation.
type QuestRarity string

const (
	RarityCommon    QuestRarity = "common"
	RarityRare      QuestRarity = "rare"
	RarityEpic      QuestRarity = "epic"
	RarityLegendary QuestRarity = "legendary"
)

var QuestRarities = []QuestRarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

type QuestStatus string

const (
	QuestStatusActive    QuestStatus = "active"
	QuestStatusCompleted QuestStatus = "completed"
	QuestStatusFailed    QuestStatus = "failed" // overdue expiry only
)

// Quest is a single user-owned task.
type Quest struct {
	ID              string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string      `gorm:"index;not null" json:"user_id"`
	Title           string      `gorm:"type:text;not null" json:"title"`
	Description     *string     `gorm:"type:text" json:"description,omitempty"`
	Rarity          QuestRarity `gorm:"type:varchar(16);not null;default:'common'" json:"rarity"`
	XPReward        int64       `gorm:"column:xp_reward;not null;default:10" json:"xp_reward"`
	Status          QuestStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	MissionID       *string     `gorm:"index" json:"mission_id,omitempty"`
	IsBossObjective bool        `gorm:"not null;default:false" json:"is_boss_objective"`
	DueDate         *time.Time  `json:"due_date,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (q *Quest) BeforeCreate(*gorm.DB) error {
	newID(&q.ID)
	return nil
}

func (q *Quest) IsCompleted() bool {
	return q.Status == QuestStatusCompleted
}
