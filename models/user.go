package models

import (
	"time"

	"github.com/google/uuid"
)

// HunterClass is the cosmetic class a hunter picks on their profile.
type HunterClass string

const (
	HunterClassFighter  HunterClass = "Fighter"
	HunterClassMage     HunterClass = "Mage"
	HunterClassAssassin HunterClass = "Assassin"
	HunterClassHealer   HunterClass = "Healer"
	HunterClassTank     HunterClass = "Tank"
	HunterClassRanger   HunterClass = "Ranger"
)

var HunterClasses = []HunterClass{
	HunterClassFighter,
	HunterClassMage,
	HunterClassAssassin,
	HunterClassHealer,
	HunterClassTank,
	HunterClassRanger,
}

// Rank is the coarse tier derived from level: E < D < C < B < A < S < SS.
type Rank string

const (
	RankE  Rank = "E"
	RankD  Rank = "D"
	RankC  Rank = "C"
	RankB  Rank = "B"
	RankA  Rank = "A"
	RankS  Rank = "S"
	RankSS Rank = "SS"
)

// User is the hunter: identity forwarded by the gateway plus the progression snapshot.
// Progression columns are only written through the progression engine.
type User struct {
	ID              string  `gorm:"primaryKey;type:varchar(64)" json:"id"` // gateway / identity service user id
	Email           *string `gorm:"uniqueIndex" json:"email,omitempty"`
	FirstName       *string `json:"first_name,omitempty"`
	LastName        *string `json:"last_name,omitempty"`
	ProfileImageURL *string `gorm:"type:text" json:"profile_image_url,omitempty"`

	HunterName  *string     `gorm:"type:varchar(30)" json:"hunter_name,omitempty"`
	HunterClass HunterClass `gorm:"type:varchar(16);not null;default:'Fighter'" json:"hunter_class"`

	// Core progression
	Level     int   `gorm:"not null;default:1" json:"level"`
	CurrentXP int64 `gorm:"column:current_xp;not null;default:0" json:"current_xp"`
	TotalXP   int64 `gorm:"column:total_xp;not null;default:0;index" json:"total_xp"`
	Rank      Rank  `gorm:"type:varchar(4);not null;default:'E'" json:"rank"`

	// Streaks
	CurrentStreak  int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak  int        `gorm:"not null;default:0" json:"longest_streak"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// newID fills an empty primary key; every generated-id model calls it from BeforeCreate.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
