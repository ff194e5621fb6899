package services

import (
	"time"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
)

// XPPerLevel is the flat amount of XP between two consecutive levels.
const XPPerLevel = 100

// RankThresholds: rank → min level, lowest first
var RankThresholds = []struct {
	Rank     models.Rank
	MinLevel int
}{
	{models.RankE, 1},
	{models.RankD, 5},
	{models.RankC, 10},
	{models.RankB, 20},
	{models.RankA, 35},
	{models.RankS, 50},
	{models.RankSS, 75},
}

// XPByRarity is the reward snapshotted onto a quest when it is created.
var XPByRarity = map[models.QuestRarity]int64{
	models.RarityCommon:    15,
	models.RarityRare:      35,
	models.RarityEpic:      75,
	models.RarityLegendary: 150,
}

// RankForLevel returns the highest rank whose threshold is <= level.
func RankForLevel(level int) models.Rank {
	for i := len(RankThresholds) - 1; i >= 0; i-- {
		if level >= RankThresholds[i].MinLevel {
			return RankThresholds[i].Rank
		}
	}
	return models.RankE
}

// XPForRarity falls back to the common reward for unknown rarities.
func XPForRarity(r models.QuestRarity) int64 {
	if xp, ok := XPByRarity[r]; ok {
		return xp
	}
	return XPByRarity[models.RarityCommon]
}

func LevelForTotalXP(totalXP int64) int {
	if totalXP < 0 {
		return 1
	}
	return int(totalXP/XPPerLevel) + 1
}

func XPToNextLevel(u models.User) int64 {
	return XPPerLevel - u.CurrentXP
}

// LevelProgressPercent is CurrentXP as a whole percentage of the level span.
func LevelProgressPercent(u models.User) int {
	return int(u.CurrentXP * 100 / XPPerLevel)
}

// ApplyXP adds xpGained to the user and rolls over as many levels as it covers.
// It does not persist anything.
func ApplyXP(u models.User, xpGained int64) (models.User, error) {
	if xpGained < 0 {
		return u, apperr.Validation("xp gained must not be negative")
	}
	u.TotalXP += xpGained
	u.CurrentXP += xpGained
	for u.CurrentXP >= XPPerLevel {
		u.CurrentXP -= XPPerLevel
		u.Level++
	}
	u.Rank = RankForLevel(u.Level)
	return u, nil
}

// ApplyStreakTick records activity at now. Days are compared in now's location.
//
//	no previous activity, or older than yesterday -> streak restarts at 1
//	previous activity yesterday                   -> streak + 1
//	anything else (today)                          -> streak unchanged
func ApplyStreakTick(u models.User, now time.Time) models.User {
	today := startOfDay(now)
	yesterday := today.AddDate(0, 0, -1)

	switch {
	case u.LastActiveDate == nil:
		u.CurrentStreak = 1
	default:
		last := startOfDay(u.LastActiveDate.In(now.Location()))
		switch {
		case last.Before(yesterday):
			u.CurrentStreak = 1
		case last.Equal(yesterday):
			u.CurrentStreak++
		}
	}
	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}
	at := now
	u.LastActiveDate = &at
	return u
}

// NextHuntReset is the boundary after which a hunt completed at now becomes available again:
// the next local midnight for daily hunts, the next Monday midnight for weekly ones
// (a full week ahead when now is already a Monday).
func NextHuntReset(now time.Time, weekly bool) time.Time {
	today := startOfDay(now)
	if !weekly {
		return today.AddDate(0, 0, 1)
	}
	days := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// progressionFields is the column set written back after the engine ran.
func progressionFields(u models.User) map[string]any {
	return map[string]any{
		"level":            u.Level,
		"current_xp":       u.CurrentXP,
		"total_xp":         u.TotalXP,
		"rank":             u.Rank,
		"current_streak":   u.CurrentStreak,
		"longest_streak":   u.LongestStreak,
		"last_active_date": u.LastActiveDate,
	}
}
