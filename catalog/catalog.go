// Package catalog seeds the global skill tree and achievements from an embedded TOML document.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"slices"

	"hunter-quest-system/models"
	"hunter-quest-system/repository"

	"github.com/gosimple/slug"
	"github.com/pelletier/go-toml/v2"
)

//go:embed default_catalog.toml
var defaultCatalog []byte

type Document struct {
	Skills       []SkillEntry       `toml:"skills"`
	Achievements []AchievementEntry `toml:"achievements"`
}

type SkillEntry struct {
	Code          string `toml:"code"` // defaults to the slug of Name
	Name          string `toml:"name"`
	Description   string `toml:"description"`
	Icon          string `toml:"icon"`
	Category      string `toml:"category"`
	XPMultiplier  int    `toml:"xp_multiplier"`
	StreakBonus   int    `toml:"streak_bonus"`
	RequiredLevel int    `toml:"required_level"`
	Prerequisite  string `toml:"prerequisite"` // code of an earlier skill
}

type AchievementEntry struct {
	Code        string           `toml:"code"`
	Name        string           `toml:"name"`
	Description string           `toml:"description"`
	Icon        string           `toml:"icon"`
	Rarity      string           `toml:"rarity"`
	Requirement map[string]int64 `toml:"requirement"`
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := map[string]bool{}
	for i := range doc.Skills {
		s := &doc.Skills[i]
		if s.Name == "" {
			return nil, fmt.Errorf("skill #%d: name is required", i+1)
		}
		if s.Code == "" {
			s.Code = slug.Make(s.Name)
		}
		if s.Category == "" {
			s.Category = "utility"
		}
		if s.RequiredLevel < 1 {
			s.RequiredLevel = 1
		}
		if s.Prerequisite != "" && !seen[s.Prerequisite] {
			return nil, fmt.Errorf("skill %s: prerequisite %q must be declared before it", s.Code, s.Prerequisite)
		}
		if seen[s.Code] {
			return nil, fmt.Errorf("skill %s: duplicate code", s.Code)
		}
		seen[s.Code] = true
	}

	codes := map[string]bool{}
	for i := range doc.Achievements {
		a := &doc.Achievements[i]
		if a.Name == "" {
			return nil, fmt.Errorf("achievement #%d: name is required", i+1)
		}
		if a.Code == "" {
			a.Code = slug.Make(a.Name)
		}
		if a.Rarity == "" {
			a.Rarity = string(models.RarityCommon)
		}
		if !slices.Contains(models.QuestRarities, models.QuestRarity(a.Rarity)) {
			return nil, fmt.Errorf("achievement %s: unknown rarity %q", a.Code, a.Rarity)
		}
		if codes[a.Code] {
			return nil, fmt.Errorf("achievement %s: duplicate code", a.Code)
		}
		codes[a.Code] = true
	}
	return &doc, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Seed upserts doc into the repository in one transaction. Re-running it is safe.
func Seed(ctx context.Context, repo repository.Repository, doc *Document, logger *slog.Logger) error {
	return repo.WithinTx(ctx, func(tx repository.Repository) error {
		ids := map[string]string{}
		for _, e := range doc.Skills {
			skill := &models.Skill{
				Code:          e.Code,
				Name:          e.Name,
				Description:   optional(e.Description),
				Icon:          optional(e.Icon),
				Category:      e.Category,
				XPMultiplier:  e.XPMultiplier,
				StreakBonus:   e.StreakBonus,
				RequiredLevel: e.RequiredLevel,
			}
			if e.Prerequisite != "" {
				id := ids[e.Prerequisite]
				skill.PrerequisiteSkillID = &id
			}
			stored, err := tx.UpsertSkill(ctx, skill)
			if err != nil {
				return err
			}
			ids[e.Code] = stored.ID
		}

		for _, e := range doc.Achievements {
			_, err := tx.UpsertAchievement(ctx, &models.Achievement{
				Code:        e.Code,
				Name:        e.Name,
				Description: optional(e.Description),
				Icon:        optional(e.Icon),
				Rarity:      models.QuestRarity(e.Rarity),
				Requirement: e.Requirement,
			})
			if err != nil {
				return err
			}
		}
		logger.Info("[Catalog] seeded", "skills", len(doc.Skills), "achievements", len(doc.Achievements))
		return nil
	})
}

// SeedDefault seeds the embedded catalog.
func SeedDefault(ctx context.Context, repo repository.Repository, logger *slog.Logger) error {
	doc, err := Parse(defaultCatalog)
	if err != nil {
		return err
	}
	return Seed(ctx, repo, doc, logger)
}
