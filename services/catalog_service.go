package services

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
	"hunter-quest-system/repository"
	"hunter-quest-system/storage"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const MaxIconBytes = 2 << 20

// CatalogService serves the global skill tree and admin icon uploads.
type CatalogService struct {
	Repo     repository.Repository
	Uploader storage.Uploader // nil disables icon uploads
	Logger   *slog.Logger
}

func NewCatalogService(repo repository.Repository, uploader storage.Uploader, logger *slog.Logger) *CatalogService {
	return &CatalogService{Repo: repo, Uploader: uploader, Logger: logger}
}

func (s *CatalogService) ListSkills(ctx context.Context) ([]models.Skill, error) {
	return s.Repo.ListSkills(ctx)
}

func (s *CatalogService) ListUserSkills(ctx context.Context, userID string) ([]models.UserSkill, error) {
	return s.Repo.ListUserSkills(ctx, userID)
}

// uploadIcon stores an image under icons/<kind>/<slug>-<short id><ext>.
func (s *CatalogService) uploadIcon(ctx context.Context, kind, name string, fh *multipart.FileHeader) (string, error) {
	if s.Uploader == nil {
		return "", apperr.InvalidState("icon storage is not configured")
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", apperr.Validation("icon must be an image")
	}
	if fh.Size > MaxIconBytes {
		return "", apperr.Validation(fmt.Sprintf("icon exceeds %d bytes", MaxIconBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return "", apperr.Wrap(apperr.CodeValidation, "failed to open file", err)
	}
	defer f.Close()

	key := fmt.Sprintf("icons/%s/%s-%s%s", kind, slug.Make(name), uuid.NewString()[:8], strings.ToLower(filepath.Ext(fh.Filename)))
	url, err := s.Uploader.Upload(ctx, key, f, contentType)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "upload icon", err)
	}
	return url, nil
}

func (s *CatalogService) SetSkillIcon(ctx context.Context, skillID string, fh *multipart.FileHeader) (*models.Skill, error) {
	skill, err := s.Repo.GetSkill(ctx, skillID)
	if err != nil {
		return nil, err
	}
	url, err := s.uploadIcon(ctx, "skills", skill.Name, fh)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("[Catalog] skill icon uploaded", "skill", skill.Code, "url", url)
	return s.Repo.UpdateSkill(ctx, skillID, map[string]any{"icon": url})
}

func (s *CatalogService) SetAchievementIcon(ctx context.Context, achievementID string, fh *multipart.FileHeader) (*models.Achievement, error) {
	a, err := s.Repo.GetAchievement(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	url, err := s.uploadIcon(ctx, "achievements", a.Name, fh)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("[Catalog] achievement icon uploaded", "achievement", a.Code, "url", url)
	return s.Repo.UpdateAchievement(ctx, achievementID, map[string]any{"icon": url})
}
