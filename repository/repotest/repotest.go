// Package repotest opens throwaway databases for tests that need the real repository.
package repotest

import (
	"testing"
	"time"

	"hunter-quest-system/models"
	"hunter-quest-system/repository"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Epoch is the default fake "now" used across tests: Wednesday 2025-01-15 10:00 UTC.
var Epoch = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

// OpenDB returns a migrated in-memory SQLite database private to t.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "open sqlite")
	sqlDB, err := db.DB()
	require.NoError(t, err, "sql db")
	// One connection keeps the in-memory database alive. SQLite has no row locks,
	// so LockUser's FOR UPDATE is covered by a dry-run test in package repository.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.AutoMigrate(db), "migrate")
	return db
}

// New returns a repository over a fresh database and a fake clock pinned at Epoch.
func New(t testing.TB) (repository.Repository, *clockwork.FakeClock) {
	t.Helper()
	return NewAt(t, Epoch)
}

// NewAt is New with the fake clock pinned at now.
func NewAt(t testing.TB, now time.Time) (repository.Repository, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(now)
	return repository.NewGormRepository(OpenDB(t), clock), clock
}

// SeedUser inserts a level 1 hunter.
func SeedUser(t testing.TB, repo repository.Repository, id string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Level: 1, Rank: models.RankE, HunterClass: models.HunterClassFighter}
	require.NoError(t, repo.CreateUser(t.Context(), u), "seed user")
	return u
}
