package repository

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The SQLite test database ignores row locks, so the generated Postgres SQL is checked instead.
func TestLockUserSelectsForUpdate(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=hunter dbname=hunter sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	var statements []string
	err = db.Callback().Query().After("gorm:query").Register("test:capture_sql", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	})
	require.NoError(t, err)

	repo := NewGormRepository(db, clockwork.NewFakeClock())
	_, _ = repo.LockUser(t.Context(), "u1")
	_, _ = repo.GetUser(t.Context(), "u1")

	require.Len(t, statements, 2)
	assert.Contains(t, statements[0], `FROM "users"`)
	assert.Contains(t, statements[0], "FOR UPDATE")
	assert.NotContains(t, statements[1], "FOR UPDATE", "plain reads must not lock")
}
