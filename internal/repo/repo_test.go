package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.TimelineEntry{}))
	return New(db)
}

func seedUser(t *testing.T, r *GormRepo, subject string) *models.User {
	t.Helper()
	user, created, err := r.FindOrCreateUser(context.Background(),
		"Google", subject, subject+"@example.com", "Seed User", "")
	require.NoError(t, err)
	require.True(t, created)
	return user
}
