package repository

import (
	"context"
	"testing"

	"podium/internal/config"
	"podium/internal/database"
	"podium/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns a migrated in-memory database private to the test.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(database.Dialector(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"}), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		FirstName: username,
		LastName:  "Tester",
		Username:  username,
		Email:     username + "@example.com",
		Password:  "digest",
	}
	require.NoError(t, db.WithContext(context.Background()).Create(u).Error)
	return u
}

func createPodcast(t *testing.T, db *gorm.DB, owner *models.User, title string) *models.Podcast {
	t.Helper()
	p := &models.Podcast{
		OwnerID:     owner.ID,
		Title:       title,
		Description: title + " description",
		AudioFile:   title + ".mp3",
	}
	require.NoError(t, db.WithContext(context.Background()).Create(p).Error)
	return p
}
