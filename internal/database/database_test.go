package database

import (
	"context"
	"testing"

	"podium/internal/config"
	"podium/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestConnect_SQLiteMigratesSchema(t *testing.T) {
	cfg := &config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: "file::memory:?cache=shared",
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	for _, table := range []string{"users", "podcasts", "follows", "likes", "comments"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Follow{}, "idx_follow_pair"))
	assert.True(t, db.Migrator().HasIndex(&models.Like{}, "idx_like_pair"))
}

func TestFollowPairIsUniqueAtStorageLevel(t *testing.T) {
	db, err := gorm.Open(Dialector(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"}), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&models.Follow{FollowerID: "a", FolloweeID: "b"}).Error)
	assert.Error(t, db.WithContext(ctx).Create(&models.Follow{FollowerID: "a", FolloweeID: "b"}).Error)

	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: "a", FolloweeID: "b"})
	require.NoError(t, res.Error)
	assert.Equal(t, int64(0), res.RowsAffected)
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(Dialector(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"}), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDialector_Postgres(t *testing.T) {
	d := Dialector(&config.Config{DBDriver: "postgres", DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "podium"})
	assert.Equal(t, "postgres", d.Name())
}
