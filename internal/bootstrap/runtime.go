package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"podium/internal/cache"
	"podium/internal/config"
	"podium/internal/database"
	"podium/internal/models"
	"podium/internal/seed"
	"podium/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset names a seed preset applied when a development database has no users.
	SeedPreset string
}

// InitRuntime connects to DB and Redis and optionally seeds an empty development database.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// nil when Redis is unreachable
	r := cache.Connect(cfg.RedisURL)

	if err := seedIfEmpty(context.Background(), cfg, db, opts.SeedPreset); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development database: %w", err)
	}

	return db, r, nil
}

func seedIfEmpty(ctx context.Context, cfg *config.Config, db *gorm.DB, presetRef string) error {
	if cfg == nil || db == nil || strings.TrimSpace(presetRef) == "" {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users > 0 {
		return nil
	}

	preset, err := seed.LoadPreset(presetRef)
	if err != nil {
		return err
	}
	files, err := storage.New(cfg)
	if err != nil {
		return fmt.Errorf("file storage: %w", err)
	}
	seeder, err := seed.NewSeeder(db, files, seed.Options{})
	if err != nil {
		return err
	}
	sum, err := seeder.Apply(ctx, preset)
	if err != nil {
		return err
	}

	log.Printf("development database seeded with preset %q (%s)", presetRef, sum)
	return nil
}
