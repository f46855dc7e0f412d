// Command main runs the database seeder for Podium.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"podium/internal/config"
	"podium/internal/database"
	"podium/internal/seed"
	"podium/internal/storage"
)

func main() {
	preset := flag.String("preset", "default", "Seed preset: "+strings.Join(seed.PresetNames(), ", ")+" or a YAML file path")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Build entities without writing to the database")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store the seed password without hashing (local load tests only)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	p, err := seed.LoadPreset(*preset)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("Preset %q: %d accounts, %d users, %d podcasts each, clean=%v dry-run=%v",
		*preset, len(p.Accounts), p.Users, p.PodcastsPerUser, *shouldClean, *dryRun)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := seed.Options{DryRun: *dryRun, SkipBcrypt: *skipBcrypt}
	ctx := context.Background()

	if *dryRun {
		s, err := seed.NewSeeder(nil, nil, opts)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		if _, err := s.Apply(ctx, p); err != nil {
			log.Fatalf("❌ Dry run failed: %v", err)
		}
		return
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	files, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("Failed to open file storage: %v", err)
	}

	s, err := seed.NewSeeder(db, files, opts)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.Apply(ctx, p); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
