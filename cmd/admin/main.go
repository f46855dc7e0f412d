// Package main provides account management utilities for Podium operators.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"podium/internal/auth"
	"podium/internal/bootstrap"
	"podium/internal/cache"
	"podium/internal/config"
	"podium/internal/models"
	"podium/internal/repository"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin deactivate <username>          - Hide an account until its next login")
		fmt.Println("  go run ./cmd/admin reactivate <username>          - Restore a deactivated account")
		fmt.Println("  go run ./cmd/admin reset-link <email> [base_url]  - Print a password reset link")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	users := repository.NewUserRepository(db, cache.New(rdb))
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "deactivate":
		setDeactivated(ctx, users, os.Args[2], true)
	case "reactivate":
		setDeactivated(ctx, users, os.Args[2], false)
	case "reset-link":
		baseURL := "http://localhost:3000"
		if len(os.Args) > 3 {
			baseURL = strings.TrimRight(os.Args[3], "/")
		}
		printResetLink(ctx, cfg, users, os.Args[2], baseURL)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func findUser(ctx context.Context, users repository.UserRepository, username string) *models.User {
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	if user == nil {
		fmt.Printf("User %s not found\n", username)
		os.Exit(1)
	}
	return user
}

func setDeactivated(ctx context.Context, users repository.UserRepository, username string, deactivated bool) {
	user := findUser(ctx, users, username)
	if user.Deactivated == deactivated {
		fmt.Printf("User %s (ID: %s) already has deactivated=%t\n", user.Username, user.ID, deactivated)
		return
	}
	if err := users.SetDeactivated(ctx, user.ID, deactivated); err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	fmt.Printf("✅ %s (ID: %s) deactivated=%t\n", user.Username, user.ID, deactivated)
}

func printResetLink(ctx context.Context, cfg *config.Config, users repository.UserRepository, email, baseURL string) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	if user == nil {
		fmt.Printf("No account with email %s\n", email)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, auth.WithResetTTL(cfg.ResetTokenTTL))
	if err != nil {
		log.Fatalf("Token service: %v", err)
	}
	token, err := tokens.IssuePasswordReset(email)
	if err != nil {
		log.Fatalf("Failed to issue reset token: %v", err)
	}
	fmt.Printf("%s/reset-password/%s\n(valid for %s)\n", baseURL, token, cfg.ResetTokenTTL)
}
