package service

import (
	"context"
	"log/slog"
	"strings"

	"podium/internal/middleware"
	"podium/internal/models"
	"podium/internal/repository"
	"podium/internal/storage"
)

// AccountService manages the caller's own account.
type AccountService struct {
	users    repository.UserRepository
	podcasts repository.PodcastRepository
	files    storage.FileStore
}

type UpdateAccountInput struct {
	UserID    string
	FirstName string
	LastName  string
	Username  string
	Email     string
}

// Dashboard is the landing view: who is signed in and what the people they follow published.
type Dashboard struct {
	Username string            `json:"username"`
	Feed     []*models.Podcast `json:"feed"`
}

func NewAccountService(users repository.UserRepository, podcasts repository.PodcastRepository, files storage.FileStore) *AccountService {
	return &AccountService{users: users, podcasts: podcasts, files: files}
}

func (s *AccountService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AccountService) Dashboard(ctx context.Context, userID string, limit, offset int) (*Dashboard, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	feed, err := s.podcasts.Feed(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Username: user.Username, Feed: feed}, nil
}

// Update edits names, username and email. A taken username or email is a conflict.
func (s *AccountService) Update(ctx context.Context, in UpdateAccountInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Username = strings.TrimSpace(in.Username)
	user.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateAccountFields(user.FirstName, user.LastName, user.Username, user.Email); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate hides the account until its owner logs in again.
func (s *AccountService) Deactivate(ctx context.Context, userID string) error {
	return s.users.SetDeactivated(ctx, userID, true)
}

// Delete removes the account with its podcasts, likes, comments and follows,
// then the stored files. File cleanup failures are logged, not returned: the
// account is already gone.
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	audioFiles, err := s.users.Delete(ctx, userID)
	if err != nil {
		return err
	}

	for _, name := range audioFiles {
		s.removeFile(ctx, storage.BucketPodcasts, name)
	}
	if user.ProfileImage != "" && user.ProfileImage != models.DefaultProfileImage {
		s.removeFile(ctx, storage.BucketProfilePictures, user.ProfileImage)
	}
	return nil
}

func (s *AccountService) removeFile(ctx context.Context, bucket, name string) {
	if err := s.files.Delete(ctx, bucket, name); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete stored file",
			slog.String("bucket", bucket), slog.String("name", name), slog.String("error", err.Error()))
	}
}
