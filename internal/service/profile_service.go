package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"path/filepath"

	"podium/internal/media"
	"podium/internal/middleware"
	"podium/internal/models"
	"podium/internal/repository"
	"podium/internal/storage"
)

// ErrProfileNotFound is returned when a username does not resolve to an active user.
var ErrProfileNotFound = &models.AppError{Code: models.CodeNotFound, Message: "User does not exist."}

// ProfileService serves public user profiles and profile pictures.
type ProfileService struct {
	users    repository.UserRepository
	podcasts repository.PodcastRepository
	files    storage.FileStore
	thumbs   *media.Thumbnailer
}

// UserProfile is the public view of a user as seen by viewerID.
type UserProfile struct {
	User                 *models.User      `json:"user"`
	FullName             string            `json:"full_name"`
	Followers            int64             `json:"followers"`
	Following            int64             `json:"following"`
	CurrentUserFollowing bool              `json:"current_user_following_user"`
	IsCurrentUser        bool              `json:"is_current_user"`
	Podcasts             []*models.Podcast `json:"podcasts"`
}

// Picture is an open profile picture stream.
type Picture struct {
	Body        io.ReadCloser
	ContentType string
}

func NewProfileService(
	users repository.UserRepository,
	podcasts repository.PodcastRepository,
	files storage.FileStore,
	thumbs *media.Thumbnailer,
) *ProfileService {
	return &ProfileService{users: users, podcasts: podcasts, files: files, thumbs: thumbs}
}

func (s *ProfileService) lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Deactivated {
		return nil, ErrProfileNotFound
	}
	return user, nil
}

func (s *ProfileService) Profile(ctx context.Context, viewerID, username string) (*UserProfile, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	profile := &UserProfile{
		User:          user,
		FullName:      user.FullName(),
		IsCurrentUser: viewerID == user.ID,
	}
	if profile.Followers, err = s.users.FollowerCount(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.Following, err = s.users.FollowingCount(ctx, user.ID); err != nil {
		return nil, err
	}
	if viewerID != "" && viewerID != user.ID {
		if profile.CurrentUserFollowing, err = s.users.IsFollowing(ctx, viewerID, user.ID); err != nil {
			return nil, err
		}
	}
	if profile.Podcasts, err = s.podcasts.ListByOwner(ctx, user.ID, viewerID); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdatePicture downsizes content, stores it under a fresh name and swaps it
// in for the previous picture, which is then deleted.
func (s *ProfileService) UpdatePicture(ctx context.Context, userID string, content []byte, contentType string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	thumb, err := s.thumbs.Fit(content, contentType)
	switch {
	case errors.Is(err, media.ErrImageTooLarge):
		return "", models.NewValidationError("Image is too large")
	case errors.Is(err, media.ErrInvalidImage):
		return "", models.NewValidationError("Invalid image file")
	case err != nil:
		return "", models.NewInternalError(err)
	}

	name := storage.NewName(thumb.Ext)
	if err := s.files.Save(ctx, storage.BucketProfilePictures, name, bytes.NewReader(thumb.Data), thumb.ContentType); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := s.users.UpdateProfileImage(ctx, userID, name); err != nil {
		_ = s.files.Delete(ctx, storage.BucketProfilePictures, name)
		return "", err
	}

	if old := user.ProfileImage; old != "" && old != models.DefaultProfileImage {
		if err := s.files.Delete(ctx, storage.BucketProfilePictures, old); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete old profile picture",
				slog.String("name", old), slog.String("error", err.Error()))
		}
	}
	return name, nil
}

// OpenPicture opens username's profile picture, or a placeholder when they have none.
func (s *ProfileService) OpenPicture(ctx context.Context, username string) (*Picture, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	if user.ProfileImage != "" && user.ProfileImage != models.DefaultProfileImage {
		body, err := s.files.Open(ctx, storage.BucketProfilePictures, user.ProfileImage)
		if err == nil {
			return &Picture{Body: body, ContentType: contentTypeFor(user.ProfileImage, "image/jpeg")}, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, models.NewInternalError(err)
		}
		middleware.Logger.WarnContext(ctx, "profile picture missing from store", slog.String("name", user.ProfileImage))
	}

	placeholder, err := s.thumbs.Placeholder()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Picture{Body: io.NopCloser(bytes.NewReader(placeholder.Data)), ContentType: placeholder.ContentType}, nil
}

func contentTypeFor(name, fallback string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return fallback
}
