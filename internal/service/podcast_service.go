package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"podium/internal/middleware"
	"podium/internal/models"
	"podium/internal/repository"
	"podium/internal/storage"
	"podium/internal/validation"
)

const DefaultPodcastMaxUploadMB = 100

// audioTypes maps accepted upload extensions to the content type they are served with.
var audioTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"aac":  "audio/aac",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"flac": "audio/flac",
	"webm": "audio/webm",
}

// PodcastService handles podcast uploads, playback and owner edits.
type PodcastService struct {
	podcasts repository.PodcastRepository
	files    storage.FileStore
	maxBytes int64
}

type UploadPodcastInput struct {
	OwnerID     string
	Title       string
	Description string
	Filename    string
	Size        int64
	Body        io.Reader
}

type EditPodcastInput struct {
	UserID      string
	PodcastID   string
	Title       string
	Description string
}

// Audio is an open audio stream.
type Audio struct {
	Body        io.ReadCloser
	ContentType string
	Name        string
}

func NewPodcastService(podcasts repository.PodcastRepository, files storage.FileStore, maxUploadMB int) *PodcastService {
	if maxUploadMB <= 0 {
		maxUploadMB = DefaultPodcastMaxUploadMB
	}
	return &PodcastService{podcasts: podcasts, files: files, maxBytes: int64(maxUploadMB) << 20}
}

// MaxUploadBytes is the largest accepted audio file.
func (s *PodcastService) MaxUploadBytes() int64 { return s.maxBytes }

func audioExt(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	_, ok := audioTypes[ext]
	return ext, ok
}

// Upload stores the audio file and records the podcast. The stored file is
// removed again when the record cannot be written.
func (s *PodcastService) Upload(ctx context.Context, in UploadPodcastInput) (*models.Podcast, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.ValidatePodcast(in.Title, in.Description); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Body == nil || in.Size == 0 {
		return nil, models.NewValidationError("No audio file uploaded")
	}
	if in.Size > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes>>20))
	}
	ext, ok := audioExt(in.Filename)
	if !ok {
		return nil, models.NewValidationError("Unsupported audio format")
	}

	name := storage.NewName(ext)
	body := io.LimitReader(in.Body, s.maxBytes)
	if err := s.files.Save(ctx, storage.BucketPodcasts, name, body, audioTypes[ext]); err != nil {
		return nil, models.NewInternalError(err)
	}

	podcast := &models.Podcast{
		OwnerID:     in.OwnerID,
		Title:       in.Title,
		Description: in.Description,
		AudioFile:   name,
	}
	if err := s.podcasts.Create(ctx, podcast); err != nil {
		if delErr := s.files.Delete(ctx, storage.BucketPodcasts, name); delErr != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove orphaned audio file",
				slog.String("name", name), slog.String("error", delErr.Error()))
		}
		return nil, err
	}
	return podcast, nil
}

func (s *PodcastService) Get(ctx context.Context, podcastID, viewerID string) (*models.Podcast, error) {
	return s.podcasts.GetByID(ctx, podcastID, viewerID)
}

func (s *PodcastService) OpenAudio(ctx context.Context, podcastID string) (*Audio, error) {
	podcast, err := s.podcasts.GetByID(ctx, podcastID, "")
	if err != nil {
		return nil, err
	}
	body, err := s.files.Open(ctx, storage.BucketPodcasts, podcast.AudioFile)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, models.NewNotFoundError("Audio file", podcast.AudioFile)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	ext, _ := audioExt(podcast.AudioFile)
	contentType := audioTypes[ext]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Audio{Body: body, ContentType: contentType, Name: podcast.AudioFile}, nil
}

// ownedPodcast loads the podcast and fails with Forbidden unless userID owns it.
func (s *PodcastService) ownedPodcast(ctx context.Context, userID, podcastID, verb string) (*models.Podcast, error) {
	podcast, err := s.podcasts.GetByID(ctx, podcastID, userID)
	if err != nil {
		return nil, err
	}
	if podcast.OwnerID != userID {
		return nil, models.NewForbiddenError(fmt.Sprintf("You can only %s your own podcasts", verb))
	}
	return podcast, nil
}

func (s *PodcastService) Edit(ctx context.Context, in EditPodcastInput) (*models.Podcast, error) {
	podcast, err := s.ownedPodcast(ctx, in.UserID, in.PodcastID, "edit")
	if err != nil {
		return nil, err
	}

	podcast.Title = strings.TrimSpace(in.Title)
	podcast.Description = strings.TrimSpace(in.Description)
	if err := validation.ValidatePodcast(podcast.Title, podcast.Description); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.podcasts.Update(ctx, podcast); err != nil {
		return nil, err
	}
	return podcast, nil
}

// Delete removes the podcast with its likes and comments, then its audio file.
func (s *PodcastService) Delete(ctx context.Context, userID, podcastID string) error {
	podcast, err := s.ownedPodcast(ctx, userID, podcastID, "delete")
	if err != nil {
		return err
	}
	if err := s.podcasts.Delete(ctx, podcast.ID); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, storage.BucketPodcasts, podcast.AudioFile); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete audio file",
			slog.String("name", podcast.AudioFile), slog.String("error", err.Error()))
	}
	return nil
}
