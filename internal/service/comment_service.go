package service

import (
	"context"
	"strings"

	"podium/internal/models"
	"podium/internal/notifications"
	"podium/internal/repository"
	"podium/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	podcastRepo repository.PodcastRepository
	publisher   notifications.Publisher
}

type CreateCommentInput struct {
	UserID    string
	PodcastID string
	Body      string
}

type DeleteCommentInput struct {
	UserID    string
	CommentID string
}

// NewCommentService creates a CommentService. publisher may be nil.
func NewCommentService(
	commentRepo repository.CommentRepository,
	podcastRepo repository.PodcastRepository,
	publisher notifications.Publisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		podcastRepo: podcastRepo,
		publisher:   publisher,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	in.Body = strings.TrimSpace(in.Body)
	if err := validation.ValidateComment(in.Body); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	podcast, err := s.podcastRepo.GetByID(ctx, in.PodcastID, "")
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Body:        in.Body,
		CommenterID: in.UserID,
		PodcastID:   in.PodcastID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	if podcast.OwnerID != in.UserID {
		notify(ctx, s.publisher, podcast.OwnerID, notifications.Event{
			Type:      notifications.EventComment,
			ActorID:   in.UserID,
			PodcastID: podcast.ID,
		})
	}
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, podcastID string) ([]*models.Comment, error) {
	exists, err := s.podcastRepo.Exists(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Podcast", podcastID)
	}
	return s.commentRepo.ListByPodcast(ctx, podcastID)
}

// DeleteComment removes a comment. Only its author may delete it.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.CommenterID != in.UserID {
		return nil, models.NewForbiddenError("You can only delete your own comments")
	}
	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, err
	}
	return comment, nil
}
