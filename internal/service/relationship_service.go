package service

import (
	"context"
	"log/slog"

	"podium/internal/middleware"
	"podium/internal/notifications"
	"podium/internal/relationship"
	"podium/internal/repository"
)

// RelationshipService runs the follow and like toggles for an authenticated
// caller and notifies the other side of a new edge.
type RelationshipService struct {
	follows     *relationship.Toggle
	likes       *relationship.Toggle
	podcastRepo repository.PodcastRepository
	publisher   notifications.Publisher
}

// NewRelationshipService wires the toggles. publisher may be nil.
func NewRelationshipService(
	follows, likes *relationship.Toggle,
	podcastRepo repository.PodcastRepository,
	publisher notifications.Publisher,
) *RelationshipService {
	return &RelationshipService{
		follows:     follows,
		likes:       likes,
		podcastRepo: podcastRepo,
		publisher:   publisher,
	}
}

// Follow applies action from actorID to the user named by target, an id or a username.
func (s *RelationshipService) Follow(ctx context.Context, actorID, target, action string) (relationship.Result, error) {
	res, err := s.follows.Apply(ctx, actorID, target, action)
	if err != nil {
		return res, err
	}
	if res.Connected {
		notify(ctx, s.publisher, res.TargetID, notifications.Event{
			Type:    notifications.EventFollow,
			ActorID: actorID,
			Count:   res.Count,
		})
	}
	return res, nil
}

// Like applies action from actorID to the podcast podcastID.
func (s *RelationshipService) Like(ctx context.Context, actorID, podcastID, action string) (relationship.Result, error) {
	res, err := s.likes.Apply(ctx, actorID, podcastID, action)
	if err != nil {
		return res, err
	}
	if !res.Connected || s.publisher == nil {
		return res, nil
	}

	podcast, err := s.podcastRepo.GetByID(ctx, res.TargetID, "")
	if err != nil {
		middleware.Logger.WarnContext(ctx, "like notification skipped", slog.String("podcast_id", res.TargetID), slog.String("error", err.Error()))
		return res, nil
	}
	if podcast.OwnerID != actorID {
		notify(ctx, s.publisher, podcast.OwnerID, notifications.Event{
			Type:      notifications.EventLike,
			ActorID:   actorID,
			PodcastID: podcast.ID,
			Count:     res.Count,
		})
	}
	return res, nil
}

// notify publishes best effort; a lost notification never fails the request.
func notify(ctx context.Context, p notifications.Publisher, userID string, ev notifications.Event) {
	if p == nil {
		return
	}
	if err := p.PublishUser(ctx, userID, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish notification",
			slog.String("type", ev.Type), slog.String("user_id", userID), slog.String("error", err.Error()))
	}
}
