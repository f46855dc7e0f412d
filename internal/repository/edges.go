package repository

import (
	"context"

	"podium/internal/models"
	"podium/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowStore persists follow edges for the follow toggle. Targets resolve by
// user id or username; deactivated users do not resolve.
type FollowStore struct {
	db *gorm.DB
}

func NewFollowStore(db *gorm.DB) *FollowStore {
	return &FollowStore{db: db}
}

// ResolveTarget matches ref as an id before trying it as a username.
func (s *FollowStore) ResolveTarget(ctx context.Context, ref string) (string, bool, error) {
	for _, column := range []string{"id", "username"} {
		id, found, err := s.resolveBy(ctx, column, ref)
		if err != nil || found {
			return id, found, err
		}
	}
	return "", false, nil
}

func (s *FollowStore) resolveBy(ctx context.Context, column, ref string) (string, bool, error) {
	defer observability.TrackQuery("select", "users")()
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where(column+" = ? AND deactivated = ?", ref, false).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return "", false, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

// Create inserts the edge; a conflict on idx_follow_pair means it already existed.
func (s *FollowStore) Create(ctx context.Context, followerID, followeeID string) (bool, error) {
	defer observability.TrackQuery("insert", "follows")()
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "followee_id"}},
			DoNothing: true,
		}).
		Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *FollowStore) Remove(ctx context.Context, followerID, followeeID string) (bool, error) {
	defer observability.TrackQuery("delete", "follows")()
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Count returns the number of followers of followeeID.
func (s *FollowStore) Count(ctx context.Context, followeeID string) (int64, error) {
	defer observability.TrackQuery("count", "follows")()
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("followee_id = ?", followeeID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// LikeStore persists like edges for the like toggle. Targets resolve by podcast id.
type LikeStore struct {
	db *gorm.DB
}

func NewLikeStore(db *gorm.DB) *LikeStore {
	return &LikeStore{db: db}
}

func (s *LikeStore) ResolveTarget(ctx context.Context, ref string) (string, bool, error) {
	defer observability.TrackQuery("count", "podcasts")()
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Podcast{}).Where("id = ?", ref).Count(&n).Error; err != nil {
		return "", false, models.NewInternalError(err)
	}
	return ref, n > 0, nil
}

// Create inserts the edge; a conflict on idx_like_pair means it already existed.
func (s *LikeStore) Create(ctx context.Context, likerID, podcastID string) (bool, error) {
	defer observability.TrackQuery("insert", "likes")()
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "liker_id"}, {Name: "podcast_id"}},
			DoNothing: true,
		}).
		Create(&models.Like{LikerID: likerID, PodcastID: podcastID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *LikeStore) Remove(ctx context.Context, likerID, podcastID string) (bool, error) {
	defer observability.TrackQuery("delete", "likes")()
	res := s.db.WithContext(ctx).
		Where("liker_id = ? AND podcast_id = ?", likerID, podcastID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Count returns the number of likes on podcastID.
func (s *LikeStore) Count(ctx context.Context, podcastID string) (int64, error) {
	defer observability.TrackQuery("count", "likes")()
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Like{}).Where("podcast_id = ?", podcastID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
