package repository

import (
	"context"

	"podium/internal/models"
	"podium/internal/observability"

	"gorm.io/gorm"
)

// PodcastRepository defines persistence operations for podcasts.
// viewerID decides the Liked flag; pass "" for anonymous reads.
type PodcastRepository interface {
	Create(ctx context.Context, podcast *models.Podcast) error
	GetByID(ctx context.Context, id, viewerID string) (*models.Podcast, error)
	ListByOwner(ctx context.Context, ownerID, viewerID string) ([]*models.Podcast, error)
	// Feed lists podcasts of everyone viewerID follows, newest first.
	Feed(ctx context.Context, viewerID string, limit, offset int) ([]*models.Podcast, error)
	Update(ctx context.Context, podcast *models.Podcast) error
	// Delete removes the podcast with its likes and comments in one transaction.
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

type podcastRepository struct {
	db *gorm.DB
}

// NewPodcastRepository returns a new PodcastRepository implementation.
func NewPodcastRepository(db *gorm.DB) PodcastRepository {
	return &podcastRepository{db: db}
}

func (r *podcastRepository) Create(ctx context.Context, podcast *models.Podcast) error {
	defer observability.TrackQuery("insert", "podcasts")()
	if err := r.db.WithContext(ctx).Create(podcast).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Audio file already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// applyPodcastDetails adds subqueries to fetch counts and liked status in a single query.
func applyPodcastDetails(db *gorm.DB, viewerID string) *gorm.DB {
	selectQuery := "podcasts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.podcast_id = podcasts.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.podcast_id = podcasts.id) AS likes_count"

	if viewerID != "" {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.podcast_id = podcasts.id AND likes.liker_id = ?) AS liked", viewerID)
	}
	return db.Select(selectQuery + ", false AS liked")
}

func (r *podcastRepository) GetByID(ctx context.Context, id, viewerID string) (*models.Podcast, error) {
	defer observability.TrackQuery("select", "podcasts")()
	var podcast models.Podcast
	err := applyPodcastDetails(r.db.WithContext(ctx).Model(&models.Podcast{}), viewerID).
		Preload("Owner").
		Where("podcasts.id = ?", id).
		First(&podcast).Error
	if err != nil {
		return nil, notFoundOr(err, "Podcast", id)
	}
	return &podcast, nil
}

func (r *podcastRepository) ListByOwner(ctx context.Context, ownerID, viewerID string) ([]*models.Podcast, error) {
	defer observability.TrackQuery("select", "podcasts")()
	var podcasts []*models.Podcast
	err := applyPodcastDetails(r.db.WithContext(ctx).Model(&models.Podcast{}), viewerID).
		Where("podcasts.owner_id = ?", ownerID).
		Order("podcasts.created_at DESC").
		Find(&podcasts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return podcasts, nil
}

func (r *podcastRepository) Feed(ctx context.Context, viewerID string, limit, offset int) ([]*models.Podcast, error) {
	defer observability.TrackQuery("select", "podcasts")()
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	followees := r.db.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", viewerID)

	var podcasts []*models.Podcast
	err := applyPodcastDetails(r.db.WithContext(ctx).Model(&models.Podcast{}), viewerID).
		Preload("Owner").
		Where("podcasts.owner_id IN (?)", followees).
		Order("podcasts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&podcasts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return podcasts, nil
}

func (r *podcastRepository) Update(ctx context.Context, podcast *models.Podcast) error {
	defer observability.TrackQuery("update", "podcasts")()
	res := r.db.WithContext(ctx).Model(&models.Podcast{}).
		Where("id = ?", podcast.ID).
		Updates(map[string]any{"title": podcast.Title, "description": podcast.Description})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Podcast", podcast.ID)
	}
	return nil
}

func (r *podcastRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "podcasts")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("podcast_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("podcast_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Podcast{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return notFoundOr(err, "Podcast", id)
	}
	return nil
}

func (r *podcastRepository) Exists(ctx context.Context, id string) (bool, error) {
	defer observability.TrackQuery("count", "podcasts")()
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Podcast{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}
