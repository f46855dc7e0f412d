package repository

import (
	"context"
	"errors"

	"podium/internal/cache"
	"podium/internal/models"
	"podium/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// GetByID may be served from cache, which never holds the password digest.
	GetByID(ctx context.Context, id string) (*models.User, error)
	PasswordDigest(ctx context.Context, id string) (string, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, digest string) error
	UpdateProfileImage(ctx context.Context, id, image string) error
	SetDeactivated(ctx context.Context, id string, deactivated bool) error
	// Delete removes the user with everything they own and returns the
	// stored audio file names of their podcasts.
	Delete(ctx context.Context, id string) ([]string, error)
	FollowerCount(ctx context.Context, id string) (int64, error)
	FollowingCount(ctx context.Context, id string) (int64, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewUserRepository returns a new UserRepository implementation. c may be nil.
func NewUserRepository(db *gorm.DB, c *cache.Cache) UserRepository {
	return &userRepository{db: db, cache: c}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		defer observability.TrackQuery("select", "users")()
		if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
			return notFoundOr(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) PasswordDigest(ctx context.Context, id string) (string, error) {
	defer observability.TrackQuery("select", "users")()
	var digests []string
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Limit(1).Pluck("password", &digests).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	if len(digests) == 0 {
		return "", models.NewNotFoundError("User", id)
	}
	return digests[0], nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// findOne returns (nil, nil) when nothing matches.
func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	defer observability.TrackQuery("select", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("insert", "users")()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return userWriteError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("update", "users")()
	err := r.db.WithContext(ctx).Model(user).Select("FirstName", "LastName", "Username", "Email").Updates(user).Error
	if err != nil {
		return userWriteError(err)
	}
	r.invalidate(ctx, user.ID)
	return nil
}

// userWriteError maps a unique violation to a conflict naming the taken field.
func userWriteError(err error) error {
	if !isUniqueConstraintError(err) {
		return models.NewInternalError(err)
	}
	switch violatedColumn(err, "username", "email") {
	case "username":
		return models.NewConflictError("Username is already taken.")
	case "email":
		return models.NewConflictError("Email is already registered.")
	default:
		return models.NewConflictError("User already exists")
	}
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, digest string) error {
	return r.updateColumn(ctx, id, "password", digest)
}

func (r *userRepository) UpdateProfileImage(ctx context.Context, id, image string) error {
	return r.updateColumn(ctx, id, "profile_image", image)
}

func (r *userRepository) SetDeactivated(ctx context.Context, id string, deactivated bool) error {
	return r.updateColumn(ctx, id, "deactivated", deactivated)
}

func (r *userRepository) updateColumn(ctx context.Context, id, column string, value any) error {
	defer observability.TrackQuery("update", "users")()
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) ([]string, error) {
	defer observability.TrackQuery("delete", "users")()

	var audioFiles []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		podcastIDs := tx.Model(&models.Podcast{}).Select("id").Where("owner_id = ?", id)
		if err := tx.Model(&models.Podcast{}).Where("owner_id = ?", id).Pluck("audio_file", &audioFiles).Error; err != nil {
			return err
		}
		steps := []func() error{
			func() error { return tx.Where("podcast_id IN (?)", podcastIDs).Delete(&models.Like{}).Error },
			func() error { return tx.Where("podcast_id IN (?)", podcastIDs).Delete(&models.Comment{}).Error },
			func() error { return tx.Where("owner_id = ?", id).Delete(&models.Podcast{}).Error },
			func() error { return tx.Where("liker_id = ?", id).Delete(&models.Like{}).Error },
			func() error { return tx.Where("commenter_id = ?", id).Delete(&models.Comment{}).Error },
			func() error {
				return tx.Where("follower_id = ? OR followee_id = ?", id, id).Delete(&models.Follow{}).Error
			},
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	r.invalidate(ctx, id)
	return audioFiles, nil
}

func (r *userRepository) FollowerCount(ctx context.Context, id string) (int64, error) {
	return r.countFollows(ctx, "followee_id = ?", id)
}

func (r *userRepository) FollowingCount(ctx context.Context, id string) (int64, error) {
	return r.countFollows(ctx, "follower_id = ?", id)
}

func (r *userRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	n, err := r.countFollows(ctx, "follower_id = ? AND followee_id = ?", followerID, followeeID)
	return n > 0, err
}

func (r *userRepository) countFollows(ctx context.Context, query string, args ...any) (int64, error) {
	defer observability.TrackQuery("count", "follows")()
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where(query, args...).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *userRepository) invalidate(ctx context.Context, id string) {
	r.cache.Invalidate(ctx, cache.UserKey(id))
}
