// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"podium/internal/auth"
	"podium/internal/models"
	"podium/internal/repository"
	"podium/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account logs in with.
const DefaultPassword = "password123"

// placeholderAudio is stored for every seeded podcast: an ID3 header with no frames.
var placeholderAudio = []byte("ID3\x04\x00\x00\x00\x00\x00\x00")

var nonUsernameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Options tune how the factory builds and persists entities.
type Options struct {
	// DryRun builds entities and assigns synthetic ids without touching the database.
	DryRun bool
	// SkipBcrypt stores the plaintext password instead of a bcrypt digest.
	SkipBcrypt bool
	// MaxDays bounds how far back created_at timestamps are spread.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db      *gorm.DB
	files   storage.FileStore
	opts    Options
	digest  string
	follows *repository.FollowStore
	likes   *repository.LikeStore
	rng     *rand.Rand
	taken   map[string]bool
	// synthetic ID counter when running in DryRun mode
	nextID int
}

// NewFactory creates a Factory bound to db. files receives placeholder audio
// for seeded podcasts and may be nil, in which case no audio is written.
func NewFactory(db *gorm.DB, files storage.FileStore, opts Options) (*Factory, error) {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)

	digest := DefaultPassword
	if !opts.SkipBcrypt {
		var err error
		digest, err = auth.NewCredentialStore().Hash(DefaultPassword)
		if err != nil {
			return nil, fmt.Errorf("hash seed password: %w", err)
		}
	}

	f := &Factory{
		db:     db,
		files:  files,
		opts:   opts,
		digest: digest,
		// #nosec G404: acceptable for seeding
		rng:    rand.New(rand.NewSource(seed)),
		taken:  map[string]bool{},
		nextID: 1000,
	}
	if db != nil {
		f.follows = repository.NewFollowStore(db)
		f.likes = repository.NewLikeStore(db)
	}
	return f, nil
}

func (f *Factory) syntheticID() string {
	f.nextID++
	return fmt.Sprintf("dry-run-%d", f.nextID)
}

// createdAt spreads timestamps over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// username derives a unique handle that passes account validation.
func (f *Factory) username(first, last string) string {
	base := strings.ToLower(nonUsernameChars.ReplaceAllString(first+last, ""))
	if len(base) > 11 {
		base = base[:11]
	}
	if len(base) < 3 {
		base = "user"
	}
	for {
		candidate := fmt.Sprintf("%s%d", base, gofakeit.Number(100, 9999))
		if !f.taken[candidate] {
			f.taken[candidate] = true
			return candidate
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimSpace(string(r))
}

// BuildUser constructs a sample user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first := truncate(gofakeit.FirstName(), 20)
	last := truncate(gofakeit.LastName(), 20)
	username := f.username(first, last)

	user := &models.User{
		FirstName:    first,
		LastName:     last,
		Username:     username,
		Email:        username + "@example.com",
		Password:     f.digest,
		ProfileImage: models.DefaultProfileImage,
		CreatedAt:    f.createdAt(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)

	if f.opts.DryRun {
		user.ID = f.syntheticID()
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPodcast constructs a podcast owned by owner without persisting it or its audio.
func (f *Factory) BuildPodcast(owner *models.User, overrides ...func(*models.Podcast)) *models.Podcast {
	podcast := &models.Podcast{
		OwnerID:     owner.ID,
		Title:       truncate(strings.TrimSuffix(gofakeit.Sentence(4), "."), 50),
		Description: truncate(gofakeit.Paragraph(1, 3, 8, " "), 500),
		AudioFile:   storage.NewName("mp3"),
		CreatedAt:   f.createdAt(),
	}
	for _, override := range overrides {
		override(podcast)
	}
	return podcast
}

// CreatePodcast persists a sample podcast and stores placeholder audio for it.
func (f *Factory) CreatePodcast(ctx context.Context, owner *models.User, overrides ...func(*models.Podcast)) (*models.Podcast, error) {
	podcast := f.BuildPodcast(owner, overrides...)

	if f.opts.DryRun {
		podcast.ID = f.syntheticID()
		log.Printf("[dry-run] CreatePodcast: owner=%s title=%q", owner.Username, podcast.Title)
		return podcast, nil
	}

	if f.files != nil {
		err := f.files.Save(ctx, storage.BucketPodcasts, podcast.AudioFile, bytes.NewReader(placeholderAudio), "audio/mpeg")
		if err != nil {
			return nil, fmt.Errorf("store audio: %w", err)
		}
	}
	if err := f.db.WithContext(ctx).Create(podcast).Error; err != nil {
		return nil, err
	}
	return podcast, nil
}

// CreateComment constructs and persists a sample `models.Comment` on the
// provided podcast authored by the provided user.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, podcast *models.Podcast, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Body:        truncate(gofakeit.Sentence(8), 150),
		CommenterID: author.ID,
		PodcastID:   podcast.ID,
		CreatedAt:   f.createdAt(),
	}
	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		comment.ID = f.syntheticID()
		return comment, nil
	}
	if err := f.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateFollow makes follower follow followee. created is false when the
// edge already existed.
func (f *Factory) CreateFollow(ctx context.Context, follower, followee *models.User) (bool, error) {
	if f.opts.DryRun || follower.ID == followee.ID {
		return false, nil
	}
	return f.follows.Create(ctx, follower.ID, followee.ID)
}

// CreateLike records a like from user on podcast. created is false when the
// edge already existed.
func (f *Factory) CreateLike(ctx context.Context, user *models.User, podcast *models.Podcast) (bool, error) {
	if f.opts.DryRun {
		return false, nil
	}
	return f.likes.Create(ctx, user.ID, podcast.ID)
}
