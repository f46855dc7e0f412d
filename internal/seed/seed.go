package seed

import (
	"context"
	"fmt"
	"log"

	"podium/internal/models"
	"podium/internal/storage"

	"gorm.io/gorm"
)

// Seeder fills a database with a connected graph of demo users, podcasts,
// follows, likes and comments.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a Seeder writing through db and files.
func NewSeeder(db *gorm.DB, files storage.FileStore, opts Options) (*Seeder, error) {
	factory, err := NewFactory(db, files, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: factory}, nil
}

// Summary counts what a seeding run created.
type Summary struct {
	Users    int
	Podcasts int
	Follows  int
	Likes    int
	Comments int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d podcasts, %d follows, %d likes, %d comments",
		s.Users, s.Podcasts, s.Follows, s.Likes, s.Comments)
}

// ClearAll deletes every row, children before parents. Stored audio files are left in place.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	tables := []any{&models.Comment{}, &models.Like{}, &models.Follow{}, &models.Podcast{}, &models.User{}}
	for _, model := range tables {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Apply runs preset: fixed accounts first, then generated users, their
// podcasts and the engagement between them.
func (s *Seeder) Apply(ctx context.Context, preset Preset) (Summary, error) {
	var sum Summary

	users := make([]*models.User, 0, len(preset.Accounts)+preset.Users)
	for _, acct := range preset.Accounts {
		user, err := s.factory.CreateUser(func(u *models.User) {
			u.Username = acct.Username
			u.Email = acct.Email
			if acct.FirstName != "" {
				u.FirstName = acct.FirstName
			}
			if acct.LastName != "" {
				u.LastName = acct.LastName
			}
		})
		if err != nil {
			return sum, fmt.Errorf("create account %s: %w", acct.Username, err)
		}
		users = append(users, user)
	}

	generated, err := s.SeedUsers(preset.Users)
	if err != nil {
		return sum, err
	}
	users = append(users, generated...)
	sum.Users = len(users)

	podcasts, err := s.SeedPodcasts(ctx, users, preset.PodcastsPerUser)
	if err != nil {
		return sum, err
	}
	sum.Podcasts = len(podcasts)

	if sum.Follows, err = s.SeedFollows(ctx, users, preset.FollowsPerUser); err != nil {
		return sum, err
	}
	if sum.Likes, err = s.SeedLikes(ctx, users, podcasts, preset.LikesPerPodcast); err != nil {
		return sum, err
	}
	if sum.Comments, err = s.SeedComments(ctx, users, podcasts, preset.CommentsPerPodcast); err != nil {
		return sum, err
	}

	log.Printf("🎉 Seeded %s", sum)
	return sum, nil
}

// SeedUsers creates n generated users.
func (s *Seeder) SeedUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return users, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("✓ %d users created", len(users))
	return users, nil
}

// SeedPodcasts gives every user perUser podcasts.
func (s *Seeder) SeedPodcasts(ctx context.Context, users []*models.User, perUser int) ([]*models.Podcast, error) {
	podcasts := make([]*models.Podcast, 0, len(users)*perUser)
	for _, user := range users {
		for i := 0; i < perUser; i++ {
			podcast, err := s.factory.CreatePodcast(ctx, user)
			if err != nil {
				return podcasts, fmt.Errorf("create podcast for %s: %w", user.Username, err)
			}
			podcasts = append(podcasts, podcast)
		}
	}
	log.Printf("✓ %d podcasts created", len(podcasts))
	return podcasts, nil
}

// SeedFollows makes each user follow up to perUser random others.
func (s *Seeder) SeedFollows(ctx context.Context, users []*models.User, perUser int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	if perUser > len(users)-1 {
		perUser = len(users) - 1
	}
	created := 0
	for _, follower := range users {
		mine := 0
		for _, idx := range s.factory.rng.Perm(len(users)) {
			if mine >= perUser {
				break
			}
			followee := users[idx]
			if followee.ID == follower.ID {
				continue
			}
			ok, err := s.factory.CreateFollow(ctx, follower, followee)
			if err != nil {
				return created, fmt.Errorf("follow: %w", err)
			}
			if ok {
				mine++
				created++
			}
		}
	}
	log.Printf("✓ %d follows created", created)
	return created, nil
}

// SeedLikes adds up to perPodcast likes from random users to every podcast.
func (s *Seeder) SeedLikes(ctx context.Context, users []*models.User, podcasts []*models.Podcast, perPodcast int) (int, error) {
	if perPodcast > len(users) {
		perPodcast = len(users)
	}
	if perPodcast <= 0 {
		return 0, nil
	}
	created := 0
	for _, podcast := range podcasts {
		for _, idx := range s.factory.rng.Perm(len(users))[:perPodcast] {
			ok, err := s.factory.CreateLike(ctx, users[idx], podcast)
			if err != nil {
				return created, fmt.Errorf("like: %w", err)
			}
			if ok {
				created++
			}
		}
	}
	log.Printf("✓ %d likes created", created)
	return created, nil
}

// SeedComments adds perPodcast comments from random users to every podcast.
func (s *Seeder) SeedComments(ctx context.Context, users []*models.User, podcasts []*models.Podcast, perPodcast int) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	created := 0
	for _, podcast := range podcasts {
		for i := 0; i < perPodcast; i++ {
			author := users[s.factory.rng.Intn(len(users))]
			if _, err := s.factory.CreateComment(ctx, author, podcast); err != nil {
				return created, fmt.Errorf("comment: %w", err)
			}
			created++
		}
	}
	log.Printf("✓ %d comments created", created)
	return created, nil
}
