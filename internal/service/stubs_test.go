package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"podium/internal/mail"
	"podium/internal/models"
	"podium/internal/notifications"
	"podium/internal/storage"
)

type userRepoStub struct {
	getByIDFn            func(context.Context, string) (*models.User, error)
	passwordDigestFn     func(context.Context, string) (string, error)
	getByEmailFn         func(context.Context, string) (*models.User, error)
	getByUsernameFn      func(context.Context, string) (*models.User, error)
	createFn             func(context.Context, *models.User) error
	updateFn             func(context.Context, *models.User) error
	updatePasswordFn     func(context.Context, string, string) error
	updateProfileImageFn func(context.Context, string, string) error
	setDeactivatedFn     func(context.Context, string, bool) error
	deleteFn             func(context.Context, string) ([]string, error)
	followerCountFn      func(context.Context, string) (int64, error)
	followingCountFn     func(context.Context, string) (int64, error)
	isFollowingFn        func(context.Context, string, string) (bool, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) PasswordDigest(ctx context.Context, id string) (string, error) {
	return s.passwordDigestFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id, digest string) error {
	return s.updatePasswordFn(ctx, id, digest)
}
func (s *userRepoStub) UpdateProfileImage(ctx context.Context, id, image string) error {
	return s.updateProfileImageFn(ctx, id, image)
}
func (s *userRepoStub) SetDeactivated(ctx context.Context, id string, deactivated bool) error {
	return s.setDeactivatedFn(ctx, id, deactivated)
}
func (s *userRepoStub) Delete(ctx context.Context, id string) ([]string, error) {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) FollowerCount(ctx context.Context, id string) (int64, error) {
	return s.followerCountFn(ctx, id)
}
func (s *userRepoStub) FollowingCount(ctx context.Context, id string) (int64, error) {
	return s.followingCountFn(ctx, id)
}
func (s *userRepoStub) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followeeID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:            func(_ context.Context, id string) (*models.User, error) { return &models.User{ID: id}, nil },
		passwordDigestFn:     func(context.Context, string) (string, error) { return "", nil },
		getByEmailFn:         func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn:      func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:             func(context.Context, *models.User) error { return nil },
		updateFn:             func(context.Context, *models.User) error { return nil },
		updatePasswordFn:     func(context.Context, string, string) error { return nil },
		updateProfileImageFn: func(context.Context, string, string) error { return nil },
		setDeactivatedFn:     func(context.Context, string, bool) error { return nil },
		deleteFn:             func(context.Context, string) ([]string, error) { return nil, nil },
		followerCountFn:      func(context.Context, string) (int64, error) { return 0, nil },
		followingCountFn:     func(context.Context, string) (int64, error) { return 0, nil },
		isFollowingFn:        func(context.Context, string, string) (bool, error) { return false, nil },
	}
}

type podcastRepoStub struct {
	createFn      func(context.Context, *models.Podcast) error
	getByIDFn     func(context.Context, string, string) (*models.Podcast, error)
	listByOwnerFn func(context.Context, string, string) ([]*models.Podcast, error)
	feedFn        func(context.Context, string, int, int) ([]*models.Podcast, error)
	updateFn      func(context.Context, *models.Podcast) error
	deleteFn      func(context.Context, string) error
	existsFn      func(context.Context, string) (bool, error)
}

func (s *podcastRepoStub) Create(ctx context.Context, p *models.Podcast) error {
	return s.createFn(ctx, p)
}
func (s *podcastRepoStub) GetByID(ctx context.Context, id, viewerID string) (*models.Podcast, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *podcastRepoStub) ListByOwner(ctx context.Context, ownerID, viewerID string) ([]*models.Podcast, error) {
	return s.listByOwnerFn(ctx, ownerID, viewerID)
}
func (s *podcastRepoStub) Feed(ctx context.Context, viewerID string, limit, offset int) ([]*models.Podcast, error) {
	return s.feedFn(ctx, viewerID, limit, offset)
}
func (s *podcastRepoStub) Update(ctx context.Context, p *models.Podcast) error {
	return s.updateFn(ctx, p)
}
func (s *podcastRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
func (s *podcastRepoStub) Exists(ctx context.Context, id string) (bool, error) {
	return s.existsFn(ctx, id)
}

func noopPodcastRepo() *podcastRepoStub {
	return &podcastRepoStub{
		createFn: func(context.Context, *models.Podcast) error { return nil },
		getByIDFn: func(_ context.Context, id, _ string) (*models.Podcast, error) {
			return &models.Podcast{ID: id, OwnerID: "owner", AudioFile: "a.mp3"}, nil
		},
		listByOwnerFn: func(context.Context, string, string) ([]*models.Podcast, error) { return nil, nil },
		feedFn:        func(context.Context, string, int, int) ([]*models.Podcast, error) { return nil, nil },
		updateFn:      func(context.Context, *models.Podcast) error { return nil },
		deleteFn:      func(context.Context, string) error { return nil },
		existsFn:      func(context.Context, string) (bool, error) { return true, nil },
	}
}

type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, string) (*models.Comment, error)
	listByPodcastFn func(context.Context, string) ([]*models.Comment, error)
	deleteFn        func(context.Context, string) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPodcast(ctx context.Context, podcastID string) ([]*models.Comment, error) {
	return s.listByPodcastFn(ctx, podcastID)
}
func (s *commentRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:        func(context.Context, *models.Comment) error { return nil },
		getByIDFn:       func(context.Context, string) (*models.Comment, error) { return &models.Comment{}, nil },
		listByPodcastFn: func(context.Context, string) ([]*models.Comment, error) { return nil, nil },
		deleteFn:        func(context.Context, string) error { return nil },
	}
}

// memoryFiles is an in-memory storage.FileStore.
type memoryFiles struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
	deleted []string
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{files: map[string][]byte{}}
}

func (m *memoryFiles) Backend() string { return "memory" }

func (m *memoryFiles) Save(_ context.Context, bucket, name string, r io.Reader, _ string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[bucket+"/"+name] = data
	return nil
}

func (m *memoryFiles) Open(_ context.Context, bucket, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[bucket+"/"+name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryFiles) Delete(_ context.Context, bucket, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, bucket+"/"+name)
	m.deleted = append(m.deleted, bucket+"/"+name)
	return nil
}

func (m *memoryFiles) has(bucket, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[bucket+"/"+name]
	return ok
}

type sentEvent struct {
	userID string
	event  notifications.Event
}

type publisherStub struct {
	events []sentEvent
	err    error
}

func (p *publisherStub) PublishUser(_ context.Context, userID string, ev notifications.Event) error {
	p.events = append(p.events, sentEvent{userID: userID, event: ev})
	return p.err
}

type mailerStub struct {
	sent []mail.Message
	err  error
}

func (m *mailerStub) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *models.AppError with code %s, got %T (%v)", code, err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
}
