package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"podium/internal/auth"
	"podium/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "service-test-secret-long-enough-for-hs256"

type authFixture struct {
	svc     *AuthService
	users   *userRepoStub
	tokens  *auth.TokenService
	creds   *auth.CredentialStore
	revs    *auth.RedisRevocationStore
	mailer  *mailerStub
	now     time.Time
	redis   *miniredis.Miniredis
	digests map[string]string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:   noopUserRepo(),
		creds:   auth.NewCredentialStoreWithCost(bcrypt.MinCost),
		mailer:  &mailerStub{},
		now:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		redis:   miniredis.RunT(t),
		digests: map[string]string{},
	}
	tokens, err := auth.NewTokenService(testSecret, auth.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.tokens = tokens

	rdb := redis.NewClient(&redis.Options{Addr: f.redis.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f.revs = auth.NewRedisRevocationStore(rdb)

	f.users.passwordDigestFn = func(_ context.Context, id string) (string, error) {
		d, ok := f.digests[id]
		if !ok {
			return "", models.NewNotFoundError("User", id)
		}
		return d, nil
	}
	f.users.updatePasswordFn = func(_ context.Context, id, digest string) error {
		f.digests[id] = digest
		return nil
	}

	f.svc = NewAuthService(f.users, f.tokens, f.creds, f.revs, f.mailer)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *authFixture) addUser(t *testing.T, u *models.User, password string) {
	t.Helper()
	digest, err := f.creds.Hash(password)
	require.NoError(t, err)
	f.digests[u.ID] = digest
	f.users.getByUsernameFn = func(_ context.Context, username string) (*models.User, error) {
		if username == u.Username {
			copied := *u
			return &copied, nil
		}
		return nil, nil
	}
	f.users.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email == u.Email {
			copied := *u
			return &copied, nil
		}
		return nil, nil
	}
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)

	var created *models.User
	f.users.createFn = func(_ context.Context, u *models.User) error {
		created = u
		return nil
	}

	user, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada", LastName: "Lovelace", Username: " ada ", Email: "Ada@Example.com", Password: "analytical1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Empty(t, user.Password, "digest must not leave the service")

	require.NotNil(t, created)
	assert.NotEqual(t, "analytical1", created.Password)
	assert.True(t, strings.HasPrefix(created.Password, "$2"))
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	f.users.createFn = func(context.Context, *models.User) error {
		t.Fatal("create must not be reached")
		return nil
	}

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"bad username", RegisterInput{FirstName: "A", LastName: "B", Username: "a!", Email: "a@b.co", Password: "password1"}},
		{"bad email", RegisterInput{FirstName: "A", LastName: "B", Username: "abc", Email: "nope", Password: "password1"}},
		{"short password", RegisterInput{FirstName: "A", LastName: "B", Username: "abc", Email: "a@b.co", Password: "pw1"}},
		{"missing name", RegisterInput{LastName: "B", Username: "abc", Email: "a@b.co", Password: "password1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.in)
			assertAppCode(t, err, models.CodeValidation)
		})
	}
}

func TestAuthService_RegisterConflictPropagates(t *testing.T) {
	f := newAuthFixture(t)
	f.users.createFn = func(context.Context, *models.User) error {
		return models.NewConflictError("Username is already taken.")
	}
	_, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "A", LastName: "B", Username: "abc", Email: "a@b.co", Password: "password1",
	})
	assertAppCode(t, err, models.CodeConflict)
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, &models.User{ID: "u1", Username: "alice", Email: "alice@example.com"}, "wonderland1")
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "nobody", "whatever1")
		assert.ErrorIs(t, err, ErrUnknownUser)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "alice", "wrong-password1")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("success issues a session for the user", func(t *testing.T) {
		res, err := f.svc.Login(ctx, "alice", "wonderland1")
		require.NoError(t, err)
		claims, err := f.tokens.VerifySession(res.Token)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)
		assert.Empty(t, res.User.Password)
	})
}

func TestAuthService_LoginReactivates(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, &models.User{ID: "u1", Username: "alice", Deactivated: true}, "wonderland1")

	var reactivated bool
	f.users.setDeactivatedFn = func(_ context.Context, id string, deactivated bool) error {
		reactivated = id == "u1" && !deactivated
		return nil
	}

	res, err := f.svc.Login(context.Background(), "alice", "wonderland1")
	require.NoError(t, err)
	assert.True(t, reactivated)
	assert.False(t, res.User.Deactivated)
}

func TestAuthService_LogoutRevokesUntilExpiry(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	token, err := f.tokens.IssueSession("u1")
	require.NoError(t, err)
	claims, err := f.tokens.VerifySession(token)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims.TokenID, claims.ExpiresAt))

	guard := auth.NewSessionGuard(f.tokens, f.revs)
	assert.Equal(t, auth.StateExpired, guard.Evaluate(ctx, token).State)
	assert.Equal(t, auth.DefaultSessionTTL, f.redis.TTL("revoked:"+claims.TokenID))

	// already expired tokens need no entry
	require.NoError(t, f.svc.Logout(ctx, "old", f.now.Add(-time.Minute)))
	assert.False(t, f.redis.Exists("revoked:old"))

	assertAppCode(t, f.svc.Logout(ctx, "", claims.ExpiresAt), models.CodeValidation)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, &models.User{ID: "u1", Username: "alice"}, "wonderland1")
	ctx := context.Background()

	updated, err := f.svc.ChangePassword(ctx, "u1", "not-it-1", "looking-glass2")
	require.NoError(t, err)
	assert.False(t, updated)

	_, err = f.svc.ChangePassword(ctx, "u1", "wonderland1", "short")
	assertAppCode(t, err, models.CodeValidation)

	updated, err = f.svc.ChangePassword(ctx, "u1", "wonderland1", "looking-glass2")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.True(t, f.creds.Verify("looking-glass2", f.digests["u1"]))
}

func TestAuthService_ForgotAndResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, &models.User{ID: "u1", Username: "alice", FirstName: "Alice", Email: "alice@example.com"}, "wonderland1")
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, "Alice@Example.com", "http://localhost:3000/"))
	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Password Reset Request", msg.Subject)

	idx := strings.Index(msg.Body, "http://localhost:3000/reset-password/")
	require.GreaterOrEqual(t, idx, 0, msg.Body)
	token := strings.Fields(msg.Body[idx+len("http://localhost:3000/reset-password/"):])[0]

	email, err := f.svc.CheckResetToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "new-secret-9"))
	assert.True(t, f.creds.Verify("new-secret-9", f.digests["u1"]))

	t.Run("expired reset token", func(t *testing.T) {
		f.now = f.now.Add(16 * time.Minute)
		err := f.svc.ResetPassword(ctx, token, "another-secret-9")
		assertAppCode(t, err, auth.CodeTokenExpired)
	})

	t.Run("session token is not a reset token", func(t *testing.T) {
		session, err := f.tokens.IssueSession("u1")
		require.NoError(t, err)
		_, err = f.svc.CheckResetToken(session)
		assertAppCode(t, err, auth.CodeTokenMalformed)
	})
}

func TestAuthService_ForgotPasswordUnknownEmailSendsNothing(t *testing.T) {
	f := newAuthFixture(t)
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "ghost@example.com", "https://podium.app"))
	assert.Empty(t, f.mailer.sent)

	err := f.svc.ForgotPassword(context.Background(), "ghost@example.com", "javascript:alert(1)")
	assertAppCode(t, err, models.CodeValidation)
}

func TestAuthService_ForgotPasswordMailFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, &models.User{ID: "u1", Username: "alice", Email: "alice@example.com"}, "wonderland1")
	f.mailer.err = errors.New("smtp down")

	err := f.svc.ForgotPassword(context.Background(), "alice@example.com", "https://podium.app")
	assertAppCode(t, err, models.CodeInternal)
}
