package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/pkg/jwt"
	"github.com/weiawesome/wes-io-dorm/pkg/password"
)

var errMissing = errors.New("missing")

type fakeUsers struct {
	byName  map[string]*domain.User
	byEmail map[string]*domain.User
	err     error
}

func (f *fakeUsers) GetByUsername(_ context.Context, name string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byName[name]; ok {
		return u, nil
	}
	return nil, errMissing
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, errMissing
}

func isMissing(err error) bool { return errors.Is(err, errMissing) }

type fixture struct {
	users    *fakeUsers
	tokens   *jwt.Manager
	hasher   *password.Hasher
	resolver *Resolver
	login    *Authenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher := password.NewHasher(bcrypt.MinCost)
	digest, err := hasher.Hash("TestPassword123")
	require.NoError(t, err)

	users := &fakeUsers{byName: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
	add := func(u *domain.User) {
		u.PasswordHash = digest
		users.byName[u.Username] = u
		users.byEmail[u.Email] = u
	}
	add(&domain.User{ID: 1, Username: "testuser", Email: "test@dorm.test", IsActive: true, Role: domain.RoleUser})
	add(&domain.User{ID: 2, Username: "sleepy", Email: "sleepy@dorm.test", IsActive: false, Role: domain.RoleUser})
	add(&domain.User{ID: 3, Username: "admin", Email: "admin@dorm.test", IsActive: true, Role: domain.RoleAdmin})
	add(&domain.User{ID: 4, Username: "retired", Email: "retired@dorm.test", IsActive: false, Role: domain.RoleAdmin})

	tokens, err := jwt.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	return &fixture{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		resolver: NewResolver(tokens, users, isMissing),
		login:    NewAuthenticator(users, hasher, isMissing),
	}
}

func (f *fixture) token(t *testing.T, sub string) string {
	t.Helper()
	tok, _, err := f.tokens.IssueAccessToken(sub)
	require.NoError(t, err)
	return tok
}

func TestResolveValidToken(t *testing.T) {
	f := newFixture(t)
	u, err := f.resolver.Resolve(context.Background(), f.token(t, "testuser"))
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)
}

func TestResolveFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	other, err := jwt.NewManager("other-secret", time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.IssueAccessToken("testuser")
	require.NoError(t, err)
	noSub, err := f.tokens.Issue(map[string]any{"role": "admin"}, time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"malformed":      "not.a.jwt",
		"foreign secret": foreign,
		"no subject":     noSub,
		"unknown user":   f.token(t, "ghost"),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.resolver.Resolve(context.Background(), tok)
			require.Error(t, err)
			assert.Same(t, domain.ErrInvalidCredentials, err)
		})
	}
}

func TestResolveStorageFailure(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, "testuser")
	f.users.err = errors.New("connection reset")

	_, err := f.resolver.Resolve(context.Background(), tok)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.False(t, IsInvalidCredentials(err))
}

func TestInactiveUserRejectedAfterResolution(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, "sleepy")

	u, err := f.resolver.Resolve(context.Background(), tok)
	require.NoError(t, err, "resolution alone succeeds")
	assert.Equal(t, "sleepy", u.Username)

	_, err = f.resolver.Authenticate(context.Background(), tok, ActiveUser...)
	assert.ErrorIs(t, err, domain.ErrAccountDisabled)
}

func TestAdminGateOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.resolver.Authenticate(ctx, f.token(t, "admin"), AdminUser...)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	_, err = f.resolver.Authenticate(ctx, f.token(t, "testuser"), AdminUser...)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.resolver.Authenticate(ctx, f.token(t, "retired"), AdminUser...)
	assert.ErrorIs(t, err, domain.ErrAccountDisabled, "activity is checked before role")
}

func TestApplyShortCircuits(t *testing.T) {
	calls := 0
	count := func(u *domain.User) (*domain.User, error) {
		calls++
		return u, nil
	}
	_, err := Apply(&domain.User{IsActive: false}, RequireActive, count)
	assert.ErrorIs(t, err, domain.ErrAccountDisabled)
	assert.Zero(t, calls)

	u, err := Apply(&domain.User{ID: 9, IsActive: true}, RequireActive, count)
	require.NoError(t, err)
	assert.Equal(t, uint(9), u.ID)
	assert.Equal(t, 1, calls)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.login.Login(ctx, "testuser", "TestPassword123")
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)

	u, err = f.login.Login(ctx, "test@dorm.test", "TestPassword123")
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, wrongPassword := f.login.Login(ctx, "testuser", "nope")
	_, unknownUser := f.login.Login(ctx, "nobody", "TestPassword123")
	_, empty := f.login.Login(ctx, "", "")

	for _, err := range []error{wrongPassword, unknownUser, empty} {
		require.Error(t, err)
		assert.Same(t, ErrNoMatch, err)
	}
}

func TestLoginStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.users.err = errors.New("db down")
	_, err := f.login.Login(context.Background(), "testuser", "TestPassword123")
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
