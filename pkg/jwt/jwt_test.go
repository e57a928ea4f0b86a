package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newManager(t *testing.T, secret string, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(secret, 300*time.Minute, WithClock(clock.Now))
	require.NoError(t, err)
	return m
}

func TestIssueVerifyAroundExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newManager(t, "dorm-secret", clock)

	ttl := 10 * time.Minute
	token, err := m.Issue(map[string]any{"sub": "alice"}, ttl)
	require.NoError(t, err)

	clock.t = clock.t.Add(ttl - time.Second)
	claims, err := m.Verify(token)
	require.NoError(t, err)
	sub, err := Subject(claims)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	clock.t = clock.t.Add(2 * time.Second)
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueDefaultTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newManager(t, "dorm-secret", clock)

	token, err := m.Issue(map[string]any{"sub": "bob"}, 0)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.EqualValues(t, clock.t.Add(DefaultTTL).Unix(), claims["exp"])
	assert.EqualValues(t, clock.t.Unix(), claims["iat"])
}

func TestIssueDoesNotMutateInput(t *testing.T) {
	m := newManager(t, "dorm-secret", &fakeClock{t: time.Now()})
	in := map[string]any{"sub": "carol"}
	_, err := m.Issue(in, time.Minute)
	require.NoError(t, err)
	assert.Len(t, in, 1)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	ours := newManager(t, "dorm-secret", clock)
	theirs := newManager(t, "someone-else", clock)

	for _, claims := range []map[string]any{
		{"sub": "alice"},
		{"sub": "admin", "role": "admin"},
		{},
	} {
		token, err := theirs.Issue(claims, time.Hour)
		require.NoError(t, err)
		_, err = ours.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerifyRejectsMalformedAndOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newManager(t, "dorm-secret", clock)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}

	none, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, gojwt.MapClaims{
		"sub": "alice",
		"exp": clock.t.Add(time.Hour).Unix(),
	}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, gojwt.MapClaims{
		"sub": "alice",
		"exp": clock.t.Add(time.Hour).Unix(),
	}).SignedString([]byte("dorm-secret"))
	require.NoError(t, err)
	_, err = m.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	m := newManager(t, "dorm-secret", &fakeClock{t: time.Now()})
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{"sub": "alice"}).
		SignedString([]byte("dorm-secret"))
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueAccessToken(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newManager(t, "dorm-secret", clock)

	token, exp, err := m.IssueAccessToken("testuser")
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(300*time.Minute), exp)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", claims["sub"])
}

func TestSubject(t *testing.T) {
	_, err := Subject(map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = Subject(map[string]any{"sub": ""})
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = Subject(map[string]any{"sub": 42})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Minute)
	assert.ErrorIs(t, err, ErrEmptySecret)

	m, err := NewManager("s", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, m.AccessDuration())
}
