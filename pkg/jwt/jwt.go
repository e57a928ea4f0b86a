package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL applies when Issue is called without a positive ttl.
const DefaultTTL = 15 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("jwt secret must not be empty")
)

// Manager signs and verifies HS256 access tokens with a shared secret.
// Tokens are stateless; there is no revocation list.
type Manager struct {
	secret         []byte
	accessDuration time.Duration
	issuer         string
	now            func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIssuer stamps an iss claim on issued tokens.
func WithIssuer(issuer string) Option {
	return func(m *Manager) { m.issuer = issuer }
}

// NewManager creates a Manager. accessDuration <= 0 falls back to DefaultTTL.
func NewManager(secret string, accessDuration time.Duration, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if accessDuration <= 0 {
		accessDuration = DefaultTTL
	}
	m := &Manager{
		secret:         []byte(secret),
		accessDuration: accessDuration,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// AccessDuration is the lifetime given to tokens from IssueAccessToken.
func (m *Manager) AccessDuration() time.Duration {
	return m.accessDuration
}

// Issue signs claims merged with iat and exp = now+ttl. The caller's map is
// not modified.
func (m *Manager) Issue(claims map[string]any, ttl time.Duration) (string, error) {
	return m.issueAt(m.now(), claims, ttl)
}

func (m *Manager) issueAt(now time.Time, claims map[string]any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	merged := make(jwt.MapClaims, len(claims)+3)
	for k, v := range claims {
		merged[k] = v
	}
	merged["iat"] = now.Unix()
	merged["exp"] = now.Add(ttl).Unix()
	if m.issuer != "" {
		if _, ok := merged["iss"]; !ok {
			merged["iss"] = m.issuer
		}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, merged).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueAccessToken mints a token for subject with the configured lifetime.
// It returns the token and its expiry.
func (m *Manager) IssueAccessToken(subject string) (string, time.Time, error) {
	now := m.now()
	token, err := m.issueAt(now, map[string]any{"sub": subject}, m.accessDuration)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Unix(now.Add(m.accessDuration).Unix(), 0), nil
}

// Verify checks the signature, algorithm and expiry of token and returns its
// claims. Every failure is reported as ErrInvalidToken.
func (m *Manager) Verify(token string) (map[string]any, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return map[string]any(claims), nil
}

// Subject returns the non-empty string sub claim, or ErrInvalidToken.
func Subject(claims map[string]any) (string, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
