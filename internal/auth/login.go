package auth

import (
	"context"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
)

// PasswordVerifier checks a plaintext against a stored digest.
type PasswordVerifier interface {
	Verify(plain, digest string) bool
}

// ErrNoMatch is returned for every failed login, whatever the reason.
var ErrNoMatch = domain.E(domain.KindInvalidCredentials, "Incorrect username or password")

// Authenticator checks username-or-email plus password logins.
type Authenticator struct {
	users     UserLookup
	passwords PasswordVerifier
	notFound  func(error) bool
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(users UserLookup, passwords PasswordVerifier, isNotFound func(error) bool) *Authenticator {
	return &Authenticator{users: users, passwords: passwords, notFound: isNotFound}
}

// Login looks identifier up as a username, then as an email, and verifies
// password against the match. Unknown identifiers and wrong passwords both
// return ErrNoMatch.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (*domain.User, error) {
	user, err := a.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil || !a.passwords.Verify(password, user.PasswordHash) {
		return nil, ErrNoMatch
	}
	return user, nil
}

func (a *Authenticator) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	if identifier == "" {
		return nil, nil
	}

	user, err := a.users.GetByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !a.isNotFound(err) {
		return nil, a.storageFailure(ctx, err)
	}

	user, err = a.users.GetByEmail(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !a.isNotFound(err) {
		return nil, a.storageFailure(ctx, err)
	}
	return nil, nil
}

func (a *Authenticator) isNotFound(err error) bool {
	return a.notFound != nil && a.notFound(err)
}

func (a *Authenticator) storageFailure(ctx context.Context, err error) error {
	l := log.Ctx(ctx)
	l.Error().Err(err).Msg("failed to look up login identifier")
	return domain.Persistence(err)
}
