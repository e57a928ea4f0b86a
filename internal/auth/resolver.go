// Package auth turns bearer tokens and passwords into verified identities.
//
// A request is authenticated by a left-to-right pipeline: the token is
// verified, its subject resolved to a stored user, then each Gate runs in
// order. The first failing stage ends the pipeline.
package auth

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
)

// UserLookup is the storage the auth path reads users from.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (map[string]any, error)
}

// Resolver resolves bearer tokens to users. Users are re-read from storage
// on every call.
type Resolver struct {
	tokens TokenVerifier
	users  UserLookup
	// notFound reports whether err from users means "no such user".
	notFound func(error) bool
}

// NewResolver creates a Resolver. isNotFound classifies lookup errors that
// mean the user does not exist; other lookup errors surface as persistence
// failures.
func NewResolver(tokens TokenVerifier, users UserLookup, isNotFound func(error) bool) *Resolver {
	return &Resolver{tokens: tokens, users: users, notFound: isNotFound}
}

// Resolve verifies token and loads the user named by its sub claim.
// Bad signatures, expired tokens, missing subjects and unknown users all
// yield the same ErrInvalidCredentials.
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrInvalidCredentials
	}

	claims, err := r.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := r.users.GetByUsername(ctx, username)
	if err != nil {
		if r.notFound != nil && r.notFound(err) {
			return nil, domain.ErrInvalidCredentials
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUsername, username).Msg("failed to load user for token")
		return nil, domain.Persistence(err)
	}
	return user, nil
}

// Authenticate resolves token then applies gates in order.
func (r *Resolver) Authenticate(ctx context.Context, token string, gates ...Gate) (*domain.User, error) {
	user, err := r.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return Apply(user, gates...)
}

// IsInvalidCredentials reports whether err is an invalid-credentials failure.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, domain.ErrInvalidCredentials)
}
