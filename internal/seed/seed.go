// Package seed creates the default accounts on an empty deployment.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/repository"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/password"
)

// Account is one default user.
type Account struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      string
	Password  string
}

// Defaults returns the standard accounts with the given passwords.
func Defaults(userPassword, adminPassword string) []Account {
	return []Account{
		{Username: "testuser", Email: "testuser@example.com", FirstName: "Test", LastName: "User", Role: domain.RoleUser, Password: userPassword},
		{Username: "testuser2", Email: "testuser2@example.com", FirstName: "Test2", LastName: "User2", Role: domain.RoleUser, Password: userPassword},
		{Username: "admin", Email: "admin@example.com", FirstName: "Admin", LastName: "User", Role: domain.RoleAdmin, Password: adminPassword},
	}
}

// Run creates every account whose username is not taken yet and returns
// how many were created. Running it twice is harmless.
func Run(ctx context.Context, users repository.UserRepository, hasher *password.Hasher, accounts []Account) (int, error) {
	l := log.Ctx(ctx)
	created := 0

	for _, a := range accounts {
		_, err := users.GetByUsername(ctx, a.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return created, fmt.Errorf("seed %s: %w", a.Username, err)
		}

		digest, err := hasher.Hash(a.Password)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", a.Username, err)
		}
		u := &domain.User{
			Username:     a.Username,
			Email:        a.Email,
			FirstName:    a.FirstName,
			LastName:     a.LastName,
			PasswordHash: digest,
			IsActive:     true,
			Role:         a.Role,
		}
		if err := users.Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				l.Warn().Str(log.FieldUsername, a.Username).Msg("seed email already taken, skipping")
				continue
			}
			return created, fmt.Errorf("seed %s: %w", a.Username, err)
		}
		l.Info().Str(log.FieldUsername, a.Username).Str("role", a.Role).Msg("seeded account")
		created++
	}
	return created, nil
}
