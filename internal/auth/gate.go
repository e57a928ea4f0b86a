package auth

import "github.com/weiawesome/wes-io-dorm/internal/domain"

// Gate passes a user through unchanged or rejects it with a classified error.
type Gate func(*domain.User) (*domain.User, error)

// RequireActive rejects disabled accounts.
func RequireActive(u *domain.User) (*domain.User, error) {
	if !u.IsActive {
		return nil, domain.ErrAccountDisabled
	}
	return u, nil
}

// RequireAdmin rejects users without the admin role.
func RequireAdmin(u *domain.User) (*domain.User, error) {
	if !u.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return u, nil
}

var (
	// ActiveUser is the gate chain for ordinary protected endpoints.
	ActiveUser = []Gate{RequireActive}
	// AdminUser checks activity before role, so an inactive admin is
	// reported as disabled.
	AdminUser = []Gate{RequireActive, RequireAdmin}
)

// Apply runs gates left to right, stopping at the first failure.
func Apply(u *domain.User, gates ...Gate) (*domain.User, error) {
	var err error
	for _, g := range gates {
		if u, err = g(u); err != nil {
			return nil, err
		}
	}
	return u, nil
}
