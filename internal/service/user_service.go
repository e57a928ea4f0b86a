package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/weiawesome/wes-io-dorm/internal/audit"
	"github.com/weiawesome/wes-io-dorm/internal/auth"
	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/repository"
	"github.com/weiawesome/wes-io-dorm/pkg/jwt"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/password"
	"github.com/weiawesome/wes-io-dorm/pkg/pubsub"
)

var (
	ErrUserNotFound  = domain.E(domain.KindNotFound, "User not found")
	ErrUsernameTaken = domain.E(domain.KindConflict, "Username already registered")
	ErrEmailTaken    = domain.E(domain.KindConflict, "Email already registered")
	ErrAccountTaken  = domain.E(domain.KindConflict, "Username or email already registered")
	ErrSelfDemotion  = domain.E(domain.KindInvalid, "Administrators cannot disable or demote themselves")
)

// userServiceImpl implements UserService.
type userServiceImpl struct {
	repo   repository.UserRepository
	hasher *password.Hasher
	tokens *jwt.Manager
	login  *auth.Authenticator
	events pubsub.Publisher
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, hasher *password.Hasher, tokens *jwt.Manager, events pubsub.Publisher) UserService {
	return &userServiceImpl{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		login:  auth.NewAuthenticator(repo, hasher, IsUserNotFound),
		events: events,
	}
}

// IsUserNotFound reports whether err is the repository's missing-user error.
func IsUserNotFound(err error) bool {
	return errors.Is(err, repository.ErrUserNotFound)
}

// Register creates an active account and returns a token for it.
func (s *userServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.TokenResponse, error) {
	l := log.Ctx(ctx)

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, domain.Persistence(err)
	}

	user := &domain.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        domain.NormalizeEmail(req.Email),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: digest,
		IsActive:     true,
		Role:         domain.RoleUser,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrUserExists):
			return nil, ErrAccountTaken
		}
		l.Error().Err(err).Msg("failed to create user")
		return nil, domain.Persistence(err)
	}

	resp, err := s.issue(user)
	if err != nil {
		l.Error().Err(err).Uint(log.FieldUserID, user.ID).Msg("failed to issue token after register")
		return nil, domain.Persistence(err)
	}

	audit.Log(ctx, audit.ActionRegister, user.ID, "user registered")
	pubsub.Emit(ctx, s.events, pubsub.EventUserRegistered, user.Username, user.ToPublic())
	return resp, nil
}

// Login authenticates a username-or-email and password. Disabled accounts
// get the same answer as a wrong password.
func (s *userServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.login.Login(ctx, req.Username, req.Password)
	if err != nil {
		if domain.KindOf(err) == domain.KindInvalidCredentials {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, 0, req.Username, "login failed")
		}
		return nil, err
	}
	if _, err := auth.RequireActive(user); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, req.Username, "login failed: account disabled")
		return nil, auth.ErrNoMatch
	}

	resp, err := s.issue(user)
	if err != nil {
		l.Error().Err(err).Uint(log.FieldUserID, user.ID).Msg("failed to issue token after login")
		return nil, domain.Persistence(err)
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")
	return resp, nil
}

func (s *userServiceImpl) issue(user *domain.User) (*domain.TokenResponse, error) {
	token, exp, err := s.tokens.IssueAccessToken(user.Username)
	if err != nil {
		return nil, err
	}
	return &domain.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   exp.Unix(),
		User:        user.ToResponse(),
	}, nil
}

// GetPublicProfile returns the public view of a user.
func (s *userServiceImpl) GetPublicProfile(ctx context.Context, username string) (*domain.PublicUserResponse, error) {
	user, err := s.get(ctx, func() (*domain.User, error) { return s.repo.GetByUsername(ctx, username) })
	if err != nil {
		return nil, err
	}
	resp := user.ToPublic()
	return &resp, nil
}

// ListUsers returns a page of full user records.
func (s *userServiceImpl) ListUsers(ctx context.Context, offset, limit int) ([]domain.UserResponse, error) {
	users, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list users")
		return nil, domain.Persistence(err)
	}
	out := make([]domain.UserResponse, len(users))
	for i, u := range users {
		out[i] = u.ToResponse()
	}
	return out, nil
}

// LookupUser finds a user by username, then by email, then by numeric ID.
func (s *userServiceImpl) LookupUser(ctx context.Context, identifier string) (*domain.UserResponse, error) {
	user, err := s.get(ctx, func() (*domain.User, error) {
		u, err := s.repo.GetByUsername(ctx, identifier)
		if !IsUserNotFound(err) {
			return u, err
		}
		u, err = s.repo.GetByEmail(ctx, identifier)
		if !IsUserNotFound(err) {
			return u, err
		}
		if id, convErr := strconv.ParseUint(identifier, 10, 64); convErr == nil {
			return s.repo.GetByID(ctx, uint(id))
		}
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

// SetActive enables or disables an account.
func (s *userServiceImpl) SetActive(ctx context.Context, actor *domain.User, userID uint, active bool) (*domain.UserResponse, error) {
	if actor.ID == userID && !active {
		return nil, ErrSelfDemotion
	}
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return nil, s.translate(ctx, err, "failed to set active flag")
	}
	audit.LogTarget(ctx, audit.ActionSetActive, actor.ID, userID, strconv.FormatBool(active), "account active flag changed")
	return s.reload(ctx, userID)
}

// SetRole changes an account's role.
func (s *userServiceImpl) SetRole(ctx context.Context, actor *domain.User, userID uint, role string) (*domain.UserResponse, error) {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, domain.E(domain.KindInvalid, "Unknown role")
	}
	if actor.ID == userID && role != domain.RoleAdmin {
		return nil, ErrSelfDemotion
	}
	if err := s.repo.SetRole(ctx, userID, role); err != nil {
		return nil, s.translate(ctx, err, "failed to set role")
	}
	audit.LogTarget(ctx, audit.ActionSetRole, actor.ID, userID, role, "account role changed")
	return s.reload(ctx, userID)
}

func (s *userServiceImpl) reload(ctx context.Context, userID uint) (*domain.UserResponse, error) {
	user, err := s.get(ctx, func() (*domain.User, error) { return s.repo.GetByID(ctx, userID) })
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userServiceImpl) get(ctx context.Context, fetch func() (*domain.User, error)) (*domain.User, error) {
	user, err := fetch()
	if err != nil {
		return nil, s.translate(ctx, err, "failed to load user")
	}
	return user, nil
}

func (s *userServiceImpl) translate(ctx context.Context, err error, msg string) error {
	if IsUserNotFound(err) {
		return ErrUserNotFound
	}
	l := log.Ctx(ctx)
	l.Error().Err(err).Msg(msg)
	return domain.Persistence(err)
}
