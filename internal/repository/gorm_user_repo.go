package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts user and fills in its ID and creation time.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.Email = domain.NormalizeEmail(user.Email)

	// Check first: with TranslateError the driver reports only ErrDuplicatedKey
	// and not which column collided.
	if _, err := r.GetByUsername(ctx, user.Username); err == nil {
		return ErrUsernameExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	model := domain.UserToModel(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if !isDuplicate(err) {
			return err
		}
		if known := duplicateColumn(err); known != nil {
			return known
		}
		// Lost a race with a concurrent insert; the rows now exist.
		return r.whichDuplicate(ctx, user)
	}

	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	return nil
}

func (r *GormUserRepository) first(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).Where(query, arg).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByUsername retrieves a user by exact username.
func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "username = ?", username)
}

// GetByEmail retrieves a user by email, ignoring case and surrounding space.
func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *GormUserRepository) whichDuplicate(ctx context.Context, user *domain.User) error {
	if _, err := r.GetByUsername(ctx, user.Username); err == nil {
		return ErrUsernameExists
	}
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return ErrEmailExists
	}
	return ErrUserExists
}

// List returns users ordered by ID. limit <= 0 means no limit.
func (r *GormUserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = -1
	}
	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]*domain.User, len(models))
	for i := range models {
		users[i] = models[i].ToDomain()
	}
	return users, nil
}

// SetActive updates the active flag.
func (r *GormUserRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.update(ctx, id, "is_active", active)
}

// SetRole updates the role.
func (r *GormUserRepository) SetRole(ctx context.Context, id uint, role string) error {
	return r.update(ctx, id, "role", role)
}

func (r *GormUserRepository) update(ctx context.Context, id uint, column string, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	// Some drivers report zero rows when the value is unchanged.
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.UserModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
