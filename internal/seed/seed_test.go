package seed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/repository"
	"github.com/weiawesome/wes-io-dorm/pkg/database"
	"github.com/weiawesome/wes-io-dorm/pkg/password"
)

func TestRunSeedsOnce(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, repository.Models()...))
	t.Cleanup(func() { _ = database.Close(db) })

	users := repository.NewGormUserRepository(db)
	hasher := password.NewHasher(bcrypt.MinCost)
	accounts := Defaults("TestPassword123", "AdminPassword123")

	n, err := Run(ctx, users, hasher, accounts)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = Run(ctx, users, hasher, accounts)
	require.NoError(t, err)
	assert.Zero(t, n)

	admin, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive)
	assert.True(t, hasher.Verify("AdminPassword123", admin.PasswordHash))

	u, err := users.GetByEmail(ctx, "testuser2@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.True(t, hasher.Verify("TestPassword123", u.PasswordHash))
}
