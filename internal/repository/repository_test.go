package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, Models()...))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func createUser(t *testing.T, repo *GormUserRepository, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     username,
		Email:        username + "@dorm.test",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	alice := createUser(t, repo, "alice")
	assert.NotZero(t, alice.ID)
	assert.Equal(t, domain.RoleUser, alice.Role)
	assert.False(t, alice.CreatedAt.IsZero())

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.True(t, got.IsActive)

	got, err = repo.GetByEmail(ctx, "alice@dorm.test")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepositoryPersistsInactive(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	u := &domain.User{Username: "ghost", Email: "ghost@dorm.test", PasswordHash: "x", IsActive: false}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestUserRepositoryUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))
	createUser(t, repo, "alice")

	err := repo.Create(ctx, &domain.User{Username: "alice", Email: "other@dorm.test", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	err = repo.Create(ctx, &domain.User{Username: "alice2", Email: "alice@dorm.test", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrEmailExists)

	err = repo.Create(ctx, &domain.User{Username: "alice3", Email: " ALICE@Dorm.Test", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepositoryEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))
	u := &domain.User{Username: "alice", Email: "Alice@Dorm.Test", PasswordHash: "x", IsActive: true}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, "alice@dorm.test", u.Email)

	for _, email := range []string{"Alice@Dorm.Test", "alice@dorm.test", "  ALICE@DORM.TEST "} {
		got, err := repo.GetByEmail(ctx, email)
		require.NoError(t, err, email)
		assert.Equal(t, u.ID, got.ID)
	}
}

func TestDuplicateColumn(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{`Error 1062 (23000): Duplicate entry 'myemail' for key 'users.idx_users_username'`, ErrUsernameExists},
		{`Error 1062 (23000): Duplicate entry 'a@b.c' for key 'users.idx_users_email'`, ErrEmailExists},
		{`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`, ErrEmailExists},
		{`UNIQUE constraint failed: users.username`, ErrUsernameExists},
		{gorm.ErrDuplicatedKey.Error(), nil},
	}
	for _, tc := range cases {
		err := fmt.Errorf("%s", tc.msg)
		assert.True(t, isDuplicate(err) || tc.want == nil, tc.msg)
		got := duplicateColumn(err)
		if tc.want == nil {
			assert.NoError(t, got, tc.msg)
			continue
		}
		assert.ErrorIs(t, got, tc.want, tc.msg)
	}
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, isDuplicate(fmt.Errorf("connection refused")))
}

func TestWhichDuplicateAfterRace(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))
	createUser(t, repo, "alice")

	assert.ErrorIs(t, repo.whichDuplicate(ctx, &domain.User{Username: "alice", Email: "new@dorm.test"}), ErrUsernameExists)
	assert.ErrorIs(t, repo.whichDuplicate(ctx, &domain.User{Username: "bob", Email: "alice@dorm.test"}), ErrEmailExists)
	assert.ErrorIs(t, repo.whichDuplicate(ctx, &domain.User{Username: "bob", Email: "bob@dorm.test"}), ErrUserExists)
}

func TestUserRepositoryAdminUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))
	alice := createUser(t, repo, "alice")
	createUser(t, repo, "bob")

	require.NoError(t, repo.SetActive(ctx, alice.ID, false))
	require.NoError(t, repo.SetActive(ctx, alice.ID, false), "unchanged value is not an error")
	require.NoError(t, repo.SetRole(ctx, alice.ID, domain.RoleAdmin))

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, got.IsAdmin())

	assert.ErrorIs(t, repo.SetActive(ctx, 999, true), ErrUserNotFound)
	assert.ErrorIs(t, repo.SetRole(ctx, 999, domain.RoleUser), ErrUserNotFound)

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].Username)
}

func TestConversationRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewGormUserRepository(db)
	repo := NewGormConversationRepository(db)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	carol := createUser(t, users, "carol")

	_, err := repo.FindDirect(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	conv, err := repo.Create(ctx, "Chat with bob", alice.ID, bob.ID, bob.ID)
	require.NoError(t, err)
	assert.NotZero(t, conv.ID)

	exists, err := repo.Exists(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, conv.ID+100)
	require.NoError(t, err)
	assert.False(t, exists)

	ok, err := repo.IsParticipant(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.IsParticipant(ctx, conv.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindDirect(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, found.ID)

	// A group that includes both is not their direct conversation.
	_, err = repo.Create(ctx, "group", alice.ID, carol.ID, bob.ID)
	require.NoError(t, err)
	_, err = repo.FindDirect(ctx, alice.ID, carol.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	members, err := repo.Participants(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].Username)
	assert.Equal(t, "bob", members[1].Username)

	mine, err := repo.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	theirs, err := repo.ListForUser(ctx, carol.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	_, err = repo.Get(ctx, 12345)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMessageRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewGormUserRepository(db)
	convs := NewGormConversationRepository(db)
	repo := NewGormMessageRepository(db)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	conv, err := convs.Create(ctx, "Chat with bob", alice.ID, bob.ID)
	require.NoError(t, err)

	first, err := repo.Create(ctx, "hi", alice.ID, conv.ID)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := repo.Create(ctx, "hey", bob.ID, conv.ID)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	list, err := repo.List(ctx, conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hi", list[0].Content)
	assert.Equal(t, "alice", list[0].SenderName)
	assert.Equal(t, "bob", list[1].SenderName)

	page, err := repo.List(ctx, conv.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)

	empty, err := repo.List(ctx, conv.ID+1, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
