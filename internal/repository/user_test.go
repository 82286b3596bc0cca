package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"snapshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u))

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := repo.GetByEmail(ctx, "  ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	dup := &models.User{Username: "alice", Email: "other@example.com", Password: "hash"}
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey)
}

func TestUserRepository_FollowAndRelations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	require.NoError(t, repo.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, repo.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, repo.Follow(ctx, alice.ID, carol.ID))

	p := createPost(t, db, bob, "bob-post", time.Now())
	gone := createPost(t, db, carol, "carol-post", time.Now())
	_, err := posts.Favorite(ctx, alice.ID, p.ID)
	require.NoError(t, err)
	_, err = posts.Favorite(ctx, alice.ID, gone.ID)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&models.Post{}, gone.ID).Error)

	require.NoError(t, repo.LoadRelations(ctx, alice))
	assert.Equal(t, []uint{bob.ID, carol.ID}, alice.Following.Slice())
	assert.Equal(t, []uint{p.ID}, alice.Favorites.Slice())

	require.NoError(t, repo.Unfollow(ctx, alice.ID, carol.ID))
	require.NoError(t, repo.Unfollow(ctx, alice.ID, carol.ID))
	require.NoError(t, repo.LoadRelations(ctx, alice))
	assert.Equal(t, []uint{bob.ID}, alice.Following.Slice())
}

func TestUserRepository_GetByIDBackendError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
		WithArgs(7, 1).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByID(context.Background(), 7)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
