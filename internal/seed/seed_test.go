package seed

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"snapshare/internal/database"
	"snapshare/internal/models"
	"snapshare/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:seed_%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func count(t *testing.T, db *gorm.DB, model any) int {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return int(n)
}

func TestSeeder_Run(t *testing.T) {
	db := setupTestDB(t)
	s := NewSeeder(db, "seed-secret-that-is-at-least-32-chars", 42)
	ctx := context.Background()

	sum, err := s.Run(ctx, Options{
		Users:            4,
		Posts:            6,
		FollowsPerUser:   2,
		FavoritesPerUser: 3,
		CommentsPerPost:  2,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Users)
	assert.Equal(t, 6, sum.Posts)
	assert.Equal(t, sum.Users, count(t, db, &models.User{}))
	assert.Equal(t, sum.Posts, count(t, db, &models.Post{}))
	assert.Equal(t, sum.Follows, count(t, db, &models.Follow{}))
	assert.Equal(t, sum.Favorites, count(t, db, &models.Favorite{}))
	assert.Equal(t, sum.Comments, count(t, db, &models.Comment{}))

	// Cached counts and comment references match the rows.
	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		var favs, comments int64
		require.NoError(t, db.Model(&models.Favorite{}).Where("post_id = ?", p.ID).Count(&favs).Error)
		require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", p.ID).Count(&comments).Error)
		assert.Equal(t, uint(favs), p.FavoriteCount, p.Slug)
		assert.Len(t, p.CommentIDs, int(comments), p.Slug)
	}

	require.NoError(t, s.ClearAll(ctx))
	assert.Zero(t, count(t, db, &models.User{}))
	assert.Zero(t, count(t, db, &models.Post{}))
	assert.Zero(t, count(t, db, &models.Comment{}))
}

func TestSeeder_NoUsers(t *testing.T) {
	db := setupTestDB(t)
	sum, err := NewSeeder(db, "seed-secret-that-is-at-least-32-chars", 1).Run(context.Background(), Options{Posts: 5})
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestSeedUsername(t *testing.T) {
	tests := []struct {
		name string
		i    int
		want string
	}{
		{"Smith1234", 0, "smith1234_0"},
		{"O'Hara.Jr", 7, "oharajr_7"},
		{"x", 3, "user_3"},
		{"", 1, "user_1"},
		{strings.Repeat("ab", 20), 12, strings.Repeat("ab", 12) + "_12"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := seedUsername(tt.name, tt.i)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, validation.ValidateUsername(got))
		})
	}
}
