package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"snapshare/internal/events"
	"snapshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteService_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	fan := f.user(t, "fan")
	other := f.user(t, "other")
	p := f.post(t, author, "sunset", time.Now())

	_, err := f.favorites.Favorite(ctx, f.viewer(t, other), "sunset")
	require.NoError(t, err)

	viewer := f.viewer(t, fan)
	view, err := f.favorites.Favorite(ctx, viewer, "sunset")
	require.NoError(t, err)
	assert.Equal(t, uint(2), view.FavoriteCount)
	assert.True(t, view.IsFavorited)
	assert.True(t, viewer.HasFavorited(p.ID))

	// Second favorite is a no-op.
	view, err = f.favorites.Favorite(ctx, viewer, "sunset")
	require.NoError(t, err)
	assert.Equal(t, uint(2), view.FavoriteCount)
	assert.Equal(t, uint(2), f.favoriteRows(t, p.ID))

	view, err = f.favorites.Unfavorite(ctx, viewer, "sunset")
	require.NoError(t, err)
	assert.Equal(t, uint(1), view.FavoriteCount)
	assert.False(t, view.IsFavorited)
	assert.False(t, viewer.HasFavorited(p.ID))

	view, err = f.favorites.Unfavorite(ctx, viewer, "sunset")
	require.NoError(t, err)
	assert.Equal(t, uint(1), view.FavoriteCount)

	// The fresh request sees the same stored state.
	assert.False(t, f.viewer(t, fan).HasFavorited(p.ID))

	assert.Equal(t, []string{
		events.PostFavorited, events.PostFavorited, events.PostFavorited,
		events.PostUnfavorited, events.PostUnfavorited,
	}, f.publisher.types())
	require.NotNil(t, f.publisher.events[3].FavoriteCount)
	assert.Equal(t, uint(1), *f.publisher.events[3].FavoriteCount)
}

func TestFavoriteService_MissingPost(t *testing.T) {
	f := newFixture(t)
	fan := f.user(t, "fan")
	viewer := f.viewer(t, fan)

	_, err := f.favorites.Favorite(context.Background(), viewer, "no-such-post")
	assertCode(t, err, models.CodeNotFound)
	assert.Empty(t, viewer.User.Favorites)

	var n int64
	require.NoError(t, f.db.Model(&models.Favorite{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, f.publisher.types())
}

func TestFavoriteService_Anonymous(t *testing.T) {
	f := newFixture(t)
	author := f.user(t, "author")
	f.post(t, author, "p", time.Now())

	_, err := f.favorites.Favorite(context.Background(), Anonymous, "p")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = f.favorites.Unfavorite(context.Background(), Anonymous, "p")
	assertCode(t, err, models.CodeUnauthorized)
}

func TestFavoriteService_CountMatchesMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	p := f.post(t, author, "busy", time.Now())

	viewers := make([]Viewer, 6)
	for i := range viewers {
		viewers[i] = f.viewer(t, f.user(t, "fan"+string(rune('a'+i))))
	}

	var wg sync.WaitGroup
	for i, v := range viewers {
		wg.Add(1)
		go func(i int, v Viewer) {
			defer wg.Done()
			_, _ = f.favorites.Favorite(ctx, v, "busy")
			if i%2 == 0 {
				_, _ = f.favorites.Unfavorite(ctx, v, "busy")
			}
			_, _ = f.favorites.Favorite(ctx, v, "busy")
		}(i, v)
	}
	wg.Wait()

	got, err := f.postSvc.GetPost(ctx, Anonymous, "busy")
	require.NoError(t, err)
	assert.Equal(t, f.favoriteRows(t, p.ID), got.FavoriteCount)
	assert.Equal(t, uint(len(viewers)), got.FavoriteCount)
}
