package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = Close()
		mr.Close()
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]string) func() error {
		return func() error {
			calls++
			*dest = []string{"cats", "dogs"}
			return nil
		}
	}

	var first []string
	require.NoError(t, Aside(ctx, TagsKey, &first, TagsTTL, fetch(&first)))
	assert.Equal(t, []string{"cats", "dogs"}, first)
	assert.True(t, mr.Exists("snapshare:tags:all"))

	var second []string
	require.NoError(t, Aside(ctx, TagsKey, &second, TagsTTL, fetch(&second)))
	assert.Equal(t, []string{"cats", "dogs"}, second)
	assert.Equal(t, 1, calls)

	Invalidate(ctx, TagsKey)
	assert.False(t, mr.Exists("snapshare:tags:all"))
}

func TestAside_InvalidateDuringFetch(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	// A write lands and invalidates while this reader is still fetching.
	var stale []string
	require.NoError(t, Aside(ctx, TagsKey, &stale, TagsTTL, func() error {
		stale = []string{"cats"}
		Invalidate(ctx, TagsKey)
		return nil
	}))
	assert.Equal(t, []string{"cats"}, stale)
	assert.False(t, mr.Exists("snapshare:tags:all"))

	var fresh []string
	require.NoError(t, Aside(ctx, TagsKey, &fresh, TagsTTL, func() error {
		fresh = []string{"cats", "dogs"}
		return nil
	}))
	var cached []string
	found, err := GetJSON(ctx, TagsKey, &cached)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"cats", "dogs"}, cached)
}

func TestAside_FetchError(t *testing.T) {
	setupMiniredis(t)
	boom := errors.New("boom")

	var dest []string
	err := Aside(context.Background(), TagsKey, &dest, TagsTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	found, err := GetJSON(context.Background(), TagsKey, &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAside_NoClient(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest []string
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), TagsKey, &dest, TagsTTL, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
	Invalidate(context.Background(), TagsKey)
}
