package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, New(rdb)
}

func TestCache_AsideFetchesOnceThenHits(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()
	calls := 0

	fetch := func(dest *profile) func() error {
		return func() error {
			calls++
			*dest = profile{ID: "u1", Name: "ada"}
			return nil
		}
	}

	var first profile
	require.NoError(t, c.Aside(ctx, UserKey("u1"), &first, UserTTL, fetch(&first)))
	var second profile
	require.NoError(t, c.Aside(ctx, UserKey("u1"), &second, UserTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "ada", second.Name)
	assert.True(t, mr.Exists("user:u1"))

	mr.FastForward(UserTTL + time.Second)
	assert.False(t, mr.Exists("user:u1"))
}

func TestCache_AsidePropagatesFetchError(t *testing.T) {
	mr, c := newTestCache(t)
	boom := errors.New("boom")

	var dest profile
	err := c.Aside(context.Background(), UserKey("u2"), &dest, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("user:u2"))
}

func TestCache_Invalidate(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, UserKey("u3"), profile{ID: "u3"}, UserTTL))
	require.NoError(t, c.SetJSON(ctx, UsernameKey("bob"), profile{ID: "u3"}, UserTTL))

	c.Invalidate(ctx, UserKey("u3"), UsernameKey("bob"))
	assert.False(t, mr.Exists("user:u3"))
	assert.False(t, mr.Exists("user:name:bob"))
}

func TestCache_NilClientPassesThrough(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	found, err := c.GetJSON(ctx, "k", &profile{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.SetJSON(ctx, "k", profile{}, time.Minute))

	var dest profile
	require.NoError(t, c.Aside(ctx, "k", &dest, time.Minute, func() error {
		dest.Name = "fresh"
		return nil
	}))
	assert.Equal(t, "fresh", dest.Name)
	c.Invalidate(ctx, "k")
}
