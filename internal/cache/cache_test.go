package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelkeep/internal/cache"
)

func TestKeyComposition(t *testing.T) {
	assert.Equal(t, "watchLater|user-1", cache.Key("watchLater", "user-1"))
	assert.Equal(t, "details|user-1|abc", cache.Key("details", "user-1", "abc"))

	// Different users never share a key.
	assert.NotEqual(t, cache.Key("watchLater", "user-1"), cache.Key("watchLater", "user-2"))
}

func TestGetSetInvalidate(t *testing.T) {
	c := cache.NewTTL[int](time.Minute)

	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k", 42)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	c.Invalidate("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestEntriesExpire(t *testing.T) {
	c := cache.NewTTL[string](time.Millisecond)

	c.Set("k", "v")
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestInvalidatePrefixDropsDerivedEntriesOnly(t *testing.T) {
	c := cache.NewTTL[int](time.Minute)

	c.Set(cache.Key("watchLaterDetails", "user-1", "h1"), 1)
	c.Set(cache.Key("watchLaterDetails", "user-1", "h2"), 2)
	c.Set(cache.Key("watchLaterDetails", "user-2", "h1"), 3)

	c.InvalidatePrefix(cache.Key("watchLaterDetails", "user-1"))

	_, ok := c.Get(cache.Key("watchLaterDetails", "user-1", "h1"))
	assert.False(t, ok)
	_, ok = c.Get(cache.Key("watchLaterDetails", "user-1", "h2"))
	assert.False(t, ok)
	_, ok = c.Get(cache.Key("watchLaterDetails", "user-2", "h1"))
	assert.True(t, ok, "other users' entries survive")
}

func TestClear(t *testing.T) {
	c := cache.NewTTL[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}
