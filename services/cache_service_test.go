package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheServiceExpiry(t *testing.T) {
	cache := NewCacheService(time.Minute, 10)

	cache.Set("fresh", 1)
	cache.SetWithTTL("stale", 2, -time.Second)

	v, ok := cache.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = cache.Get("stale")
	assert.False(t, ok, "expired entries are never served")

	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 1, cache.Size())
}

func TestCacheServiceEvictsClosestToExpiry(t *testing.T) {
	cache := NewCacheService(time.Minute, 2)

	cache.SetWithTTL("short", "a", time.Second)
	cache.SetWithTTL("long", "b", time.Hour)
	cache.Set("new", "c")

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("short")
	assert.False(t, ok)
	_, ok = cache.Get("long")
	assert.True(t, ok)

	cache.Set("long", "b2")
	assert.Equal(t, 2, cache.Size(), "overwriting an existing key does not evict")

	cache.Delete("long")
	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}
