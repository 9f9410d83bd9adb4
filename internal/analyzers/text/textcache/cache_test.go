package textcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetThenGetReturnsValue(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("k1", "v1")

	val, ok := c.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", val)
}

func TestCache_GetMissingKeyReturnsFalse(t *testing.T) {
	c := New(10, time.Minute)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCache_ExpiredEntryIsNotReturned(t *testing.T) {
	c := New(10, -time.Second) // already expired the moment it's written
	c.Set("k1", "v1")

	_, ok := c.Get("k1")
	assert.False(t, ok)
}

func TestCache_ExpiredEntryIsEvictedOnAccess(t *testing.T) {
	c := New(10, -time.Second)
	c.Set("k1", "v1")
	c.Get("k1")
	assert.Equal(t, 0, c.Size())
}

func TestCache_DefaultsCapacityWhenNonPositive(t *testing.T) {
	c := New(0, time.Minute)
	assert.Equal(t, 10000, c.capacity)

	c2 := New(-5, time.Minute)
	assert.Equal(t, 10000, c2.capacity)
}

func TestCache_EvictsOldestWhenAtCapacity(t *testing.T) {
	c := New(2, time.Minute)
	c.Set("first", 1)
	time.Sleep(2 * time.Millisecond)
	c.Set("second", 2)
	time.Sleep(2 * time.Millisecond)
	c.Set("third", 3)

	assert.LessOrEqual(t, c.Size(), 2)
	_, ok := c.Get("first")
	assert.False(t, ok, "the oldest entry should have been evicted to make room")

	val, ok := c.Get("third")
	assert.True(t, ok)
	assert.Equal(t, 3, val)
}

func TestCache_HitCountIncrementsOnGet(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("k1", "v1")
	c.Get("k1")
	c.Get("k1")

	c.mu.RLock()
	entry := c.entries["k1"]
	c.mu.RUnlock()
	assert.Equal(t, 2, entry.HitCount)
}

func TestCache_SizeReflectsEntryCount(t *testing.T) {
	c := New(10, time.Minute)
	assert.Equal(t, 0, c.Size())
	c.Set("k1", "v1")
	c.Set("k2", "v2")
	assert.Equal(t, 2, c.Size())
}
