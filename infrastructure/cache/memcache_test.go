package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	c := NewMemCache(0)
	defer c.Close()

	c.Set("key", "value", 0)
	got, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)
	assert.True(t, c.Exists("key"))

	c.Delete("key")
	_, ok = c.Get("key")
	assert.False(t, ok)
}

func TestGetExpiredEntry(t *testing.T) {
	c := NewMemCache(0)
	defer c.Close()

	c.Set("key", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.False(t, c.Exists("key"))
}

func TestIncrementFixedWindow(t *testing.T) {
	c := NewMemCache(0)
	defer c.Close()

	assert.Equal(t, int64(1), c.Increment("counter", 1, time.Minute))
	assert.Equal(t, int64(2), c.Increment("counter", 1, time.Minute))
	assert.Equal(t, int64(5), c.Increment("counter", 3, time.Minute))
}

func TestIncrementResetsAfterWindowExpires(t *testing.T) {
	c := NewMemCache(0)
	defer c.Close()

	assert.Equal(t, int64(1), c.Increment("counter", 1, 10*time.Millisecond))
	assert.Equal(t, int64(2), c.Increment("counter", 1, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	// Window elapsed, the counter starts over.
	assert.Equal(t, int64(1), c.Increment("counter", 1, 10*time.Millisecond))
}

func TestCleanupReapsExpiredItems(t *testing.T) {
	c := NewMemCache(0)
	defer c.Close()

	c.Set("stale", "value", time.Nanosecond)
	c.Set("fresh", "value", time.Minute)
	time.Sleep(time.Millisecond)
	c.cleanup()

	_, staleOk := c.items.Load("stale")
	_, freshOk := c.items.Load("fresh")
	assert.False(t, staleOk)
	assert.True(t, freshOk)
}
