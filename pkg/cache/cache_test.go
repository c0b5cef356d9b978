package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGet(t *testing.T) {
	c := New[string]()
	c.Set("kid-1", "key", time.Minute)

	val, ok := c.Get("kid-1")
	assert.True(t, ok)
	assert.Equal(t, "key", val)

	_, ok = c.Get("kid-2")
	assert.False(t, ok)
}

func TestExpiration(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[int]()
	c.now = func() time.Time { return now }

	c.Set("kid-1", 42, time.Minute)
	assert.Equal(t, 1, c.Len())

	now = now.Add(time.Minute)
	_, ok := c.Get("kid-1")
	assert.False(t, ok, "entry expires at its deadline")
	assert.Equal(t, 0, c.Len())
}

func TestReplaceDropsRotatedKeys(t *testing.T) {
	c := New[string]()
	c.Set("old", "a", time.Hour)

	c.Replace(map[string]string{"new-1": "b", "new-2": "c"}, time.Hour)

	_, ok := c.Get("old")
	assert.False(t, ok)
	val, ok := c.Get("new-2")
	assert.True(t, ok)
	assert.Equal(t, "c", val)
	assert.Equal(t, 2, c.Len())
}
