package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Minute)
	defer l.Stop()
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("u1")
	assert.True(t, ok)
	now = now.Add(10 * time.Second)
	ok, _ = l.Allow("u1")
	assert.True(t, ok)

	ok, retryAfter := l.Allow("u1")
	assert.False(t, ok)
	assert.Equal(t, 50*time.Second, retryAfter)

	ok, _ = l.Allow("u2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(51 * time.Second)
	ok, _ = l.Allow("u1")
	assert.True(t, ok, "oldest request left the window")
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, time.Minute)
	defer l.Stop()
	for i := 0; i < 10; i++ {
		ok, _ := l.Allow("u1")
		assert.True(t, ok)
	}
	l.Stop()
}
