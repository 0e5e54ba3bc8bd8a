package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()
	c.Set("a", 42, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	c.Set("a", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache()
	c.Set("a", "v", 0)
	c.Delete("a")
	assert.False(t, c.Has("a"))
}

func TestRateClockFloorAndBackoff(t *testing.T) {
	rc := NewRateClock()

	wait := rc.Observe("gpt", 10*time.Millisecond, 0)
	assert.Equal(t, 10*time.Millisecond, wait)

	// A second call before the reserved window clears should wait longer,
	// not re-observe the floor from zero.
	wait2 := rc.Observe("gpt", 10*time.Millisecond, 0)
	assert.True(t, wait2 > 0)
}

func TestRateClockIndependentKeys(t *testing.T) {
	rc := NewRateClock()
	rc.Observe("a", 50*time.Millisecond, 0)
	wait := rc.Observe("b", 10*time.Millisecond, 0)
	assert.Equal(t, 10*time.Millisecond, wait)
}
