package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(30 * time.Second)
	c.Set("fresh", "v")

	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(45 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	assert.Equal(t, 1, c.CleanExpired(), "only 'other' remains expired")
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_DeletePurgeStats(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, _ = c.Get("b")

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)

	c.Purge()
	assert.Equal(t, 0, c.Size())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "u1@7:summary|2024-03", Key("u1", 7, "summary", "2024-03"))
	assert.NotEqual(t, Key("u1", 7, "summary", "2024-03"), Key("u1", 8, "summary", "2024-03"))
}

func TestGetOrCompute(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := GetOrCompute[int](c, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	v, err = GetOrCompute[int](c, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = GetOrCompute[int](c, "bad", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("bad")
	assert.False(t, ok)
}

func TestManager_CleanNowAndStop(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](4, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	m.StartCleanup(time.Hour)

	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, m.CleanNow())
	m.Stop()
	m.Stop()
}
