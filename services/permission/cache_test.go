package permission

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMembershipCache_Disabled(t *testing.T) {
	assert.Nil(t, NewMembershipCache(100, 0))
	assert.Nil(t, NewMembershipCache(0, time.Minute))

	var c *MembershipCache
	c.Set("o", "u", []string{"r"}, c.Generation())
	_, ok := c.Get("o", "u")
	assert.False(t, ok)
	c.Invalidate("o", "u")
	c.InvalidateRole("o", "r")
	c.InvalidateOrg("o")
	assert.Equal(t, uint64(0), c.Generation())
	assert.Equal(t, CacheStats{}, c.Stats())
	assert.Equal(t, 0, c.CleanupExpired())
}

func TestMembershipCache_GetSet(t *testing.T) {
	c := NewMembershipCache(10, time.Minute)
	require.NotNil(t, c)

	_, ok := c.Get("o1", "u1")
	assert.False(t, ok)

	roles := []string{"admin", "viewer"}
	c.Set("o1", "u1", roles, c.Generation())
	roles[0] = "mutated"

	got, ok := c.Get("o1", "u1")
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "viewer"}, got)

	got[1] = "mutated"
	again, _ := c.Get("o1", "u1")
	assert.Equal(t, []string{"admin", "viewer"}, again)

	// tenants are separate
	_, ok = c.Get("o2", "u1")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.0001)
}

func TestMembershipCache_EmptyRoleSetIsCached(t *testing.T) {
	c := NewMembershipCache(10, time.Minute)
	c.Set("o1", "u1", nil, c.Generation())

	got, ok := c.Get("o1", "u1")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestMembershipCache_Expiry(t *testing.T) {
	c := NewMembershipCache(10, 20*time.Millisecond)
	c.Set("o1", "u1", []string{"r"}, c.Generation())
	c.Set("o1", "u2", []string{"r"}, c.Generation())

	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get("o1", "u1")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanupExpired())
	assert.Equal(t, 0, c.Stats().Size)
}

func TestMembershipCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMembershipCache(2, time.Minute)
	c.Set("o", "u1", []string{"a"}, c.Generation())
	c.Set("o", "u2", []string{"b"}, c.Generation())

	_, _ = c.Get("o", "u1")
	c.Set("o", "u3", []string{"c"}, c.Generation())

	_, ok := c.Get("o", "u2")
	assert.False(t, ok)
	_, ok = c.Get("o", "u1")
	assert.True(t, ok)
	_, ok = c.Get("o", "u3")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Stats().Size)
}

func TestMembershipCache_Invalidation(t *testing.T) {
	c := NewMembershipCache(10, time.Minute)
	c.Set("o1", "u1", []string{"admin"}, c.Generation())
	c.Set("o1", "u2", []string{"viewer"}, c.Generation())
	c.Set("o1", "u3", []string{"admin", "viewer"}, c.Generation())
	c.Set("o2", "u1", []string{"admin"}, c.Generation())

	c.InvalidateRole("o1", "admin")
	_, ok := c.Get("o1", "u1")
	assert.False(t, ok)
	_, ok = c.Get("o1", "u3")
	assert.False(t, ok)
	_, ok = c.Get("o1", "u2")
	assert.True(t, ok)
	_, ok = c.Get("o2", "u1")
	assert.True(t, ok)

	c.Invalidate("o1", "u2")
	_, ok = c.Get("o1", "u2")
	assert.False(t, ok)

	c.Set("o1", "u9", []string{"x"}, c.Generation())
	c.InvalidateOrg("o1")
	_, ok = c.Get("o1", "u9")
	assert.False(t, ok)
	_, ok = c.Get("o2", "u1")
	assert.True(t, ok)
}

func TestMembershipCache_FillAfterInvalidationIsDropped(t *testing.T) {
	tests := []struct {
		name       string
		invalidate func(c *MembershipCache)
	}{
		{"user", func(c *MembershipCache) { c.Invalidate("o1", "u1") }},
		{"role", func(c *MembershipCache) { c.InvalidateRole("o1", "admin") }},
		{"org", func(c *MembershipCache) { c.InvalidateOrg("o1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMembershipCache(10, time.Minute)
			gen := c.Generation()

			// membership changed and was invalidated while the read was in flight
			tt.invalidate(c)

			assert.False(t, c.Set("o1", "u1", []string{"admin"}, gen))
			_, ok := c.Get("o1", "u1")
			assert.False(t, ok)

			assert.True(t, c.Set("o1", "u1", nil, c.Generation()))
			got, ok := c.Get("o1", "u1")
			assert.True(t, ok)
			assert.Empty(t, got)
		})
	}
}

func TestMembershipCache_CleanupWorker(t *testing.T) {
	c := NewMembershipCache(10, 10*time.Millisecond)
	c.Set("o", "u", []string{"r"}, c.Generation())

	stop := make(chan struct{})
	c.StartCleanupWorker(5*time.Millisecond, stop)
	defer close(stop)

	assert.Eventually(t, func() bool {
		return c.Stats().Size == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMembershipCache_Concurrent(t *testing.T) {
	c := NewMembershipCache(50, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := string(rune('a' + i))
			c.Set("o", user, []string{"r"}, c.Generation())
			_, _ = c.Get("o", user)
			c.InvalidateRole("o", "r")
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Size, 20)
}
