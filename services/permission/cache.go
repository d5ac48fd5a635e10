package permission

import (
	"container/list"
	"sync"
	"time"
)

// membershipKey identifies one user within a tenant.
type membershipKey struct {
	orgID  string
	userID string
}

type cacheEntry struct {
	key        membershipKey
	roleIDs    []string
	insertedAt time.Time
	element    *list.Element
}

func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// MembershipCache is an LRU cache with TTL for the role ids of a user.
// A nil *MembershipCache is valid and caches nothing.
//
// Every invalidation advances a generation counter. Fills carry the
// generation observed before the storage read and are dropped when it has
// moved, so a read that raced a committed membership change never lands.
type MembershipCache struct {
	mu         sync.Mutex
	entries    map[membershipKey]*cacheEntry
	lruList    *list.List
	maxSize    int
	ttl        time.Duration
	generation uint64
	hits       uint64
	misses     uint64
}

// NewMembershipCache returns nil when ttl or maxSize is not positive, which
// disables caching.
func NewMembershipCache(maxSize int, ttl time.Duration) *MembershipCache {
	if ttl <= 0 || maxSize <= 0 {
		return nil
	}
	return &MembershipCache{
		entries: make(map[membershipKey]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns a copy of the cached role ids and whether they were present.
func (c *MembershipCache) Get(orgID, userID string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := membershipKey{orgID, userID}
	entry, ok := c.entries[key]
	if !ok || entry.isExpired(c.ttl) {
		c.misses++
		if ok {
			c.removeEntry(key)
		}
		return nil, false
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return append([]string(nil), entry.roleIDs...), true
}

// Generation returns the current invalidation generation. Capture it before
// reading memberships from storage and pass it to Set.
func (c *MembershipCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Set stores the role ids of a user read at generation gen, evicting the
// least recently used entry when full. It reports false and stores nothing
// when an invalidation happened since gen.
func (c *MembershipCache) Set(orgID, userID string, roleIDs []string, gen uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}

	key := membershipKey{orgID, userID}
	ids := append([]string{}, roleIDs...)

	if entry, ok := c.entries[key]; ok {
		entry.roleIDs = ids
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return true
	}

	if len(c.entries) >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{key: key, roleIDs: ids, insertedAt: time.Now()}
	entry.element = c.lruList.PushFront(key)
	c.entries[key] = entry
	return true
}

// Invalidate drops the entry of one user.
func (c *MembershipCache) Invalidate(orgID, userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.removeEntry(membershipKey{orgID, userID})
}

// InvalidateRole drops every entry of orgID that lists roleID.
func (c *MembershipCache) InvalidateRole(orgID, roleID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++

	for key, entry := range c.entries {
		if key.orgID != orgID {
			continue
		}
		for _, id := range entry.roleIDs {
			if id == roleID {
				c.removeEntry(key)
				break
			}
		}
	}
}

// InvalidateOrg drops every entry of a tenant.
func (c *MembershipCache) InvalidateOrg(orgID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++

	for key := range c.entries {
		if key.orgID == orgID {
			c.removeEntry(key)
		}
	}
}

// Stats returns the current counters.
func (c *MembershipCache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}

// CleanupExpired removes expired entries and returns how many were removed.
func (c *MembershipCache) CleanupExpired() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			c.removeEntry(key)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker runs CleanupExpired every interval until stopCh is closed.
func (c *MembershipCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	if c == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.CleanupExpired()
			case <-stopCh:
				return
			}
		}
	}()
}

// removeEntry must be called with the lock held.
func (c *MembershipCache) removeEntry(key membershipKey) {
	if entry, ok := c.entries[key]; ok {
		c.lruList.Remove(entry.element)
		delete(c.entries, key)
	}
}

// evictLRU must be called with the lock held.
func (c *MembershipCache) evictLRU() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(membershipKey))
}
