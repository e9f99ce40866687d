package recurrence

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ExpansionCache memoizes window expansions keyed by the serialized rule
// and the query window. It is purely an optimization: callers must
// invalidate on any template write that changes the rule.
type ExpansionCache struct {
	mu          sync.RWMutex
	entries     map[string]*cacheEntry
	ttl         time.Duration
	maxEntries  int
	stopCleanup chan struct{}
}

type cacheEntry struct {
	ruleText   string
	instants   []time.Time
	expiresAt  time.Time
	accessedAt time.Time
}

// CacheConfig holds tuning knobs for the expansion cache.
type CacheConfig struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// DefaultCacheConfig is sized for a single-node deployment.
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewExpansionCache creates a cache and starts its cleanup goroutine.
// Call Close to stop it.
func NewExpansionCache(cfg CacheConfig) *ExpansionCache {
	c := &ExpansionCache{
		entries:     make(map[string]*cacheEntry),
		ttl:         cfg.TTL,
		maxEntries:  cfg.MaxEntries,
		stopCleanup: make(chan struct{}),
	}
	go c.cleanupLoop(cfg.CleanupInterval)
	return c
}

func cacheKey(ruleText string, window Window) string {
	h := sha256.New()
	h.Write([]byte(ruleText))
	h.Write([]byte(window.From.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(window.To.UTC().Format(time.RFC3339Nano)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns a cached expansion, or false if absent or expired.
func (c *ExpansionCache) Get(ruleText string, window Window) ([]time.Time, bool) {
	key := cacheKey(ruleText, window)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	entry.accessedAt = now
	c.mu.Unlock()

	return entry.instants, true
}

// Set stores an expansion result.
func (c *ExpansionCache) Set(ruleText string, window Window, instants []time.Time) {
	key := cacheKey(ruleText, window)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		ruleText:   ruleText,
		instants:   instants,
		expiresAt:  now.Add(c.ttl),
		accessedAt: now,
	}
	if len(c.entries) > c.maxEntries {
		c.cleanupLocked()
	}
}

// Invalidate drops every cached window for the given rule text. The window
// is part of the key, so this walks all entries; template writes are rare
// compared to reads.
func (c *ExpansionCache) Invalidate(ruleText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.ruleText == ruleText {
			delete(c.entries, key)
		}
	}
}

// cleanupLocked removes expired entries, then the least recently accessed
// entries if the cache is still over its limit. Caller holds the lock.
func (c *ExpansionCache) cleanupLocked() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	ordered := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		ordered = append(ordered, keyAccess{key, entry.accessedAt})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].accessedAt.Before(ordered[j].accessedAt)
	})
	for i := 0; i < len(c.entries)-c.maxEntries && i < len(ordered); i++ {
		delete(c.entries, ordered[i].key)
	}
}

func (c *ExpansionCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.cleanupLocked()
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache.
func (c *ExpansionCache) Close() {
	close(c.stopCleanup)
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Len reports the current number of entries, expired or not.
func (c *ExpansionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
