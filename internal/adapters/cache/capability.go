// Package cache keeps the last known capability snapshot per server with
// a freshness deadline.
package cache

import (
	"sync"
	"time"

	"mastothread/internal/domain"
)

// CapabilityCache is an in-memory snapshot cache with TTL support.
type CapabilityCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
}

type entry struct {
	snapshot  domain.Capability
	expiresAt time.Time
}

// NewCapabilityCache creates a cache with the given freshness window.
func NewCapabilityCache(ttl time.Duration) *CapabilityCache {
	return &CapabilityCache{
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

// Get returns the cached snapshot for a server host and whether it is
// still fresh. A stale snapshot is still returned (second value false) so
// callers can fall back to it when a refresh fails.
func (c *CapabilityCache) Get(server string) (domain.Capability, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[server]
	if !ok {
		return domain.DefaultCapability(), false
	}
	return e.snapshot, time.Now().Before(e.expiresAt)
}

// Set stores a refreshed snapshot with the configured TTL.
func (c *CapabilityCache) Set(server string, snapshot domain.Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[server] = &entry{
		snapshot:  snapshot,
		expiresAt: time.Now().Add(c.ttl),
	}
}
