// Package cache provides a two tier feed payload cache, an in-memory tier backed
// by an on-disk tier that survives restarts.
package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the in-memory cache tier. It holds at most maxEntries entries,
// evicting the entry closest to expiry when full.
type Memory struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]memoryEntry
}

// NewMemory builds an empty in-memory tier capped at maxEntries
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		maxEntries: maxEntries,
		entries:    make(map[string]memoryEntry),
	}
}

// Get returns the cached value and its expiry for key. An expired entry is
// removed and reported as a miss.
func (c *Memory) Get(key string) ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, time.Time{}, false
	}
	return entry.value, entry.expiresAt, true
}

// Set stores value under key until expiresAt
func (c *Memory) Set(key string, value []byte, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = memoryEntry{value: value, expiresAt: expiresAt}
}

// evictLocked drops the entry closest to expiry
func (c *Memory) evictLocked() {
	var oldestKey string
	var oldestExpiry time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Purge empties the tier
func (c *Memory) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

// Len returns the number of entries currently held
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
