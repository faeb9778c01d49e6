package cache

import (
	"log"
	"time"
)

// Tiered reads through an in-memory tier into a disk tier. A disk hit is promoted
// back into memory for its remaining lifetime, and writes land in both tiers.
type Tiered struct {
	memory *Memory
	disk   *Disk
	log    *log.Logger
}

// NewTiered builds a Tiered cache over the provided tiers. The disk tier may be
// nil, leaving a memory-only cache.
func NewTiered(memory *Memory, disk *Disk, log *log.Logger) *Tiered {
	return &Tiered{
		memory: memory,
		disk:   disk,
		log:    log,
	}
}

// Get returns the freshest cached value for key
func (c *Tiered) Get(key string) ([]byte, bool) {
	if value, _, ok := c.memory.Get(key); ok {
		return value, true
	}
	if c.disk == nil {
		return nil, false
	}
	value, expiresAt, ok := c.disk.Get(key)
	if !ok {
		return nil, false
	}
	c.memory.Set(key, value, expiresAt)
	return value, true
}

// Set stores value under key in both tiers for ttl. A disk write failure leaves
// the memory tier serving the value and is only logged.
func (c *Tiered) Set(key string, value []byte, ttl time.Duration) {
	expiresAt := time.Now().Add(ttl)
	c.memory.Set(key, value, expiresAt)
	if c.disk == nil {
		return
	}
	if err := c.disk.Set(key, value, expiresAt); err != nil {
		c.log.Printf("cache: %v", err)
	}
}

// Purge empties both tiers
func (c *Tiered) Purge() {
	c.memory.Purge()
	if c.disk == nil {
		return
	}
	if err := c.disk.Purge(); err != nil {
		c.log.Printf("cache: %v", err)
	}
}
