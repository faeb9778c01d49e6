package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// diskHeaderSize is the length of the expiry prefix written before each payload
const diskHeaderSize = 8

// Disk is the on-disk cache tier. Each entry is one file holding an eight byte
// big endian unix expiry followed by the payload. The tier holds at most maxFiles
// files, evicting the least recently written when full.
type Disk struct {
	mu       sync.Mutex
	dir      string
	maxFiles int
}

// NewDisk builds a disk tier rooted at dir, creating it when absent
func NewDisk(dir string, maxFiles int) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory %s: %w", dir, err)
	}
	return &Disk{
		dir:      dir,
		maxFiles: maxFiles,
	}, nil
}

// entryPath maps a key to a stable file name safe for any key content
func (c *Disk) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".cache")
}

// Get returns the cached value and its expiry for key. A missing, expired or
// corrupt file is a miss; expired and corrupt files are removed.
func (c *Disk) Get(key string) ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path := c.entryPath(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, false
	}
	if len(raw) < diskHeaderSize {
		_ = os.Remove(path)
		return nil, time.Time{}, false
	}
	expiresAt := time.Unix(int64(binary.BigEndian.Uint64(raw[:diskHeaderSize])), 0)
	if time.Now().After(expiresAt) {
		_ = os.Remove(path)
		return nil, time.Time{}, false
	}
	return raw[diskHeaderSize:], expiresAt, true
}

// Set stores value under key until expiresAt
func (c *Disk) Set(key string, value []byte, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw := make([]byte, diskHeaderSize+len(value))
	binary.BigEndian.PutUint64(raw[:diskHeaderSize], uint64(expiresAt.Unix()))
	copy(raw[diskHeaderSize:], value)

	path := c.entryPath(key)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("unable to write cache entry: %w", err)
	}
	return c.evictLocked(path)
}

// evictLocked removes the oldest files until at most maxFiles remain. The file
// just written is never evicted.
func (c *Disk) evictLocked(justWritten string) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("unable to list cache directory: %w", err)
	}
	type cacheFile struct {
		path    string
		modTime time.Time
	}
	files := make([]cacheFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".cache" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{
			path:    filepath.Join(c.dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}
	if len(files) <= c.maxFiles {
		return nil
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})
	// sparing the just written file must not leave the tier over budget, so
	// skipping it moves the eviction on to the next oldest file
	toRemove := len(files) - c.maxFiles
	for _, file := range files {
		if toRemove <= 0 {
			break
		}
		if file.path == justWritten {
			continue
		}
		_ = os.Remove(file.path)
		toRemove--
	}
	return nil
}

// Purge removes every entry from the tier
func (c *Disk) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("unable to list cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".cache" {
			continue
		}
		_ = os.Remove(filepath.Join(c.dir, entry.Name()))
	}
	return nil
}
