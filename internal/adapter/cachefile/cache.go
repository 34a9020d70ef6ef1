// Package cachefile persists resolved elevations in a flat JSON object keyed
// by quantized coordinate, e.g. {"-21.7800000,-46.5700000": 812.4}.
package cachefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/kml2dxf/internal/domain"
)

// Cache maps quantized coordinate keys to elevations. Entries are never
// evicted; staleness is the caller's concern.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]float64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]float64)}
}

// Load reads the cache file at path. A missing or corrupt file yields an
// empty cache; the problem is logged and never returned.
func Load(path string, logger *slog.Logger) *Cache {
	c := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("elevation cache not found, starting empty", "path", path)
		} else {
			logger.Warn("elevation cache unreadable, starting empty", "path", path, "error", err)
		}
		return c
	}

	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("elevation cache corrupt, starting empty", "path", path, "error", err)
		return c
	}
	for k, v := range raw {
		c.entries[k] = v
	}

	logger.Debug("elevation cache loaded", "path", path, "entries", len(c.entries))
	return c
}

// Lookup returns the cached elevation for the coordinate's quantized key.
func (c *Cache) Lookup(coord domain.Coordinate) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[coord.Key()]
	return v, ok
}

// Put stores an elevation, overwriting any existing entry for the key.
func (c *Cache) Put(coord domain.Coordinate, elevation float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[coord.Key()] = elevation
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save writes the cache to path via a temporary file in the same directory,
// so a failed write never truncates an existing cache.
func (c *Cache) Save(path string) error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode elevation cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write elevation cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close elevation cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace elevation cache: %w", err)
	}
	return nil
}
