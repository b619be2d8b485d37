package archive

import (
	"sync"
	"time"

	"github.com/precipmeter/precipd/internal/types"
)

// Cache keeps the most recent reading per device and the last archive
// record, for the readings REST server. Safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	readings map[string]types.Reading
	record   *types.ArchiveRecord
}

func NewCache() *Cache {
	return &Cache{readings: make(map[string]types.Reading)}
}

// Update stores the latest reading of a device.
func (c *Cache) Update(r types.Reading) {
	c.mu.Lock()
	c.readings[r.DeviceName] = r
	c.mu.Unlock()
}

// SetRecord stores the most recently emitted archive record.
func (c *Cache) SetRecord(rec *types.ArchiveRecord) {
	c.mu.Lock()
	c.record = rec
	c.mu.Unlock()
}

// Current returns a copy of the latest reading per device.
func (c *Cache) Current() map[string]types.Reading {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]types.Reading, len(c.readings))
	for name, r := range c.readings {
		out[name] = r
	}
	return out
}

// Record returns the last archive record, nil if none was emitted yet.
func (c *Cache) Record() *types.ArchiveRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record
}

// Age returns how long ago the newest reading arrived, and false when no
// reading arrived at all.
func (c *Cache) Age(now time.Time) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var newest time.Time
	for _, r := range c.readings {
		if r.Timestamp.After(newest) {
			newest = r.Timestamp
		}
	}
	if newest.IsZero() {
		return 0, false
	}
	return now.Sub(newest), true
}
