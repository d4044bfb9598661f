package rules

import (
	"sync"
	"time"
)

// Cache holds the current rule snapshot shared between the HTTP handlers,
// the ingestion pipeline and the background sync task. The snapshot itself
// is immutable; only the pointer swap is guarded.
type Cache struct {
	mu       sync.RWMutex
	set      *Set
	loadedAt time.Time
}

func NewCache() *Cache {
	return &Cache{}
}

// Update replaces the current snapshot.
func (c *Cache) Update(set *Set) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = set
	c.loadedAt = time.Now().UTC()
}

// Current returns the active snapshot, or nil when no snapshot has been
// loaded yet.
func (c *Cache) Current() *Set {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set
}

// LoadedAt returns when the current snapshot was installed.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
