package geo

import (
	"sync"

	"github.com/google/uuid"
)

// Cache memoizes the tree-expansion lookups (zones under a
// corporation, wards under a zone). It is an explicit object handed to
// the Tree rather than a package-level singleton, and it has no TTL:
// entries live until a geography write invalidates them, so a stale
// entry can never outlive the write that made it stale.
type Cache struct {
	mu         sync.RWMutex
	zonesUnder map[string][]uuid.UUID
	wardsUnder map[uuid.UUID][]uuid.UUID
}

func NewCache() *Cache {
	c := &Cache{}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.zonesUnder = make(map[string][]uuid.UUID)
	c.wardsUnder = make(map[uuid.UUID][]uuid.UUID)
}

func (c *Cache) getZones(code string) ([]uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.zonesUnder[code]
	return ids, ok
}

func (c *Cache) setZones(code string, ids []uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zonesUnder[code] = ids
}

func (c *Cache) getWards(zoneID uuid.UUID) ([]uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.wardsUnder[zoneID]
	return ids, ok
}

func (c *Cache) setWards(zoneID uuid.UUID, ids []uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wardsUnder[zoneID] = ids
}

// Invalidate drops everything. Called synchronously by any zone/ward
// write before the write becomes visible to readers, so CITY_ADMIN
// scope expansion is never computed from a stale tree.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}
