// Package cache holds the live entity registry read by the simulation on
// every tick.
package cache

import (
	"slices"
	"sync"

	"github.com/TheFortz/combat/pkg/core"
)

// EntityCache caches entities as they are spawned so hit resolution never
// waits on storage. Latency in these calls is critical to tick processing.
type EntityCache struct {
	m        sync.RWMutex
	entities map[core.EntityID]core.Entity
}

func NewEntityCache() *EntityCache {
	return &EntityCache{
		entities: make(map[core.EntityID]core.Entity),
	}
}

func (c *EntityCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.entities = make(map[core.EntityID]core.Entity)
}

func (c *EntityCache) Get(id core.EntityID) (core.Entity, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	e, ok := c.entities[id]
	return e, ok
}

// Put adds or replaces an entity.
func (c *EntityCache) Put(e core.Entity) {
	c.m.Lock()
	defer c.m.Unlock()
	c.entities[e.ID] = e
}

// Update applies fn to a cached entity in place. It reports false if the
// entity is unknown.
func (c *EntityCache) Update(id core.EntityID, fn func(*core.Entity)) bool {
	c.m.Lock()
	defer c.m.Unlock()
	e, ok := c.entities[id]
	if !ok {
		return false
	}
	fn(&e)
	c.entities[id] = e
	return true
}

func (c *EntityCache) Delete(id core.EntityID) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.entities[id]
	delete(c.entities, id)
	return ok
}

func (c *EntityCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.entities)
}

// Alive returns living entities other than exclude, ordered by id.
func (c *EntityCache) Alive(exclude core.EntityID) []core.Entity {
	c.m.RLock()
	out := make([]core.Entity, 0, len(c.entities))
	for id, e := range c.entities {
		if e.Alive && id != exclude {
			out = append(out, e)
		}
	}
	c.m.RUnlock()

	slices.SortFunc(out, func(a, b core.Entity) int {
		return int(a.ID) - int(b.ID)
	})
	return out
}
