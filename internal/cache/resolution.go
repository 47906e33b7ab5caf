package cache

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key identifies one resolution.
type Key struct {
	Entity     string
	Expression string
	Context    string
}

func (k Key) String() string {
	return k.Entity + "\x00" + k.Expression + "\x00" + k.Context
}

// EntityDep names the dependency on every component of an entity.
func EntityDep(entityID string) string { return "entity:" + entityID }

// ComponentDep names the dependency on the set of entities having a
// component type, as read by entities(T).
func ComponentDep(componentTypeID string) string { return "component:" + componentTypeID }

// ComputeFunc produces the candidate ids of a resolution and the
// dependencies it read.
type ComputeFunc func() (ids []string, deps []string)

type entry struct {
	ids        []string
	deps       []string
	generation uint64
}

// Resolutions caches resolved candidate id sets.
type Resolutions struct {
	mu         sync.RWMutex
	entries    map[Key]*entry
	byDep      map[string]map[Key]struct{}
	generation uint64
	// changed records the generation at which a dependency was last invalidated.
	changed map[string]uint64
	// allComponents is the generation of the last entity-level add/remove,
	// which invalidates every component index.
	allComponents uint64

	group singleflight.Group
}

// NewResolutions creates an empty resolution cache.
func NewResolutions() *Resolutions {
	return &Resolutions{
		entries: make(map[Key]*entry),
		byDep:   make(map[string]map[Key]struct{}),
		changed: make(map[string]uint64),
	}
}

// GetOrCompute returns the cached ids for key or runs compute. Concurrent
// calls for the same key share one computation. A result whose dependencies
// were invalidated while it was being computed is returned but not stored.
func (c *Resolutions) GetOrCompute(key Key, compute ComputeFunc) []string {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		lookupsTotal.WithLabelValues("resolution", "hit").Inc()
		return clone(e.ids)
	}
	lookupsTotal.WithLabelValues("resolution", "miss").Inc()

	v, _, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.RLock()
		start := c.generation
		c.mu.RUnlock()

		ids, deps := compute()
		c.store(key, ids, deps, start)
		return ids, nil
	})
	return clone(v.([]string))
}

func (c *Resolutions) store(key Key, ids, deps []string, start uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range deps {
		if c.changed[d] > start || (strings.HasPrefix(d, "component:") && c.allComponents > start) {
			staleDiscardsTotal.Inc()
			return
		}
	}
	c.entries[key] = &entry{ids: clone(ids), deps: deps, generation: start}
	for _, d := range deps {
		keys, ok := c.byDep[d]
		if !ok {
			keys = make(map[Key]struct{})
			c.byDep[d] = keys
		}
		keys[key] = struct{}{}
	}
}

// Invalidate drops every entry depending on the entity or on the component
// index of componentTypeID. An empty componentTypeID means the entity itself
// was added or removed, which touches every component index.
func (c *Resolutions) Invalidate(entityID, componentTypeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	deps := []string{EntityDep(entityID)}
	if componentTypeID != "" {
		deps = append(deps, ComponentDep(componentTypeID))
	} else {
		c.allComponents = c.generation
		for d := range c.byDep {
			if strings.HasPrefix(d, "component:") {
				deps = append(deps, d)
			}
		}
	}
	for _, d := range deps {
		c.changed[d] = c.generation
		for key := range c.byDep[d] {
			c.dropLocked(key)
		}
	}
}

func (c *Resolutions) dropLocked(key Key) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	invalidationsTotal.Inc()
	for _, d := range e.deps {
		if keys, ok := c.byDep[d]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byDep, d)
			}
		}
	}
}

// Subscriber is the mutation notification source, typically *world.Store.
type Subscriber interface {
	Subscribe(fn func(entityID, componentTypeID string)) func()
}

// Attach subscribes the cache to mutation notifications. The returned
// function detaches it.
func (c *Resolutions) Attach(s Subscriber) func() {
	return s.Subscribe(c.Invalidate)
}

// Clear drops every entry.
func (c *Resolutions) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries = make(map[Key]*entry)
	c.byDep = make(map[string]map[Key]struct{})
}

// Len returns the number of cached resolutions.
func (c *Resolutions) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Generation returns the current invalidation generation.
func (c *Resolutions) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func clone(ids []string) []string {
	if ids == nil {
		return nil
	}
	return append([]string(nil), ids...)
}
