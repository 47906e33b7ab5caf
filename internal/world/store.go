package world

import (
	"sort"
	"sync"
)

// Listener receives a notification after a component of an entity changed.
// componentTypeID is "" when the entity itself was added or removed.
type Listener = func(entityID, componentTypeID string)

type entityRecord struct {
	components map[string]any
	types      []string
}

// Store is a concurrency-safe in-memory entity/component store. It is the
// entity-management collaborator the scope engine reads from and the source
// of mutation notifications for the resolution cache.
//
// Stored component values must not be mutated by callers after SetComponent;
// RemoveComponentPath replaces values copy-on-write so readers holding an
// older value are never affected.
type Store struct {
	mu        sync.RWMutex
	entities  map[string]*entityRecord
	order     []string
	listeners map[int]Listener
	nextID    int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entities:  make(map[string]*entityRecord),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn for mutation notifications. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(entityID, componentTypeID string) {
	s.mu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		ls = append(ls, s.listeners[id])
	}
	s.mu.RUnlock()
	for _, fn := range ls {
		fn(entityID, componentTypeID)
	}
}

// AddEntity registers an entity without components. It returns false if the
// id is already present.
func (s *Store) AddEntity(id string) bool {
	s.mu.Lock()
	if _, ok := s.entities[id]; ok {
		s.mu.Unlock()
		return false
	}
	s.addLocked(id)
	s.mu.Unlock()
	s.notify(id, "")
	return true
}

func (s *Store) addLocked(id string) *entityRecord {
	rec := &entityRecord{components: make(map[string]any)}
	s.entities[id] = rec
	s.order = append(s.order, id)
	return rec
}

// RemoveEntity deletes an entity and all its components.
func (s *Store) RemoveEntity(id string) bool {
	s.mu.Lock()
	if _, ok := s.entities[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.entities, id)
	for i, e := range s.order {
		if e == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify(id, "")
	return true
}

// SetComponent stores data as the component of the given type, creating the
// entity when needed. Creating the entity sends the entity-added
// notification before the component one.
func (s *Store) SetComponent(entityID, componentTypeID string, data any) {
	s.mu.Lock()
	rec, existed := s.entities[entityID]
	if !existed {
		rec = s.addLocked(entityID)
	}
	if _, exists := rec.components[componentTypeID]; !exists {
		rec.types = append(rec.types, componentTypeID)
	}
	rec.components[componentTypeID] = data
	s.mu.Unlock()
	if !existed {
		s.notify(entityID, "")
	}
	s.notify(entityID, componentTypeID)
}

// RemoveComponent deletes one component from an entity.
func (s *Store) RemoveComponent(entityID, componentTypeID string) bool {
	s.mu.Lock()
	rec, ok := s.entities[entityID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if _, exists := rec.components[componentTypeID]; !exists {
		s.mu.Unlock()
		return false
	}
	delete(rec.components, componentTypeID)
	for i, t := range rec.types {
		if t == componentTypeID {
			rec.types = append(rec.types[:i:i], rec.types[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify(entityID, componentTypeID)
	return true
}

// GetComponentData returns the component of the given type, if present.
func (s *Store) GetComponentData(entityID, componentTypeID string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.entities[entityID]
	if !ok {
		return nil, false
	}
	data, ok := rec.components[componentTypeID]
	return data, ok
}

// HasComponent reports whether the entity has a component of the given type.
func (s *Store) HasComponent(entityID, componentTypeID string) bool {
	_, ok := s.GetComponentData(entityID, componentTypeID)
	return ok
}

// HasEntity reports whether the id is registered.
func (s *Store) HasEntity(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok
}

// ComponentTypes lists an entity's component types in the order they were added.
func (s *Store) ComponentTypes(entityID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.entities[entityID]
	if !ok {
		return nil
	}
	out := make([]string, len(rec.types))
	copy(out, rec.types)
	return out
}

// EntityIDs lists all entity ids in registration order.
func (s *Store) EntityIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// EntitiesWithComponent lists, in registration order, the entities that have
// (or, with negate, lack) a component of the given type.
func (s *Store) EntitiesWithComponent(componentTypeID string, negate bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.order {
		_, has := s.entities[id].components[componentTypeID]
		if has != negate {
			out = append(out, id)
		}
	}
	return out
}

// RemoveComponentPath deletes the key at path inside a component value. The
// component is replaced copy-on-write. It reports whether anything was
// removed; a missing path is a no-op, which keeps repairs idempotent.
func (s *Store) RemoveComponentPath(entityID, componentTypeID string, path ...string) bool {
	if len(path) == 0 {
		return false
	}
	s.mu.Lock()
	rec, ok := s.entities[entityID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	data, ok := rec.components[componentTypeID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	updated, removed := removePath(data, path)
	if removed {
		rec.components[componentTypeID] = updated
	}
	s.mu.Unlock()
	if removed {
		s.notify(entityID, componentTypeID)
	}
	return removed
}

func removePath(v any, path []string) (any, bool) {
	key := path[0]
	if len(path) == 1 {
		switch t := v.(type) {
		case *Object:
			if _, ok := t.Get(key); !ok {
				return v, false
			}
			c := t.Clone()
			c.Delete(key)
			return c, true
		case map[string]any:
			if _, ok := t[key]; !ok {
				return v, false
			}
			c := copyMap(t)
			delete(c, key)
			return c, true
		}
		return v, false
	}
	child, ok := Get(v, key)
	if !ok {
		return v, false
	}
	updated, removed := removePath(child, path[1:])
	if !removed {
		return v, false
	}
	switch t := v.(type) {
	case *Object:
		c := t.Clone()
		c.Set(key, updated)
		return c, true
	case map[string]any:
		c := copyMap(t)
		c[key] = updated
		return c, true
	}
	return v, false
}

func copyMap(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
