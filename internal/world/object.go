// Package world holds the in-memory entity/component graph the scope engine
// reads from. Component data is stored as generic values: ordered objects,
// []any lists and scalars, exactly as they were authored.
package world

import (
	"sort"
)

// Object is an insertion-ordered string-keyed map. Authored component data
// decodes into Objects so that iteration (slot order in equipment, for
// example) follows the order the author wrote.
//
// Objects stored in a Store are treated as immutable; mutations go through
// Clone.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject builds an Object from alternating key/value arguments.
// It panics on an odd argument count or a non-string key, which is only
// reachable from test fixtures.
func NewObject(kv ...any) *Object {
	if len(kv)%2 != 0 {
		panic("world.NewObject: odd number of arguments")
	}
	o := &Object{values: make(map[string]any, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("world.NewObject: key must be a string")
		}
		o.Set(k, kv[i+1])
	}
	return o
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Set inserts or replaces key. Replacing keeps the original position.
func (o *Object) Set(key string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil {
		return false
	}
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Clone returns a shallow copy: nested values are shared.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{keys: make([]string, len(o.keys)), values: make(map[string]any, len(o.values))}
	copy(c.keys, o.keys)
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}

// Keys returns the keys of an object-like value in deterministic order:
// insertion order for *Object, sorted order for map[string]any.
func Keys(v any) ([]string, bool) {
	switch t := v.(type) {
	case *Object:
		return t.Keys(), true
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys, true
	}
	return nil, false
}

// Get reads key from an object-like value.
func Get(v any, key string) (any, bool) {
	switch t := v.(type) {
	case *Object:
		return t.Get(key)
	case map[string]any:
		val, ok := t[key]
		return val, ok
	}
	return nil, false
}

// IsObject reports whether v is an object-like value.
func IsObject(v any) bool {
	switch v.(type) {
	case *Object, map[string]any:
		return true
	}
	return false
}

// GetString reads a string field, returning "" when absent or not a string.
func GetString(v any, key string) string {
	raw, ok := Get(v, key)
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}

// Plain converts a component value into plain Go maps and slices
// (map[string]any, []any, int64, float64, string, bool), the shape
// expression evaluators understand.
func Plain(v any) any {
	switch t := v.(type) {
	case *Object:
		m := make(map[string]any, t.Len())
		for _, k := range t.keys {
			m[k] = Plain(t.values[k])
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = Plain(val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Plain(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	}
	return v
}
