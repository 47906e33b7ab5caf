package scope

import (
	"sort"
	"strconv"
	"strings"

	"github.com/suderio/scopedsl/internal/predicate"
	"github.com/suderio/scopedsl/internal/world"
)

// Accessor is the read capability the engine needs from the entity store.
// It must tolerate unknown entities and components by reporting absence.
type Accessor interface {
	GetComponentData(entityID, componentTypeID string) (any, bool)
}

// ComponentLister is implemented by accessors that can enumerate an
// entity's component types. Without it predicate entity views carry only ids.
type ComponentLister interface {
	ComponentTypes(entityID string) []string
}

// EntityIndex is implemented by accessors that can list entities by
// component. Without it entities(...) resolves to nothing.
type EntityIndex interface {
	EntitiesWithComponent(componentTypeID string, negate bool) []string
}

// Repairer is implemented by accessors that can delete a key inside a
// component. Without it malformed equipment is skipped but never repaired.
type Repairer interface {
	RemoveComponentPath(entityID, componentTypeID string, path ...string) bool
}

// Optional is a value that may be absent.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, ok: true} }

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }

// Present reports whether a value is set.
func (o Optional[T]) Present() bool { return o.ok }

// Permissions relax semantic clothing filters.
type Permissions struct {
	Underwear bool
}

// Context is the environment of one resolution. It is a value: derived
// contexts are built with the With methods and never patched in place.
type Context struct {
	Actor       string
	Location    string
	Game        string
	Target      Optional[string]
	Targets     Optional[map[string][]string]
	Permissions Permissions
}

// WithTarget returns a copy of c whose target is id.
func (c Context) WithTarget(id string) Context {
	c.Target = Some(id)
	return c
}

// WithTargets returns a copy of c carrying a copy of the resolved sets.
func (c Context) WithTargets(sets map[string][]string) Context {
	copied := make(map[string][]string, len(sets))
	for k, v := range sets {
		copied[k] = append([]string(nil), v...)
	}
	c.Targets = Some(copied)
	return c
}

// Signature renders every part of the context except the actor as a stable
// string for cache keys. Every id is length-prefixed so that ids containing
// separators cannot make two contexts collide.
func (c Context) Signature() string {
	var b strings.Builder
	b.WriteString("loc=")
	writeID(&b, c.Location)
	b.WriteString(";game=")
	writeID(&b, c.Game)
	if id, ok := c.Target.Get(); ok {
		b.WriteString(";target=")
		writeID(&b, id)
	}
	if sets, ok := c.Targets.Get(); ok {
		b.WriteString(";targets=")
		for _, name := range sortedKeys(sets) {
			writeID(&b, name)
			b.WriteString(strconv.Itoa(len(sets[name])))
			for _, id := range sets[name] {
				writeID(&b, id)
			}
		}
	}
	if c.Permissions.Underwear {
		b.WriteString(";underwear")
	}
	return b.String()
}

func writeID(b *strings.Builder, id string) {
	b.WriteString(strconv.Itoa(len(id)))
	b.WriteByte(':')
	b.WriteString(id)
}

// PositionComponent holds an entity's current location.
const PositionComponent = "core:position"

// NewContext builds the context of an actor. The location is read from the
// actor's core:position component when present.
func NewContext(accessor Accessor, actorID string) Context {
	ctx := Context{Actor: actorID, Game: "game"}
	if data, ok := accessor.GetComponentData(actorID, PositionComponent); ok {
		ctx.Location = world.GetString(data, "locationId")
	}
	return ctx
}

// views builds predicate entity views and memoizes them per request.
type views struct {
	accessor Accessor
	cache    map[string]map[string]any
}

func newViews(a Accessor) *views {
	return &views{accessor: a, cache: make(map[string]map[string]any)}
}

// entity returns {id, components: {type: data}} for id.
func (v *views) entity(id string) map[string]any {
	if view, ok := v.cache[id]; ok {
		return view
	}
	comps := make(map[string]any)
	if lister, ok := v.accessor.(ComponentLister); ok {
		for _, t := range lister.ComponentTypes(id) {
			if data, ok := v.accessor.GetComponentData(id, t); ok {
				comps[t] = world.Plain(data)
			}
		}
	}
	view := map[string]any{"id": id, "components": comps}
	v.cache[id] = view
	return view
}

// env builds the predicate environment of c. Absent optional values are
// left out rather than bound to empty placeholders. targets maps each
// resolved definition to the views of its candidates.
func (v *views) env(c Context) predicate.Env {
	env := predicate.Env{
		"permissions": map[string]any{"underwear": c.Permissions.Underwear},
	}
	if c.Actor != "" {
		env["actor"] = v.entity(c.Actor)
	}
	if c.Location != "" {
		env["location"] = v.entity(c.Location)
	}
	if c.Game != "" {
		env["game"] = v.entity(c.Game)
	}
	if id, ok := c.Target.Get(); ok {
		env["target"] = v.entity(id)
	}
	if sets, ok := c.Targets.Get(); ok {
		m := make(map[string]any, len(sets))
		for name, ids := range sets {
			list := make([]any, len(ids))
			for i, id := range ids {
				list[i] = v.entity(id)
			}
			m[name] = list
		}
		env["targets"] = m
	}
	return env
}

// Environment builds the predicate environment of c with a candidate bound
// as entity and target, the shape target validations are evaluated in.
func Environment(accessor Accessor, c Context, candidate string) predicate.Env {
	v := newViews(accessor)
	env := v.env(c)
	if candidate != "" {
		view := v.entity(candidate)
		env["entity"] = view
		env["target"] = view
	}
	return env
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
