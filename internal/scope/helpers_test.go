package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suderio/scopedsl/internal/clothing"
	"github.com/suderio/scopedsl/internal/predicate"
	"github.com/suderio/scopedsl/internal/world"
)

type item struct {
	id      string
	layer   string
	slot    string
	sockets []any
	tags    []any
	dirty   bool
}

func wearable(it item) *world.Object {
	return world.NewObject(
		"layer", it.layer,
		"slot", it.slot,
		"coveredSockets", it.sockets,
		"tags", it.tags,
		"condition", world.NewObject("dirty", it.dirty),
	)
}

// wardrobe builds a store where hero wears the given items, in order, and
// stands in the hall with a second actor.
func wardrobe(items ...item) *world.Store {
	s := world.NewStore()
	equipped := world.NewObject()
	for _, it := range items {
		slot, ok := equipped.Get(it.slot)
		if !ok {
			slot = world.NewObject()
			equipped.Set(it.slot, slot)
		}
		slot.(*world.Object).Set(it.layer, it.id)
	}
	s.SetComponent("hero", "core:actor", world.NewObject("name", "Hero"))
	s.SetComponent("hero", "core:position", world.NewObject("locationId", "hall"))
	s.SetComponent("hero", clothing.EquipmentComponent, world.NewObject("equipped", equipped))
	s.SetComponent("hero", clothing.AnatomyComponent, world.NewObject("sockets", []any{
		"head", "chest", "upper_back", "left_hand", "right_hand", "groin", "left_foot", "right_foot",
	}))
	for _, it := range items {
		s.SetComponent(it.id, clothing.WearableComponent, wearable(it))
	}
	s.SetComponent("guard", "core:actor", world.NewObject("name", "Guard"))
	s.SetComponent("guard", "core:position", world.NewObject("locationId", "hall"))
	s.SetComponent("hall", "core:location", world.NewObject("name", "Hall"))
	return s
}

var (
	jacket = item{id: "jacket", layer: "outer", slot: "torso_upper", sockets: []any{"chest", "upper_back"}, tags: []any{"formal"}}
	shirt  = item{id: "shirt", layer: "base", slot: "torso_upper", sockets: []any{"chest", "upper_back"}, tags: []any{"casual"}, dirty: true}
	vest   = item{id: "vest", layer: "underwear", slot: "torso_upper", sockets: []any{"chest"}}
	boxers = item{id: "boxers", layer: "underwear", slot: "legs", sockets: []any{"groin"}}
	jeans  = item{id: "jeans", layer: "base", slot: "legs", sockets: []any{"groin"}, tags: []any{"casual"}}
	boots  = item{id: "boots", layer: "outer", slot: "feet", sockets: []any{"left_foot", "right_foot"}, tags: []any{"waterproof"}}
	ring   = item{id: "ring", layer: "accessories", slot: "hands", tags: []any{"formal"}}
	hat    = item{id: "hat", layer: "outer", slot: "head_gear", sockets: []any{"head"}}
)

func newEngine(t *testing.T, s *world.Store, opts ...Option) *Engine {
	t.Helper()
	ev, err := predicate.NewCEL()
	require.NoError(t, err)
	return New(s, ev, opts...)
}

func resolve(t *testing.T, e *Engine, text string) []string {
	t.Helper()
	ids, err := e.ResolveText(text, NewContext(e.Accessor(), "hero"))
	require.NoError(t, err)
	return ids
}
