package scope

import (
	"sort"

	"github.com/suderio/scopedsl/internal/clothing"
)

// picker returns the items of one slot admitted by a field, highest
// priority first.
type picker func(r *Request, slot clothing.SlotEntry) []string

// onLayers admits the items on the given layers, in that order.
func onLayers(layers ...string) picker {
	return func(_ *Request, slot clothing.SlotEntry) []string {
		var out []string
		for _, l := range layers {
			if id, ok := slot.Item(l); ok {
				out = append(out, id)
			}
		}
		return out
	}
}

// topmost admits the single highest-priority occupied layer of stack.
func topmost(stack []string) picker {
	return func(_ *Request, slot clothing.SlotEntry) []string {
		if id, _, ok := slot.Topmost(stack); ok {
			return []string{id}
		}
		return nil
	}
}

// removable admits the topmost of outer/base, underwear only when the
// context permits it, plus accessories.
func removable(r *Request, slot clothing.SlotEntry) []string {
	stack := []string{clothing.LayerOuter, clothing.LayerBase}
	if r.ctx.Permissions.Underwear {
		stack = clothing.StackLayers
	}
	out := topmost(stack)(r, slot)
	if id, ok := slot.Item(clothing.LayerAccessories); ok {
		out = append(out, id)
	}
	return out
}

// wearing admits items of every layer whose wearable satisfies keep. Items
// without a readable wearable component are not classified.
func wearing(keep func(clothing.Wearable) bool) picker {
	all := onLayers(clothing.AllLayers...)
	return func(r *Request, slot clothing.SlotEntry) []string {
		var out []string
		for _, id := range all(r, slot) {
			if w, ok := r.Wearable(id); ok && keep(w) {
				out = append(out, id)
			}
		}
		return out
	}
}

func inCategory(c clothing.Category) picker {
	return wearing(c.Admits)
}

func withCondition(dirty bool) picker {
	return wearing(func(w clothing.Wearable) bool { return w.Dirty == dirty })
}

// Query is the intermediate value of a clothing field: the question has
// been chosen, the slot has not. ".SLOT", ".GROUP" or "[]" answer it.
type Query struct {
	Entity string
	Field  string
	pick   picker
	// restrict limits the query to a multi-slot group; nil means every slot.
	restrict map[string]bool
	// socket queries are keyed by anatomy socket instead of slot.
	socket bool
}

func layered(field string, pick picker, slots []string) Resolver {
	var restrict map[string]bool
	if slots != nil {
		restrict = make(map[string]bool, len(slots))
		for _, s := range slots {
			restrict[s] = true
		}
	}
	return ResolverFunc(func(_ *Request, entityID string) any {
		return &Query{Entity: entityID, Field: field, pick: pick, restrict: restrict}
	})
}

func (q *Query) admits(slot string) bool {
	return q.restrict == nil || q.restrict[slot]
}

// key answers ".KEY": one slot yields its single highest-priority admitted
// item, a group yields every admitted item across its slots.
func (q *Query) key(r *Request, key string) []any {
	if q.socket {
		return q.coveringSocket(r, key)
	}
	vocab := r.engine.vocab
	if vocab.IsSlot(key) {
		if !q.admits(key) {
			return nil
		}
		slot, ok := r.Equipment(q.Entity).Slot(key)
		if !ok {
			return nil
		}
		if items := q.pick(r, slot); len(items) > 0 {
			return []any{items[0]}
		}
		return nil
	}
	if members, ok := vocab.Group(key); ok {
		in := make(map[string]bool, len(members))
		for _, m := range members {
			in[m] = q.admits(m)
		}
		return q.collect(r, func(slot string) bool { return in[slot] })
	}
	r.reject(clothing.DefectUnknownSlot)
	return nil
}

// flatten answers "[]": every admitted item of every slot.
func (q *Query) flatten(r *Request) []any {
	if q.socket {
		return q.coveringAny(r)
	}
	return q.collect(r, q.admits)
}

func (q *Query) collect(r *Request, include func(string) bool) []any {
	var out []any
	seen := make(map[string]bool)
	for _, slot := range r.Equipment(q.Entity).Slots {
		if !include(slot.Name) {
			continue
		}
		for _, id := range q.pick(r, slot) {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

type layeredItem struct {
	id   string
	rank int
}

// equippedItems lists every equipped item with its layer rank, in slot order.
func equippedItems(r *Request, entityID string) []layeredItem {
	var out []layeredItem
	for _, slot := range r.Equipment(entityID).Slots {
		for rank, l := range clothing.AllLayers {
			if id, ok := slot.Item(l); ok {
				out = append(out, layeredItem{id: id, rank: rank})
			}
		}
	}
	return out
}

func (q *Query) coveringSocket(r *Request, socket string) []any {
	if !r.engine.vocab.IsSocket(socket) {
		r.reject(clothing.DefectUnknownSocket)
		return nil
	}
	var matches []layeredItem
	for _, it := range equippedItems(r, q.Entity) {
		if w, ok := r.Wearable(it.id); ok && w.Covers(socket) {
			matches = append(matches, it)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })
	out := make([]any, 0, len(matches))
	seen := make(map[string]bool)
	for _, m := range matches {
		if !seen[m.id] {
			seen[m.id] = true
			out = append(out, m.id)
		}
	}
	return out
}

func (q *Query) coveringAny(r *Request) []any {
	var out []any
	seen := make(map[string]bool)
	for _, it := range equippedItems(r, q.Entity) {
		if w, ok := r.Wearable(it.id); ok && len(w.CoveredSockets) > 0 && !seen[it.id] {
			seen[it.id] = true
			out = append(out, it.id)
		}
	}
	return out
}

func socketClothing(_ *Request, entityID string) any {
	return &Query{Entity: entityID, Field: "socket_clothing", socket: true}
}

// coveredSet unions the covered sockets of every equipped item.
func coveredSet(r *Request, entityID string) (map[string]bool, []string) {
	covered := make(map[string]bool)
	var order []string
	for _, it := range equippedItems(r, entityID) {
		w, ok := r.Wearable(it.id)
		if !ok {
			continue
		}
		for _, s := range w.CoveredSockets {
			if !covered[s] {
				covered[s] = true
				order = append(order, s)
			}
		}
	}
	return covered, order
}

// coveredSockets lists the anatomy sockets covered by equipment, in anatomy
// order. Without an anatomy component every covered socket is reported.
func coveredSockets(r *Request, entityID string) any {
	covered, order := coveredSet(r, entityID)
	anatomy, ok := r.Anatomy(entityID)
	if !ok {
		return toList(order)
	}
	var out []string
	for _, s := range anatomy {
		if covered[s] {
			out = append(out, s)
		}
	}
	return toList(out)
}

// exposedSockets lists the anatomy sockets no equipped item covers.
func exposedSockets(r *Request, entityID string) any {
	anatomy, ok := r.Anatomy(entityID)
	if !ok {
		return []any{}
	}
	covered, _ := coveredSet(r, entityID)
	var out []string
	for _, s := range anatomy {
		if !covered[s] {
			out = append(out, s)
		}
	}
	return toList(out)
}

func toList(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
