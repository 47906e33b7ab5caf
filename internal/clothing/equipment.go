package clothing

import (
	"github.com/suderio/scopedsl/internal/world"
)

// DefectKind names a malformed-equipment condition. Kinds are the only thing
// reported about a defect; the offending key itself is never echoed.
type DefectKind string

const (
	DefectMalformedEquipment DefectKind = "malformed equipment"
	DefectUnknownSlot        DefectKind = "unknown slot"
	DefectMalformedSlot      DefectKind = "malformed slot"
	DefectUnknownLayer       DefectKind = "unknown layer"
	DefectMalformedItem      DefectKind = "malformed item"
	DefectUnknownSocket      DefectKind = "unknown socket"
)

// Defect locates an invalid key inside the equipment component. Path is the
// key path to delete to repair it; it is empty when nothing can be removed
// without fabricating data.
type Defect struct {
	Kind DefectKind
	Path []string
}

// SlotEntry holds the items equipped in one slot, one per layer.
type SlotEntry struct {
	Name  string
	Items map[string]string
}

// Item returns the item id on layer.
func (s SlotEntry) Item(layer string) (string, bool) {
	id, ok := s.Items[layer]
	return id, ok
}

// Topmost returns the first occupied layer among layers, which must be given
// in priority order.
func (s SlotEntry) Topmost(layers []string) (id, layer string, ok bool) {
	for _, l := range layers {
		if id, ok := s.Items[l]; ok {
			return id, l, true
		}
	}
	return "", "", false
}

// Equipment is the validated view of a clothing:equipment component.
// Slots keep the component's insertion order.
type Equipment struct {
	Slots []SlotEntry
}

// Slot returns the entry for one slot.
func (e Equipment) Slot(name string) (SlotEntry, bool) {
	for _, s := range e.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return SlotEntry{}, false
}

// Items lists every equipped item id in slot order then layer order.
func (e Equipment) Items() []string {
	var out []string
	for _, s := range e.Slots {
		for _, l := range AllLayers {
			if id, ok := s.Items[l]; ok {
				out = append(out, id)
			}
		}
	}
	return out
}

// Decode validates equipment component data of the shape
// {equipped: {slot: {layer: itemId}}}. Invalid entries are left out of the
// result and reported as defects. Absent data decodes to empty equipment.
func Decode(data any, v *Vocabulary) (Equipment, []Defect) {
	var eq Equipment
	if data == nil {
		return eq, nil
	}
	if !world.IsObject(data) {
		return eq, []Defect{{Kind: DefectMalformedEquipment}}
	}
	equipped, ok := world.Get(data, "equipped")
	if !ok || equipped == nil {
		return eq, nil
	}
	slots, ok := world.Keys(equipped)
	if !ok {
		return eq, []Defect{{Kind: DefectMalformedEquipment, Path: []string{"equipped"}}}
	}
	var defects []Defect
	for _, slot := range slots {
		if !v.IsSlot(slot) {
			defects = append(defects, Defect{Kind: DefectUnknownSlot, Path: []string{"equipped", slot}})
			continue
		}
		raw, _ := world.Get(equipped, slot)
		layers, ok := world.Keys(raw)
		if !ok {
			defects = append(defects, Defect{Kind: DefectMalformedSlot, Path: []string{"equipped", slot}})
			continue
		}
		entry := SlotEntry{Name: slot, Items: make(map[string]string, len(layers))}
		for _, layer := range layers {
			if !v.IsLayer(layer) {
				defects = append(defects, Defect{Kind: DefectUnknownLayer, Path: []string{"equipped", slot, layer}})
				continue
			}
			item, _ := world.Get(raw, layer)
			id, ok := item.(string)
			if !ok || id == "" {
				defects = append(defects, Defect{Kind: DefectMalformedItem, Path: []string{"equipped", slot, layer}})
				continue
			}
			entry.Items[layer] = id
		}
		if len(entry.Items) > 0 {
			eq.Slots = append(eq.Slots, entry)
		}
	}
	return eq, defects
}
