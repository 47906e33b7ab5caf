// Package clothing defines the closed clothing vocabulary (layers, slots,
// sockets and slot groups) and decodes equipment and wearable component data
// against it. Nothing outside the vocabulary is ever looked up.
package clothing

import (
	"fmt"
	"regexp"
	"sort"
)

// Component type ids interpreted by the engine.
const (
	EquipmentComponent = "clothing:equipment"
	WearableComponent  = "clothing:wearable"
	AnatomyComponent   = "anatomy:sockets"
)

// Layers.
const (
	LayerOuter       = "outer"
	LayerBase        = "base"
	LayerUnderwear   = "underwear"
	LayerAccessories = "accessories"
)

// StackLayers is the layer stack, highest priority first. Accessories are
// tracked outside the stack.
var StackLayers = []string{LayerOuter, LayerBase, LayerUnderwear}

// AllLayers lists every layer in all_clothing order.
var AllLayers = []string{LayerOuter, LayerBase, LayerUnderwear, LayerAccessories}

var defaultSlots = []string{
	"head_gear", "face_gear", "neck", "torso_upper", "torso_lower",
	"left_arm_clothing", "right_arm_clothing", "hands", "legs", "feet",
}

var defaultSockets = []string{
	"head", "face", "neck", "left_shoulder", "right_shoulder", "chest",
	"upper_back", "lower_back", "abdomen", "waist", "left_arm", "right_arm",
	"left_hand", "right_hand", "groin", "left_hip", "right_hip", "left_leg",
	"right_leg", "left_foot", "right_foot",
}

// DefaultGroups are the built-in multi-slot groups.
var DefaultGroups = map[string][]string{
	"upper_body": {"torso_upper", "hands", "head_gear"},
	"lower_body": {"torso_lower", "legs", "feet"},
	"arms":       {"left_arm_clothing", "right_arm_clothing", "hands"},
	"head":       {"head_gear", "face_gear", "neck"},
}

// DefaultMaxGroupSize bounds the number of slots in one group.
const DefaultMaxGroupSize = 8

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Vocabulary is the closed set of identifiers the resolvers accept.
type Vocabulary struct {
	slots     map[string]bool
	slotOrder []string
	layers    map[string]int
	sockets   map[string]bool
	groups    map[string][]string
}

var defaultVocabulary = mustDefault()

func mustDefault() *Vocabulary {
	v, err := NewVocabulary(nil, DefaultMaxGroupSize)
	if err != nil {
		panic(err)
	}
	return v
}

// Default returns the built-in vocabulary. It is shared and read-only.
func Default() *Vocabulary { return defaultVocabulary }

// NewVocabulary builds a vocabulary with extra slot groups on top of the
// defaults. Group members must be known slots, and no group may exceed
// maxGroupSize slots.
func NewVocabulary(extra map[string][]string, maxGroupSize int) (*Vocabulary, error) {
	if maxGroupSize <= 0 {
		maxGroupSize = DefaultMaxGroupSize
	}
	v := &Vocabulary{
		slots:     make(map[string]bool, len(defaultSlots)),
		slotOrder: append([]string(nil), defaultSlots...),
		layers:    make(map[string]int, len(AllLayers)),
		sockets:   make(map[string]bool, len(defaultSockets)),
		groups:    make(map[string][]string, len(DefaultGroups)+len(extra)),
	}
	for _, s := range defaultSlots {
		v.slots[s] = true
	}
	for i, l := range AllLayers {
		v.layers[l] = i
	}
	for _, s := range defaultSockets {
		v.sockets[s] = true
	}
	for name, members := range DefaultGroups {
		v.groups[name] = members
	}
	for name, members := range extra {
		if err := v.addGroup(name, members, maxGroupSize); err != nil {
			return nil, err
		}
	}
	for name, members := range v.groups {
		if len(members) > maxGroupSize {
			return nil, fmt.Errorf("clothing group %s exceeds %d slots", name, maxGroupSize)
		}
	}
	return v, nil
}

func (v *Vocabulary) addGroup(name string, members []string, maxGroupSize int) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("clothing group name is not a valid identifier")
	}
	if v.slots[name] || v.sockets[name] {
		return fmt.Errorf("clothing group %s shadows a slot or socket", name)
	}
	if len(members) == 0 || len(members) > maxGroupSize {
		return fmt.Errorf("clothing group %s must have between 1 and %d slots", name, maxGroupSize)
	}
	seen := make(map[string]bool, len(members))
	for i, m := range members {
		if !v.slots[m] {
			return fmt.Errorf("clothing group %s: member %d is not a known slot", name, i)
		}
		if seen[m] {
			return fmt.Errorf("clothing group %s: member %d is repeated", name, i)
		}
		seen[m] = true
	}
	v.groups[name] = append([]string(nil), members...)
	return nil
}

// IsSlot reports whether name is a whitelisted slot.
func (v *Vocabulary) IsSlot(name string) bool { return v.slots[name] }

// IsLayer reports whether name is a whitelisted layer.
func (v *Vocabulary) IsLayer(name string) bool {
	_, ok := v.layers[name]
	return ok
}

// IsSocket reports whether name is a whitelisted anatomy socket.
func (v *Vocabulary) IsSocket(name string) bool { return v.sockets[name] }

// Group returns the slots of a named group.
func (v *Vocabulary) Group(name string) ([]string, bool) {
	g, ok := v.groups[name]
	return g, ok
}

// IsKey reports whether name can follow a clothing field as a dot key.
func (v *Vocabulary) IsKey(name string) bool {
	_, group := v.groups[name]
	return v.slots[name] || v.sockets[name] || group
}

// Slots lists the slots in canonical order.
func (v *Vocabulary) Slots() []string { return append([]string(nil), v.slotOrder...) }

// Groups lists the group names in sorted order.
func (v *Vocabulary) Groups() []string {
	out := make([]string, 0, len(v.groups))
	for name := range v.groups {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
