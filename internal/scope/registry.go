package scope

import (
	"fmt"
	"sort"

	"github.com/suderio/scopedsl/internal/clothing"
)

// Family groups registry fields by the kind of question they answer.
type Family string

const (
	FamilyLayering  Family = "layering"
	FamilySemantic  Family = "semantic"
	FamilySocket    Family = "socket"
	FamilyMultiSlot Family = "multi-slot"
)

// Resolver computes the value of a registry field on one entity. The value
// is a clothing query, a list, or nil for nothing.
type Resolver interface {
	Resolve(r *Request, entityID string) any
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *Request, entityID string) any

// Resolve calls f.
func (f ResolverFunc) Resolve(r *Request, entityID string) any { return f(r, entityID) }

type registration struct {
	family   Family
	resolver Resolver
}

// Registry is the static dispatch table from field name to resolver. It is
// built once and only read afterwards.
type Registry struct {
	entries map[string]registration
}

var groupFields = map[string]string{
	"upper_body": "upper_body_clothing",
	"lower_body": "lower_body_clothing",
	"arms":       "arm_clothing",
	"head":       "head_clothing",
}

// NewRegistry builds the built-in table for vocab. Every slot group gets a
// multi-slot field; groups without a built-in field name are exposed as
// <group>_clothing.
func NewRegistry(vocab *clothing.Vocabulary) *Registry {
	r := &Registry{entries: make(map[string]registration)}
	stack := clothing.StackLayers

	r.mustRegister("topmost_clothing", FamilyLayering, layered("topmost_clothing", topmost(stack), nil))
	r.mustRegister("all_clothing", FamilyLayering, layered("all_clothing", onLayers(clothing.AllLayers...), nil))
	r.mustRegister("outer_clothing", FamilyLayering, layered("outer_clothing", onLayers(clothing.LayerOuter), nil))
	r.mustRegister("base_clothing", FamilyLayering, layered("base_clothing", onLayers(clothing.LayerBase), nil))
	r.mustRegister("underwear", FamilyLayering, layered("underwear", onLayers(clothing.LayerUnderwear), nil))
	r.mustRegister("accessories", FamilyLayering, layered("accessories", onLayers(clothing.LayerAccessories), nil))

	r.mustRegister("visible_clothing", FamilySemantic, layered("visible_clothing", onLayers(clothing.LayerOuter, clothing.LayerAccessories), nil))
	r.mustRegister("removable_clothing", FamilySemantic, layered("removable_clothing", removable, nil))
	for _, name := range []string{"formal", "casual", "sportswear", "armor", "waterproof"} {
		field := name + "_clothing"
		r.mustRegister(field, FamilySemantic, layered(field, inCategory(clothing.Categories[name]), nil))
	}
	r.mustRegister("sleepwear", FamilySemantic, layered("sleepwear", inCategory(clothing.Categories["sleepwear"]), nil))
	r.mustRegister("dirty_clothing", FamilySemantic, layered("dirty_clothing", withCondition(true), nil))
	r.mustRegister("clean_clothing", FamilySemantic, layered("clean_clothing", withCondition(false), nil))

	r.mustRegister("covered_sockets", FamilySocket, ResolverFunc(coveredSockets))
	r.mustRegister("exposed_sockets", FamilySocket, ResolverFunc(exposedSockets))
	r.mustRegister("socket_clothing", FamilySocket, ResolverFunc(socketClothing))

	for _, group := range vocab.Groups() {
		field, ok := groupFields[group]
		if !ok {
			field = group + "_clothing"
		}
		slots, _ := vocab.Group(group)
		if _, taken := r.entries[field]; taken {
			continue
		}
		r.mustRegister(field, FamilyMultiSlot, layered(field, topmost(stack), slots))
	}
	return r
}

// Register adds a resolver. Names are unique.
func (r *Registry) Register(name string, family Family, res Resolver) error {
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("field %s is already registered", name)
	}
	r.entries[name] = registration{family: family, resolver: res}
	return nil
}

func (r *Registry) mustRegister(name string, family Family, res Resolver) {
	if err := r.Register(name, family, res); err != nil {
		panic(err)
	}
}

// Lookup returns the resolver of a field.
func (r *Registry) Lookup(name string) (Resolver, bool) {
	e, ok := r.entries[name]
	return e.resolver, ok
}

// Family returns the family of a field.
func (r *Registry) Family(name string) (Family, bool) {
	e, ok := r.entries[name]
	return e.family, ok
}

// Names lists the registered fields in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
