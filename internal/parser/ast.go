package parser

import (
	"fmt"
	"strings"
)

// SourceKind identifies the entity root a term starts from.
type SourceKind string

const (
	SourceActor    SourceKind = "actor"
	SourceLocation SourceKind = "location"
	SourceTarget   SourceKind = "target"
	SourceTargets  SourceKind = "targets"
	SourceGame     SourceKind = "game"
	SourceNone     SourceKind = "none"
	SourceEntities SourceKind = "entities"
)

// Node is a scope expression AST node. Nodes are plain values: the tree is
// built once by the parser and never mutated, so two parses of the same text
// compare equal with cmp.Equal.
type Node interface {
	node()
	String() string
}

// Source is the root of a term.
type Source struct {
	Kind      SourceKind
	Component string // entities(...) only
	Negate    bool   // entities(!...) only
}

// Field reads a key from the parent value. When Component is set the key is
// a component type id and is read from an entity through the accessor.
type Field struct {
	Parent    Node
	Name      string
	Component bool
}

// SlotAccess selects one slot, slot group or socket from a layered query,
// e.g. the "torso_upper" in "actor.topmost_clothing.torso_upper".
type SlotAccess struct {
	Parent Node
	Key    string
}

// Expand flattens the parent ("[]").
type Expand struct {
	Parent Node
}

// Filter keeps the parent candidates for which Predicate holds.
type Filter struct {
	Parent    Node
	Predicate string
}

// Union is the ordered union of two sub-expressions ("|" or "+").
type Union struct {
	Left  Node
	Right Node
}

func (Source) node()     {}
func (Field) node()      {}
func (SlotAccess) node() {}
func (Expand) node()     {}
func (Filter) node()     {}
func (Union) node()      {}

func (n Source) String() string {
	if n.Kind != SourceEntities {
		return string(n.Kind)
	}
	if n.Negate {
		return "entities(!" + n.Component + ")"
	}
	return "entities(" + n.Component + ")"
}

func (n Field) String() string      { return n.Parent.String() + "." + n.Name }
func (n SlotAccess) String() string { return n.Parent.String() + "." + n.Key }
func (n Expand) String() string     { return n.Parent.String() + "[]" }
func (n Filter) String() string     { return n.Parent.String() + "[" + n.Predicate + "]" }
func (n Union) String() string      { return n.Left.String() + " | " + n.Right.String() }

// Expression is a parsed scope expression.
type Expression struct {
	Text  string
	Root  Node
	Depth int // longest step chain of any term
}

// String renders the canonical form of the expression.
func (e *Expression) String() string {
	if e == nil || e.Root == nil {
		return ""
	}
	return e.Root.String()
}

// Sources lists the distinct source kinds the expression reads from.
func (e *Expression) Sources() []SourceKind {
	var out []SourceKind
	seen := make(map[SourceKind]bool)
	Walk(e.Root, func(n Node) {
		if s, ok := n.(Source); ok && !seen[s.Kind] {
			seen[s.Kind] = true
			out = append(out, s.Kind)
		}
	})
	return out
}

// HasFilter reports whether any filter node is present.
func (e *Expression) HasFilter() bool {
	found := false
	Walk(e.Root, func(n Node) {
		if _, ok := n.(Filter); ok {
			found = true
		}
	})
	return found
}

// Walk visits n and its ancestors/children depth first, parents before children.
func Walk(n Node, fn func(Node)) {
	switch v := n.(type) {
	case Source:
		fn(v)
	case Field:
		Walk(v.Parent, fn)
		fn(v)
	case SlotAccess:
		Walk(v.Parent, fn)
		fn(v)
	case Expand:
		Walk(v.Parent, fn)
		fn(v)
	case Filter:
		Walk(v.Parent, fn)
		fn(v)
	case Union:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
		fn(v)
	case nil:
	default:
		panic(fmt.Sprintf("parser: unknown node %T", n))
	}
}

// normalizePredicate trims the surrounding whitespace of a filter body and
// collapses interior runs of whitespace outside string literals.
func normalizePredicate(s string) string {
	var b strings.Builder
	var quote rune
	space, escaped := false, false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case quote != 0:
			b.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		case r == '"' || r == '\'':
			quote = r
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
