// Package parser turns scope expression text into an immutable AST.
//
//	actor.topmost_clothing.torso_upper
//	actor.core:inventory.items[][has_component(entity, "core:key")]
//	entities(core:actor)[entity.id != actor.id] | location.core:exits.doors[]
package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/suderio/scopedsl/internal/clothing"
)

// Limits bounds the work a single expression can describe.
type Limits struct {
	MaxDepth            int `mapstructure:"max_depth"`
	MaxFilterNesting    int `mapstructure:"max_filter_nesting"`
	MaxExpressionLength int `mapstructure:"max_expression_length"`
	MaxUnionTerms       int `mapstructure:"max_union_terms"`
}

// DefaultLimits returns the built-in parser bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:            12,
		MaxFilterNesting:    4,
		MaxExpressionLength: 2048,
		MaxUnionTerms:       16,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxFilterNesting <= 0 {
		l.MaxFilterNesting = d.MaxFilterNesting
	}
	if l.MaxExpressionLength <= 0 {
		l.MaxExpressionLength = d.MaxExpressionLength
	}
	if l.MaxUnionTerms <= 0 {
		l.MaxUnionTerms = d.MaxUnionTerms
	}
	return l
}

// Option configures a Parser.
type Option func(*Parser)

// WithLimits overrides the parser bounds. Zero fields keep their defaults.
func WithLimits(l Limits) Option {
	return func(p *Parser) { p.limits = l.withDefaults() }
}

// WithKeys sets the predicate deciding which names following a plain field
// parse as slot-dot-access nodes.
func WithKeys(isKey func(string) bool) Option {
	return func(p *Parser) { p.isKey = isKey }
}

// Parser is safe for concurrent use.
type Parser struct {
	grammar *participle.Parser[grammarExpression]
	limits  Limits
	isKey   func(string) bool
}

// New builds a Parser. By default slot keys come from the built-in clothing
// vocabulary.
func New(opts ...Option) *Parser {
	p := &Parser{
		grammar: Build(),
		limits:  DefaultLimits(),
		isKey:   clothing.Default().IsKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Limits returns the bounds the parser enforces.
func (p *Parser) Limits() Limits { return p.limits }

var defaultParser = New()

// Parse parses text with the default parser.
func Parse(text string) (*Expression, error) {
	return defaultParser.Parse(text)
}

// Parse parses text into an Expression. Errors are always *SyntaxError.
func (p *Parser) Parse(text string) (*Expression, error) {
	if len(text) > p.limits.MaxExpressionLength {
		return nil, &SyntaxError{Kind: KindTooLong, Offset: p.limits.MaxExpressionLength}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &SyntaxError{Kind: KindEmpty}
	}
	g, err := p.grammar.ParseString("", text)
	if err != nil {
		return nil, mapError(err)
	}
	if 1+len(g.Tail) > p.limits.MaxUnionTerms {
		return nil, &SyntaxError{Kind: KindTooManyTerms, Offset: g.Tail[p.limits.MaxUnionTerms-1].Term.Pos.Offset}
	}
	root, depth, err := p.term(g.Head)
	if err != nil {
		return nil, err
	}
	for _, u := range g.Tail {
		right, d, err := p.term(u.Term)
		if err != nil {
			return nil, err
		}
		root = Union{Left: root, Right: right}
		depth = max(depth, d)
	}
	return &Expression{Text: text, Root: root, Depth: depth}, nil
}

func (p *Parser) term(t *grammarTerm) (Node, int, error) {
	if len(t.Steps) > p.limits.MaxDepth {
		return nil, 0, &SyntaxError{Kind: KindTooDeep, Offset: t.Steps[p.limits.MaxDepth].Pos.Offset}
	}
	var node Node = source(t.Source)
	for _, step := range t.Steps {
		switch {
		case step.Field != nil:
			node = p.field(node, step.Field.Name)
		case step.Expand:
			node = Expand{Parent: node}
		case step.Filter != nil:
			if !filterable(node) {
				return nil, 0, &SyntaxError{Kind: KindFilterWithoutExpansion, Offset: step.Pos.Offset}
			}
			if nesting(step.Filter) > p.limits.MaxFilterNesting {
				return nil, 0, &SyntaxError{Kind: KindFilterTooDeep, Offset: step.Pos.Offset}
			}
			pred := normalizePredicate(step.Filter.text())
			if pred == "" {
				return nil, 0, &SyntaxError{Kind: KindEmptyFilter, Offset: step.Pos.Offset}
			}
			node = Filter{Parent: node, Predicate: pred}
		}
	}
	return node, len(t.Steps), nil
}

func source(s *grammarSource) Source {
	if s.Entities != nil {
		return Source{Kind: SourceEntities, Component: s.Entities.Component, Negate: s.Entities.Negate}
	}
	return Source{Kind: SourceKind(s.Keyword)}
}

// field classifies a ".name" step. Names containing ":" are component reads.
// A vocabulary key directly after another plain field is a slot access; the
// resolver falls back to plain navigation when the parent is not a clothing
// query.
func (p *Parser) field(parent Node, name string) Node {
	if strings.Contains(name, ":") {
		return Field{Parent: parent, Name: name, Component: true}
	}
	if f, ok := parent.(Field); ok && !f.Component && p.isKey != nil && p.isKey(name) {
		return SlotAccess{Parent: parent, Key: name}
	}
	return Field{Parent: parent, Name: name}
}

// filterable reports whether a filter may be attached to n: after "[]",
// after another filter, or directly on an entities(...) source.
func filterable(n Node) bool {
	switch v := n.(type) {
	case Expand, Filter:
		return true
	case Source:
		return v.Kind == SourceEntities
	}
	return false
}

func nesting(f *grammarFilter) int {
	deepest := 0
	for _, part := range f.Parts {
		if part.Nested != nil {
			deepest = max(deepest, nesting(part.Nested))
		}
	}
	return deepest + 1
}

func (f *grammarFilter) text() string {
	var b strings.Builder
	for _, part := range f.Parts {
		if part.Nested != nil {
			b.WriteByte('[')
			b.WriteString(part.Nested.text())
			b.WriteByte(']')
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
