package parser

import "github.com/alecthomas/participle/v2/lexer"

// grammarExpression is the participle grammar root. It is converted into the
// immutable AST in ast.go right after parsing and never escapes the package.
type grammarExpression struct {
	Head *grammarTerm    `parser:"@@"`
	Tail []*grammarUnion `parser:"@@*"`
}

// grammarUnion joins another term with "|" or "+". Both are ordered unions.
type grammarUnion struct {
	Op   string       `parser:"@( \"|\" | \"+\" )"`
	Term *grammarTerm `parser:"@@"`
}

// grammarTerm is a source followed by a chain of steps.
type grammarTerm struct {
	Pos    lexer.Position
	Source *grammarSource `parser:"@@"`
	Steps  []*grammarStep `parser:"@@*"`
}

// grammarSource is one of the entity-root keywords or an entities(...) scan.
type grammarSource struct {
	Entities *grammarEntities `parser:"  @@"`
	Keyword  string           `parser:"| @( \"actor\" | \"location\" | \"targets\" | \"target\" | \"game\" | \"none\" )"`
}

// grammarEntities maps "entities(core:item)" and "entities(!core:actor)".
type grammarEntities struct {
	Negate    bool   `parser:"\"entities\" \"(\" @\"!\"?"`
	Component string `parser:"@Ident ( @\":\" @Ident )? \")\""`
}

// grammarStep is ".field", "[]" or "[predicate]".
type grammarStep struct {
	Pos    lexer.Position
	Field  *grammarField  `parser:"  \".\" @@"`
	Expand bool           `parser:"| @Expand"`
	Filter *grammarFilter `parser:"| FilterOpen @@ FilterClose"`
}

// grammarField is a plain key ("items") or a component type id ("core:inventory").
type grammarField struct {
	Name string `parser:"@Ident ( @\":\" @Ident )?"`
}

// grammarFilter captures the raw predicate text of a filter, including any
// nested brackets, so it can be handed to the predicate evaluator unchanged.
type grammarFilter struct {
	Parts []*grammarFilterPart `parser:"@@*"`
}

type grammarFilterPart struct {
	Text   string         `parser:"  @( FilterText | FilterString )"`
	Nested *grammarFilter `parser:"| Nest @@ FilterClose"`
}
