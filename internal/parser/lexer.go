package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes scope expressions. Outside brackets whitespace is elided;
// inside a filter the lexer switches to the Filter state and keeps the
// predicate text verbatim, tracking nested brackets and quoted strings so a
// "]" inside a string literal does not close the filter.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Expand", Pattern: `\[\]`},
		{Name: "FilterOpen", Pattern: `\[`, Action: lexer.Push("Filter")},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Punct", Pattern: `[.:|+()!]`},
	},
	"Filter": {
		{Name: "FilterClose", Pattern: `\]`, Action: lexer.Pop()},
		{Name: "Nest", Pattern: `\[`, Action: lexer.Push("Filter")},
		{Name: "FilterString", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
		{Name: "FilterText", Pattern: `[^\[\]"']+`},
	},
})

// tokenNames maps lexer token types back to their rule names so syntax
// errors can report the offending token kind without echoing input text.
var tokenNames = func() map[lexer.TokenType]string {
	names := make(map[lexer.TokenType]string)
	for name, typ := range Lexer.Symbols() {
		names[typ] = name
	}
	return names
}()

// Build creates the participle parser for the grammar in grammar.go.
func Build() *participle.Parser[grammarExpression] {
	return participle.MustBuild[grammarExpression](
		participle.Lexer(Lexer),
		participle.Elide("Whitespace"),
	)
}
