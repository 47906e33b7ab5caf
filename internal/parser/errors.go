package parser

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Syntax error kinds.
const (
	KindUnexpectedToken        = "unexpected token"
	KindUnexpectedEnd          = "unexpected end of expression"
	KindInvalidCharacter       = "invalid character"
	KindEmpty                  = "empty expression"
	KindTooLong                = "expression too long"
	KindTooDeep                = "expression too deep"
	KindTooManyTerms           = "too many union terms"
	KindFilterWithoutExpansion = "filter without expansion"
	KindFilterTooDeep          = "filter nesting too deep"
	KindEmptyFilter            = "empty filter"
)

// SyntaxError reports a malformed expression. It carries the error kind, the
// offending token type (never the token text) and a byte offset.
type SyntaxError struct {
	Kind   string
	Token  string
	Offset int
}

func (e *SyntaxError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s %q", e.Kind, e.Token)
	}
	return e.Kind
}

func mapError(err error) *SyntaxError {
	var unexpected *participle.UnexpectedTokenError
	if errors.As(err, &unexpected) {
		if unexpected.Unexpected.EOF() {
			return &SyntaxError{Kind: KindUnexpectedEnd, Offset: unexpected.Unexpected.Pos.Offset}
		}
		return &SyntaxError{
			Kind:   KindUnexpectedToken,
			Token:  tokenName(unexpected.Unexpected.Type),
			Offset: unexpected.Unexpected.Pos.Offset,
		}
	}
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		return &SyntaxError{Kind: KindInvalidCharacter, Offset: lexErr.Pos.Offset}
	}
	var perr participle.Error
	if errors.As(err, &perr) {
		return &SyntaxError{Kind: KindUnexpectedToken, Offset: perr.Position().Offset}
	}
	return &SyntaxError{Kind: KindUnexpectedToken}
}

func tokenName(t lexer.TokenType) string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "Unknown"
}

// MapError turns a parse error into an authoring hint for the command line.
func MapError(err error) error {
	var se *SyntaxError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Kind {
	case KindFilterWithoutExpansion:
		return fmt.Errorf("%w at offset %d: a filter must follow [] or entities(...), e.g. actor.core:inventory.items[][...]", se, se.Offset)
	case KindEmptyFilter:
		return fmt.Errorf("%w at offset %d: write a predicate between the brackets or use [] to expand", se, se.Offset)
	case KindTooDeep, KindFilterTooDeep, KindTooManyTerms, KindTooLong:
		return fmt.Errorf("%w at offset %d: split the expression into several target definitions", se, se.Offset)
	case KindUnexpectedEnd:
		return fmt.Errorf("%w: the expression must be: source(.field | [] | [predicate])* ( | ...)*", se)
	}
	return fmt.Errorf("%w at offset %d: sources are actor, location, target, targets, game, none or entities(component)", se, se.Offset)
}
