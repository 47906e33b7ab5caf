// Package predicate evaluates the boolean predicates written inside scope
// filters and target validations. The scope engine only sees the Evaluator
// interface; CEL is the default language and a sandboxed Lua evaluator is
// available for content written against the Lua rule tooling.
package predicate

import (
	"fmt"
)

// Env is the variable environment of one evaluation. Values are plain Go
// values: map[string]any, []any, string, bool, int64 and float64.
type Env map[string]any

// Evaluator evaluates predicate text against an environment.
// Implementations must be safe for concurrent use.
type Evaluator interface {
	Evaluate(predicate string, env Env) (bool, error)
}

// Checker compiles predicate text without evaluating it.
type Checker interface {
	Check(predicate string) error
}

// Func adapts a plain function to Evaluator.
type Func func(predicate string, env Env) (bool, error)

// Evaluate calls f.
func (f Func) Evaluate(predicate string, env Env) (bool, error) { return f(predicate, env) }

// Engine names accepted by New.
const (
	EngineCEL = "cel"
	EngineLua = "lua"
)

// Variables every evaluation may reference.
var Variables = []string{"actor", "location", "game", "target", "targets", "entity", "permissions"}

// New builds the evaluator for the named engine.
func New(engine string) (Evaluator, error) {
	switch engine {
	case "", EngineCEL:
		return NewCEL()
	case EngineLua:
		return NewLua(), nil
	}
	return nil, fmt.Errorf("unknown predicate engine %q (expected %s or %s)", engine, EngineCEL, EngineLua)
}
