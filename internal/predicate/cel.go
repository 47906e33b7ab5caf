package predicate

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"
)

// DefaultCostLimit bounds the work of a single CEL evaluation.
const DefaultCostLimit = 100000

// CEL evaluates predicates written in the Common Expression Language.
// Compiled programs are cached by predicate text.
type CEL struct {
	env       *cel.Env
	costLimit uint64

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewCEL creates a CEL environment declaring the scope variables plus the
// helper functions has_component(entity, type) and has_tag(entity, tag).
func NewCEL() (*CEL, error) {
	opts := []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),
		cel.Function("has_component",
			cel.Overload("has_component_dyn_string",
				[]*cel.Type{cel.DynType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(entity, typ ref.Val) ref.Val {
					_, ok := component(entity, typ)
					return types.Bool(ok)
				}),
			),
		),
		cel.Function("has_tag",
			cel.Overload("has_tag_dyn_string",
				[]*cel.Type{cel.DynType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(entity, tag ref.Val) ref.Val {
					return types.Bool(hasTag(entity, tag))
				}),
			),
		),
	}
	for _, name := range Variables {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CEL{env: env, costLimit: DefaultCostLimit, programs: make(map[string]cel.Program)}, nil
}

// Check compiles a predicate without evaluating it.
func (c *CEL) Check(predicate string) error {
	_, err := c.program(predicate)
	return err
}

// Evaluate runs the predicate. Variables missing from env are bound to null.
func (c *CEL) Evaluate(predicate string, env Env) (bool, error) {
	prg, err := c.program(predicate)
	if err != nil {
		return false, err
	}
	vars := make(map[string]any, len(Variables))
	for _, name := range Variables {
		if v, ok := env[name]; ok && v != nil {
			vars[name] = v
		} else {
			vars[name] = types.NullValue
		}
	}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("CEL eval error: %w", err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("CEL predicate returned %s, not bool", out.Type().TypeName())
	}
	return bool(b), nil
}

func (c *CEL) program(predicate string) (cel.Program, error) {
	c.mu.RLock()
	prg, ok := c.programs[predicate]
	c.mu.RUnlock()
	if ok {
		return prg, nil
	}
	ast, issues := c.env.Compile(predicate)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}
	prg, err := c.env.Program(ast, cel.CostLimit(c.costLimit))
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %w", err)
	}
	c.mu.Lock()
	c.programs[predicate] = prg
	c.mu.Unlock()
	return prg, nil
}

func component(entity, typ ref.Val) (ref.Val, bool) {
	m, ok := entity.(traits.Mapper)
	if !ok {
		return nil, false
	}
	comps, ok := m.Find(types.String("components"))
	if !ok {
		return nil, false
	}
	cm, ok := comps.(traits.Mapper)
	if !ok {
		return nil, false
	}
	return cm.Find(typ)
}

func hasTag(entity, tag ref.Val) bool {
	wearable, ok := component(entity, types.String("clothing:wearable"))
	if !ok {
		return false
	}
	wm, ok := wearable.(traits.Mapper)
	if !ok {
		return false
	}
	tags, ok := wm.Find(types.String("tags"))
	if !ok {
		return false
	}
	list, ok := tags.(traits.Lister)
	if !ok {
		return false
	}
	return list.Contains(tag) == types.True
}
