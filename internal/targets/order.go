// Package targets turns the resolved candidate sets of a multi-target action
// into action candidates: it orders target definitions by their contextFrom
// dependencies, validates candidates, generates bounded combinations and
// formats the command text.
package targets

// Definition declares one target parameter of an action.
type Definition struct {
	Name            string `yaml:"name"`
	Scope           string `yaml:"scope"`
	Required        bool   `yaml:"required"`
	ContextFrom     string `yaml:"contextFrom"`
	Validation      string `yaml:"validation"`
	Multiple        bool   `yaml:"multiple"`
	MaxCombinations int    `yaml:"maxCombinations"`
	Placeholder     string `yaml:"placeholder"`
}

// PlaceholderName returns the template placeholder bound to d.
func (d Definition) PlaceholderName() string {
	if d.Placeholder != "" {
		return d.Placeholder
	}
	return d.Name
}

// Diagnostic kinds recorded while ordering and resolving.
const (
	DiagCycle             = "cycle"
	DiagUnknownDependency = "unknown dependency"
	DiagFailedDependency  = "failed dependency"
	DiagDuplicateName     = "duplicate name"
	DiagValidationFailure = "validation failure"
	DiagSyntaxError       = "syntax error"
)

// Diagnostic names a problem with one target definition.
type Diagnostic struct {
	Kind   string `json:"kind" yaml:"kind"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// Plan is the resolution order of an action's target definitions.
type Plan struct {
	// Order lists resolvable definitions, each after its dependency, keeping
	// authored order otherwise.
	Order []Definition
	// Failed definitions resolve to empty sets.
	Failed      map[string]bool
	Diagnostics []Diagnostic
}

// Independent returns the ordered definitions without contextFrom.
func (p Plan) Independent() []Definition {
	var out []Definition
	for _, d := range p.Order {
		if d.ContextFrom == "" {
			out = append(out, d)
		}
	}
	return out
}

// Dependent returns the ordered definitions with contextFrom.
func (p Plan) Dependent() []Definition {
	var out []Definition
	for _, d := range p.Order {
		if d.ContextFrom != "" {
			out = append(out, d)
		}
	}
	return out
}

type mark int

const (
	unvisited mark = iota
	onPath
	resolved
	failed
)

// Order walks each definition's contextFrom chain with a visited set. A
// chain that returns to a definition on the current path is a cycle; every
// definition in the cycle and every definition depending on it fails. So do
// chains ending at an unknown name. Nothing here loops or errors.
func Order(defs []Definition) Plan {
	plan := Plan{Failed: make(map[string]bool)}
	byName := make(map[string]Definition, len(defs))
	state := make(map[string]mark, len(defs))
	var unique []Definition
	for _, d := range defs {
		if _, dup := byName[d.Name]; dup || d.Name == "" {
			plan.Diagnostics = append(plan.Diagnostics, Diagnostic{Kind: DiagDuplicateName, Target: d.Name})
			continue
		}
		byName[d.Name] = d
		unique = append(unique, d)
	}

	fail := func(path []string, kind string) {
		for i, name := range path {
			state[name] = failed
			plan.Failed[name] = true
			k := DiagFailedDependency
			if i == len(path)-1 {
				k = kind
			}
			plan.Diagnostics = append(plan.Diagnostics, Diagnostic{Kind: k, Target: name})
		}
	}

	for _, d := range unique {
		if state[d.Name] != unvisited {
			continue
		}
		var path []string
		cur := d.Name
		for {
			state[cur] = onPath
			path = append(path, cur)
			dep := byName[cur].ContextFrom
			if dep == "" {
				break
			}
			next, ok := byName[dep]
			if !ok {
				fail(path, DiagUnknownDependency)
				path = nil
				break
			}
			switch state[next.Name] {
			case onPath:
				// Members of the cycle are the path suffix starting at next.
				start := indexOf(path, next.Name)
				for _, name := range path[start:] {
					state[name] = failed
					plan.Failed[name] = true
					plan.Diagnostics = append(plan.Diagnostics, Diagnostic{Kind: DiagCycle, Target: name})
				}
				if start > 0 {
					fail(path[:start], DiagFailedDependency)
				}
				path = nil
			case failed:
				fail(path, DiagFailedDependency)
				path = nil
			case resolved:
			default:
				cur = next.Name
				continue
			}
			break
		}
		for i := len(path) - 1; i >= 0; i-- {
			state[path[i]] = resolved
			plan.Order = append(plan.Order, byName[path[i]])
		}
	}
	return plan
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
