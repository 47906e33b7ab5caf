// Package action discovers the action candidates an actor can take: it loads
// authored action definitions and drives each one through the target
// resolution pipeline.
package action

import (
	"github.com/suderio/scopedsl/internal/targets"
)

// LegacyTarget names the single target of an action authored with the
// action-level scope shorthand.
const LegacyTarget = "target"

// Action is the structured definition of an authored action.
type Action struct {
	ID                   string               `yaml:"id"`
	Name                 string               `yaml:"name"`
	Template             string               `yaml:"template"`
	Scope                string               `yaml:"scope"` // shorthand for one target named "target"
	GenerateCombinations bool                 `yaml:"generateCombinations"`
	MaxCombinations      int                  `yaml:"maxCombinations"`
	Prerequisite         string               `yaml:"prerequisite"`
	RequiredComponents   []string             `yaml:"requiredComponents"`
	ForbiddenComponents  []string             `yaml:"forbiddenComponents"`
	Targets              []targets.Definition `yaml:"targets"`
}

// Definitions returns the target definitions of a. The scope shorthand
// becomes a required definition named "target" when no targets are listed.
func (a Action) Definitions() []targets.Definition {
	if len(a.Targets) > 0 || a.Scope == "" {
		return a.Targets
	}
	return []targets.Definition{{Name: LegacyTarget, Scope: a.Scope, Required: true}}
}

// Catalog is the top-level structure of an action file.
type Catalog struct {
	Actions []Action `yaml:"actions"`
}

// Find returns the action with the given id.
func (c *Catalog) Find(id string) (Action, bool) {
	for _, a := range c.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}
