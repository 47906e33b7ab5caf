package targets

import (
	"regexp"

	"github.com/suderio/scopedsl/internal/scope"
	"github.com/suderio/scopedsl/internal/world"
)

// ActionCandidate is one concrete, fully bound action.
type ActionCandidate struct {
	ActionID string               `json:"actionId" yaml:"actionId"`
	ActorID  string               `json:"actorId" yaml:"actorId"`
	Targets  map[string]Candidate `json:"targets" yaml:"targets"`
	Command  string               `json:"command" yaml:"command"`
	Metadata Metadata             `json:"metadata" yaml:"metadata"`
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Substitute replaces every {name} bound in values. Unknown placeholders are
// left verbatim.
func Substitute(template string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := values[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the distinct placeholder names of a template in order.
func Placeholders(template string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Format builds the candidate of one assignment.
func Format(actionID, actorID, template string, a Assignment, meta Metadata) ActionCandidate {
	values := make(map[string]string, len(a))
	bound := make(map[string]Candidate, len(a))
	for _, b := range a {
		values[b.Placeholder] = b.Candidate.DisplayName
		bound[b.Target] = b.Candidate
	}
	return ActionCandidate{
		ActionID: actionID,
		ActorID:  actorID,
		Targets:  bound,
		Command:  Substitute(template, values),
		Metadata: meta,
	}
}

// displayNameSources is the fallback order for display names.
var displayNameSources = []struct {
	component string
	field     string
}{
	{"core:name", "text"},
	{"core:actor", "name"},
	{"core:description", "short"},
}

// DisplayName returns the first non-empty descriptive name of an entity,
// or its id.
func DisplayName(accessor scope.Accessor, id string) string {
	for _, src := range displayNameSources {
		data, ok := accessor.GetComponentData(id, src.component)
		if !ok {
			continue
		}
		if name := world.GetString(data, src.field); name != "" {
			return name
		}
	}
	return id
}

// Candidates attaches display names to resolved ids.
func Candidates(accessor scope.Accessor, ids []string) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id, DisplayName: DisplayName(accessor, id)}
	}
	return out
}
