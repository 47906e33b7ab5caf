package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(defs []Definition) []string {
	var out []string
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name   string
		defs   []Definition
		order  []string
		failed []string
		diags  []Diagnostic
	}{
		{
			name:  "independent keeps authored order",
			defs:  []Definition{{Name: "a"}, {Name: "b"}},
			order: []string{"a", "b"},
		},
		{
			name:  "dependency moves first",
			defs:  []Definition{{Name: "key", ContextFrom: "container"}, {Name: "container"}},
			order: []string{"container", "key"},
		},
		{
			name:  "chain",
			defs:  []Definition{{Name: "c", ContextFrom: "b"}, {Name: "b", ContextFrom: "a"}, {Name: "a"}, {Name: "d"}},
			order: []string{"a", "b", "c", "d"},
		},
		{
			name:   "self cycle",
			defs:   []Definition{{Name: "a", ContextFrom: "a"}, {Name: "b"}},
			order:  []string{"b"},
			failed: []string{"a"},
			diags:  []Diagnostic{{Kind: DiagCycle, Target: "a"}},
		},
		{
			name: "cycle with dependent",
			defs: []Definition{
				{Name: "x", ContextFrom: "a"},
				{Name: "a", ContextFrom: "b"},
				{Name: "b", ContextFrom: "a"},
				{Name: "y", ContextFrom: "x"},
			},
			failed: []string{"x", "a", "b", "y"},
			diags: []Diagnostic{
				{Kind: DiagCycle, Target: "a"},
				{Kind: DiagCycle, Target: "b"},
				{Kind: DiagFailedDependency, Target: "x"},
				{Kind: DiagFailedDependency, Target: "y"},
			},
		},
		{
			name:   "unknown dependency",
			defs:   []Definition{{Name: "a", ContextFrom: "ghost"}, {Name: "b", ContextFrom: "a"}},
			failed: []string{"a", "b"},
			diags: []Diagnostic{
				{Kind: DiagUnknownDependency, Target: "a"},
				{Kind: DiagFailedDependency, Target: "b"},
			},
		},
		{
			name:  "duplicate name",
			defs:  []Definition{{Name: "a"}, {Name: "a", Scope: "other"}},
			order: []string{"a"},
			diags: []Diagnostic{{Kind: DiagDuplicateName, Target: "a"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Order(tt.defs)
			assert.Equal(t, tt.order, names(plan.Order))
			for _, f := range tt.failed {
				assert.True(t, plan.Failed[f], f)
			}
			assert.Len(t, plan.Failed, len(tt.failed))
			assert.Equal(t, tt.diags, plan.Diagnostics)
		})
	}
}

func TestPlanSplits(t *testing.T) {
	plan := Order([]Definition{{Name: "key", ContextFrom: "container"}, {Name: "container"}, {Name: "other"}})
	assert.Equal(t, []string{"container", "other"}, names(plan.Independent()))
	assert.Equal(t, []string{"key"}, names(plan.Dependent()))
}

func TestPlaceholderName(t *testing.T) {
	assert.Equal(t, "item", Definition{Name: "item"}.PlaceholderName())
	assert.Equal(t, "thing", Definition{Name: "item", Placeholder: "thing"}.PlaceholderName())
}
