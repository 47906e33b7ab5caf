package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suderio/scopedsl/internal/diag"
	"github.com/suderio/scopedsl/internal/predicate"
	"github.com/suderio/scopedsl/internal/scope"
	"github.com/suderio/scopedsl/internal/targets"
	"github.com/suderio/scopedsl/internal/world"
)

const nearbyActors = `entities(core:actor)[entity.components["core:position"].locationId == location.id && entity.id != actor.id]`

// tavern builds a world where hero carries an apple and bread and shares
// the tavern with ann and bob. A chest with a brass lock stands nearby and
// hero also holds a brass and an iron key.
func tavern() *world.Store {
	s := world.NewStore()
	s.SetComponent("hero", "core:actor", world.NewObject("name", "Hero"))
	s.SetComponent("hero", "core:position", world.NewObject("locationId", "tavern"))
	s.SetComponent("hero", "core:inventory", world.NewObject("items", []any{"apple", "bread"}))
	s.SetComponent("hero", "core:keyring", world.NewObject("keys", []any{"brass_key", "iron_key"}))
	s.SetComponent("ann", "core:actor", world.NewObject("name", "Ann"))
	s.SetComponent("ann", "core:position", world.NewObject("locationId", "tavern"))
	s.SetComponent("bob", "core:actor", world.NewObject("name", "Bob"))
	s.SetComponent("bob", "core:position", world.NewObject("locationId", "tavern"))
	s.SetComponent("apple", "core:name", world.NewObject("text", "apple"))
	s.SetComponent("bread", "core:name", world.NewObject("text", "bread"))
	s.SetComponent("tavern", "core:location", world.NewObject("name", "Tavern"))
	s.SetComponent("tavern", "core:furniture", world.NewObject("items", []any{"chest"}))
	s.SetComponent("chest", "core:container", world.NewObject("lock_type", "brass"))
	s.SetComponent("chest", "core:name", world.NewObject("text", "chest"))
	s.SetComponent("brass_key", "core:key", world.NewObject("kind", "brass"))
	s.SetComponent("brass_key", "core:name", world.NewObject("text", "brass key"))
	s.SetComponent("iron_key", "core:key", world.NewObject("kind", "iron"))
	s.SetComponent("iron_key", "core:name", world.NewObject("text", "iron key"))
	return s
}

func newPipeline(t *testing.T, s *world.Store, opts ...Option) *Pipeline {
	t.Helper()
	ev, err := predicate.NewCEL()
	require.NoError(t, err)
	return NewPipeline(scope.New(s, ev), opts...)
}

func give(generate bool, max int) Action {
	return Action{
		ID:                   "core:give",
		Template:             "give {item} to {person}",
		GenerateCombinations: generate,
		MaxCombinations:      max,
		Targets: []targets.Definition{
			{Name: "item", Scope: "actor.core:inventory.items[]", Required: true},
			{Name: "person", Scope: nearbyActors, Required: true},
		},
	}
}

func commands(r Result) []string {
	var out []string
	for _, c := range r.Candidates {
		out = append(out, c.Command)
	}
	return out
}

func TestDiscoverCombinations(t *testing.T) {
	s := tavern()
	p := newPipeline(t, s)
	res := p.Discover(context.Background(), give(true, 100), scope.NewContext(s, "hero"))

	require.True(t, res.Emitted())
	assert.Equal(t, []string{
		"give apple to Ann", "give apple to Bob", "give bread to Ann", "give bread to Bob",
	}, commands(res))
	for _, c := range res.Candidates {
		assert.Equal(t, "core:give", c.ActionID)
		assert.Equal(t, "hero", c.ActorID)
		assert.Equal(t, targets.Metadata{TotalCombinations: 4, LimitedTo: 4}, c.Metadata)
	}
	assert.Equal(t, targets.Candidate{ID: "ann", DisplayName: "Ann"}, res.Candidates[0].Targets["person"])
	assert.NotEmpty(t, res.RequestID)
}

func TestDiscoverCombinationCap(t *testing.T) {
	s := tavern()
	p := newPipeline(t, s)
	res := p.Discover(context.Background(), give(true, 2), scope.NewContext(s, "hero"))

	require.True(t, res.Emitted())
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, targets.Metadata{TotalCombinations: 4, LimitedTo: 2}, res.Candidates[0].Metadata)
}

func TestCombinationLimit(t *testing.T) {
	p := newPipeline(t, world.NewStore(), WithCombinationLimits(20, 30))
	a := give(true, 0)
	assert.Equal(t, 20, p.limit(a))

	a.Targets[1].MaxCombinations = 7
	assert.Equal(t, 7, p.limit(a))

	a.MaxCombinations = 3
	assert.Equal(t, 3, p.limit(a))

	a.MaxCombinations = 1000
	a.Targets[1].MaxCombinations = 0
	assert.Equal(t, 30, p.limit(a))
}

func TestDiscoverFirstWithoutCombinations(t *testing.T) {
	s := tavern()
	p := newPipeline(t, s)
	res := p.Discover(context.Background(), give(false, 0), scope.NewContext(s, "hero"))

	require.True(t, res.Emitted())
	assert.Equal(t, []string{"give apple to Ann"}, commands(res))
	assert.Equal(t, targets.Metadata{TotalCombinations: 4, LimitedTo: 1}, res.Candidates[0].Metadata)
}

func TestDiscoverMultipleDefinition(t *testing.T) {
	s := tavern()
	p := newPipeline(t, s)
	a := give(false, 0)
	a.Targets[1].Multiple = true
	res := p.Discover(context.Background(), a, scope.NewContext(s, "hero"))

	assert.Equal(t, []string{"give apple to Ann", "give apple to Bob"}, commands(res))
}

func TestDiscoverLegacyScope(t *testing.T) {
	s := tavern()
	p := newPipeline(t, s)
	res := p.Discover(context.Background(), Action{
		ID:       "core:eat",
		Template: "eat {target}",
		Scope:    "actor.core:inventory.items[]",
	}, scope.NewContext(s, "hero"))

	assert.Equal(t, []string{"eat apple", "eat bread"}, commands(res))
}

func TestDiscoverContextFromChain(t *testing.T) {
	s := tavern()
	p := newPipeline(t, s)
	res := p.Discover(context.Background(), Action{
		ID:       "core:unlock",
		Template: "unlock {container} with {key}",
		Targets: []targets.Definition{
			{Name: "key", Scope: "actor.core:keyring.keys[]", Required: true, ContextFrom: "container",
				Validation: `entity.components["core:key"].kind == targets.container[0].components["core:container"].lock_type`},
			{Name: "container", Scope: "location.core:furniture.items[]", Required: true},
		},
	}, scope.NewContext(s, "hero"))

	require.True(t, res.Emitted())
	assert.Equal(t, []string{"unlock chest with brass key"}, commands(res))
	assert.Equal(t, "brass_key", res.Candidates[0].Targets["key"].ID)
	assert.Contains(t, res.Diagnostics, targets.Diagnostic{Kind: targets.DiagValidationFailure, Target: "key"})
}

func TestDiscoverSkips(t *testing.T) {
	s := tavern()
	tests := []struct {
		name   string
		action Action
		reason string
	}{
		{
			name: "required target empty",
			action: Action{ID: "a", Template: "wave at {target}",
				Scope: "actor.core:missing.items[]"},
			reason: SkipRequiredTarget,
		},
		{
			name: "cycle",
			action: Action{ID: "a", Template: "{x} {y}", Targets: []targets.Definition{
				{Name: "x", Scope: "actor", Required: true, ContextFrom: "y"},
				{Name: "y", Scope: "actor", Required: true, ContextFrom: "x"},
			}},
			reason: SkipRequiredTarget,
		},
		{
			name:   "syntax error",
			action: Action{ID: "a", Template: "{target}", Scope: "actor..core:inventory"},
			reason: SkipSyntaxError,
		},
		{
			name: "duplicate target name",
			action: Action{ID: "a", Template: "give {item}", GenerateCombinations: true, Targets: []targets.Definition{
				{Name: "item", Scope: "actor.core:inventory.items[]", Required: true},
				{Name: "item", Scope: "actor.core:keyring.keys[]", Required: true},
			}},
			reason: SkipDuplicateName,
		},
		{
			name:   "required component",
			action: Action{ID: "a", Template: "fly", RequiredComponents: []string{"core:wings"}},
			reason: SkipPrerequisite,
		},
		{
			name:   "forbidden component",
			action: Action{ID: "a", Template: "speak", ForbiddenComponents: []string{"core:inventory"}},
			reason: SkipPrerequisite,
		},
		{
			name:   "prerequisite false",
			action: Action{ID: "a", Template: "rest", Prerequisite: `location.id == "bedroom"`},
			reason: SkipPrerequisite,
		},
		{
			name:   "prerequisite error",
			action: Action{ID: "a", Template: "rest", Prerequisite: `actor.components["core:missing"].x`},
			reason: SkipPrerequisite,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newPipeline(t, s).Discover(context.Background(), tt.action, scope.NewContext(s, "hero"))
			assert.Equal(t, StateSkipped, res.State)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Empty(t, res.Candidates)
		})
	}
}

func TestDiscoverDuplicateTargetName(t *testing.T) {
	s := tavern()
	res := newPipeline(t, s).Discover(context.Background(), Action{
		ID: "core:give", Template: "give {item}", GenerateCombinations: true,
		Targets: []targets.Definition{
			{Name: "item", Scope: "actor.core:inventory.items[]", Required: true},
			{Name: "item", Scope: "actor.core:keyring.keys[]", Required: true},
		},
	}, scope.NewContext(s, "hero"))

	assert.Equal(t, StateSkipped, res.State)
	assert.Equal(t, SkipDuplicateName, res.Reason)
	assert.Contains(t, res.Diagnostics, targets.Diagnostic{Kind: targets.DiagDuplicateName, Target: "item"})
	assert.Empty(t, res.Candidates)
}

func TestDiscoverOptionalTargets(t *testing.T) {
	s := tavern()
	p := newPipeline(t, s)
	res := p.Discover(context.Background(), Action{
		ID:       "a",
		Template: "{x} {y} {z}",
		Targets: []targets.Definition{
			{Name: "x", Scope: "actor", Required: true},
			{Name: "y", Scope: "actor.core:missing.items[]"},
			{Name: "z", Scope: "actor", ContextFrom: "y"},
		},
	}, scope.NewContext(s, "hero"))

	require.True(t, res.Emitted())
	assert.Equal(t, []string{"Hero {y} {z}"}, commands(res))
}

func TestDiscoverPrerequisitePasses(t *testing.T) {
	s := tavern()
	res := newPipeline(t, s).Discover(context.Background(), Action{
		ID:                 "core:wait",
		Template:           "wait",
		Prerequisite:       `location.id == "tavern"`,
		RequiredComponents: []string{"core:actor"},
	}, scope.NewContext(s, "hero"))

	assert.Equal(t, StateEmitted, res.State)
	assert.Equal(t, []string{"wait"}, commands(res))
	assert.Equal(t, targets.Metadata{TotalCombinations: 1, LimitedTo: 1}, res.Candidates[0].Metadata)
}

func TestDiscoverTracesStates(t *testing.T) {
	s := tavern()
	rec := &diag.Recorder{}
	p := newPipeline(t, s, WithTracer(rec))
	p.Discover(context.Background(), give(true, 2), scope.NewContext(s, "hero"))

	var steps []string
	for _, e := range rec.Events() {
		if e.Level == diag.LevelStep {
			steps = append(steps, e.Name)
		}
	}
	assert.Equal(t, []string{
		StateResolveIndependent, StateResolveDependent, StateValidate, StateCombine, StateFormat, StateEmitted,
	}, steps)
	assert.Contains(t, rec.Warnings(), "combination overflow")
}

func TestDiscoverContainsPanics(t *testing.T) {
	s := tavern()
	boom := predicate.Func(func(string, predicate.Env) (bool, error) { panic("boom") })
	p := NewPipeline(scope.New(s, boom))
	res := p.Discover(context.Background(), Action{ID: "a", Template: "x", Prerequisite: "true"}, scope.NewContext(s, "hero"))

	assert.Equal(t, StateSkipped, res.State)
	assert.Equal(t, SkipPanic, res.Reason)
}

func TestDiscoverAll(t *testing.T) {
	s := tavern()
	p := newPipeline(t, s, WithConcurrency(2))
	actions := []Action{
		give(true, 100),
		{ID: "core:fly", Template: "fly", RequiredComponents: []string{"core:wings"}},
		{ID: "core:wait", Template: "wait"},
	}
	results, err := p.DiscoverAll(context.Background(), actions, scope.NewContext(s, "hero"))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "core:give", results[0].ActionID)
	assert.Equal(t, StateSkipped, results[1].State)
	assert.Len(t, Candidates(results), 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.DiscoverAll(ctx, actions, scope.NewContext(s, "hero"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscoverCanceled(t *testing.T) {
	s := tavern()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newPipeline(t, s).Discover(ctx, give(true, 100), scope.NewContext(s, "hero"))
	assert.Equal(t, StateSkipped, res.State)
	assert.Equal(t, SkipCanceled, res.Reason)
}
