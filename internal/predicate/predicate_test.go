package predicate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyEnv() Env {
	return Env{
		"actor": map[string]any{"id": "hero", "components": map[string]any{}},
		"entity": map[string]any{
			"id": "brass_key",
			"components": map[string]any{
				"core:key":          map[string]any{"kind": "brass"},
				"clothing:wearable": map[string]any{"tags": []any{"formal"}},
			},
		},
		"targets": map[string]any{"container": []any{"chest"}},
		"target": map[string]any{
			"id":         "chest",
			"components": map[string]any{"core:container": map[string]any{"lock_type": "brass", "locked": true}},
		},
	}
}

func TestCELEvaluate(t *testing.T) {
	ev, err := NewCEL()
	require.NoError(t, err)

	tests := []struct {
		name      string
		predicate string
		want      bool
	}{
		{"field compare", `entity.components["core:key"].kind == target.components["core:container"].lock_type`, true},
		{"has component", `has_component(entity, "core:key")`, true},
		{"missing component", `has_component(actor, "core:key")`, false},
		{"has tag", `has_tag(entity, "formal")`, true},
		{"sibling targets", `"chest" in targets.container`, true},
		{"absent variable is null", `location == null`, true},
		{"strings extension", `entity.id.upperAscii() == "BRASS_KEY"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.predicate, keyEnv())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCELErrors(t *testing.T) {
	ev, err := NewCEL()
	require.NoError(t, err)

	_, err = ev.Evaluate(`entity.id ==`, keyEnv())
	assert.Error(t, err)
	assert.Error(t, ev.Check(`entity.id ==`))

	_, err = ev.Evaluate(`entity.id`, keyEnv())
	assert.Error(t, err, "non-boolean result")

	_, err = ev.Evaluate(`entity.components["core:missing"].kind == "x"`, keyEnv())
	assert.Error(t, err)
}

func TestCELConcurrent(t *testing.T) {
	ev, err := NewCEL()
	require.NoError(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ev.Evaluate(`has_component(entity, "core:key")`, keyEnv())
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestLuaEvaluate(t *testing.T) {
	ev := NewLua()
	defer ev.Close()

	ok, err := ev.Evaluate(`entity.components["core:key"].kind == target.components["core:container"].lock_type`, keyEnv())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.Evaluate(`entity.id ~= actor.id and targets.container[1] == "chest"`, keyEnv())
	require.NoError(t, err)
	assert.True(t, ok)

	// Globals from one evaluation do not leak into the next.
	ok, err = ev.Evaluate(`entity == nil`, Env{"actor": "hero"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLuaEvaluationsAreIsolated(t *testing.T) {
	ev := NewLua()
	defer ev.Close()

	ok, err := ev.Evaluate(`(function() leaked = actor return true end)()`, Env{"actor": "hero"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.Evaluate(`leaked == nil`, Env{})
	require.NoError(t, err)
	assert.True(t, ok, "global assigned by an earlier predicate is visible")

	_, err = ev.Evaluate(`(function() math.pi = 0 return true end)()`, Env{})
	assert.Error(t, err)
	_, err = ev.Evaluate(`(function() string.upper = nil return true end)()`, Env{})
	assert.Error(t, err)

	ok, err = ev.Evaluate(`math.pi > 3 and string.upper("a") == "A" and ("b"):upper() == "B"`, Env{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLuaSandbox(t *testing.T) {
	ev := NewLua()
	defer ev.Close()

	for _, pred := range []string{
		`loadstring("return true")()`,
		`dofile("/etc/passwd")`,
		`os.exit(1)`,
		`io.open("/tmp/x")`,
	} {
		_, err := ev.Evaluate(pred, Env{})
		assert.Error(t, err, pred)
	}

	_, err := ev.Evaluate(`(function() while true do end end)()`, Env{})
	assert.Error(t, err)

	_, err = ev.Evaluate(`1 + 1`, Env{})
	assert.Error(t, err, "non-boolean result")
	assert.Error(t, ev.Check(`and and`))
}

func TestNew(t *testing.T) {
	ev, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &CEL{}, ev)

	ev, err = New(EngineLua)
	require.NoError(t, err)
	assert.IsType(t, &Lua{}, ev)

	_, err = New("prolog")
	assert.Error(t, err)
}

func TestFunc(t *testing.T) {
	var ev Evaluator = Func(func(p string, env Env) (bool, error) { return p == "yes", nil })
	ok, _ := ev.Evaluate("yes", nil)
	assert.True(t, ok)
}
