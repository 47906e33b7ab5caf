package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructure(t *testing.T) {
	actor := Source{Kind: SourceActor}
	tests := []struct {
		name string
		text string
		want Node
	}{
		{
			name: "bare source",
			text: "actor",
			want: actor,
		},
		{
			name: "slot access",
			text: "actor.topmost_clothing.torso_upper",
			want: SlotAccess{Parent: Field{Parent: actor, Name: "topmost_clothing"}, Key: "torso_upper"},
		},
		{
			name: "group access",
			text: "actor.all_clothing.upper_body",
			want: SlotAccess{Parent: Field{Parent: actor, Name: "all_clothing"}, Key: "upper_body"},
		},
		{
			name: "component field and expansion",
			text: "actor.core:inventory.items[]",
			want: Expand{Parent: Field{
				Parent: Field{Parent: actor, Name: "core:inventory", Component: true},
				Name:   "items",
			}},
		},
		{
			name: "filter after expansion",
			text: "actor.all_clothing[][entity.id != 'x']",
			want: Filter{
				Parent:    Expand{Parent: Field{Parent: actor, Name: "all_clothing"}},
				Predicate: "entity.id != 'x'",
			},
		},
		{
			name: "entities source with filter",
			text: "entities(core:actor)[ entity.id   != actor.id ]",
			want: Filter{
				Parent:    Source{Kind: SourceEntities, Component: "core:actor"},
				Predicate: "entity.id != actor.id",
			},
		},
		{
			name: "negated entities",
			text: "entities(!core:actor)",
			want: Source{Kind: SourceEntities, Component: "core:actor", Negate: true},
		},
		{
			name: "union is left associative",
			text: "actor | location + target",
			want: Union{
				Left:  Union{Left: actor, Right: Source{Kind: SourceLocation}},
				Right: Source{Kind: SourceTarget},
			},
		},
		{
			name: "nested brackets kept verbatim",
			text: `entities(core:item)[entity.id in ["a", "b]"]]`,
			want: Filter{
				Parent:    Source{Kind: SourceEntities, Component: "core:item"},
				Predicate: `entity.id in ["a", "b]"]`,
			},
		},
		{
			name: "component key after component is a field",
			text: "target.core:container.lock_type",
			want: Field{
				Parent: Field{Parent: Source{Kind: SourceTarget}, Name: "core:container", Component: true},
				Name:   "lock_type",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.text)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, expr.Root); diff != "" {
				t.Errorf("AST mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDeterministic(t *testing.T) {
	text := "actor.core:inventory.items[][entity.id != 'a'] | location.core:actors.list[]"
	a, err := Parse(text)
	require.NoError(t, err)
	b, err := New().Parse(text)
	require.NoError(t, err)
	assert.True(t, cmp.Equal(a, b))
	assert.Equal(t, 4, a.Depth)
	assert.Equal(t, []SourceKind{SourceActor, SourceLocation}, a.Sources())
	assert.True(t, a.HasFilter())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		kind  string
		token string
	}{
		{"empty", "   ", KindEmpty, ""},
		{"unknown source", "player.items", KindUnexpectedToken, "Ident"},
		{"dangling dot", "actor.", KindUnexpectedEnd, ""},
		{"double dot", "actor..items", KindUnexpectedToken, "Punct"},
		{"filter without expansion", "actor.items[entity.id]", KindFilterWithoutExpansion, ""},
		{"empty filter", "actor.items[][   ]", KindEmptyFilter, ""},
		{"unterminated filter", "actor.items[][x", KindUnexpectedEnd, ""},
		{"bad character", "actor.items#", KindInvalidCharacter, ""},
		{"trailing union", "actor |", KindUnexpectedEnd, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, tt.token, se.Token)
		})
	}
}

func TestSyntaxErrorNeverEchoesInput(t *testing.T) {
	_, err := Parse("actor.items[secret_password]")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret_password")

	_, err = Parse("SELECT name FROM users")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SELECT")
	assert.Equal(t, `unexpected token "Ident"`, err.Error())
}

func TestParseLimits(t *testing.T) {
	p := New(WithLimits(Limits{MaxDepth: 3, MaxFilterNesting: 2, MaxExpressionLength: 64, MaxUnionTerms: 2}))

	_, err := p.Parse("actor.a.b.c")
	assert.NoError(t, err)

	tests := []struct {
		name string
		text string
		kind string
	}{
		{"depth", "actor.a.b.c.d", KindTooDeep},
		{"filter nesting", "entities(x)[a[b[c]]]", KindFilterTooDeep},
		{"length", "actor." + strings.Repeat("a", 80), KindTooLong},
		{"union terms", "actor | location | game", KindTooManyTerms},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.text)
			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.kind, se.Kind)
		})
	}
}

func TestWithKeys(t *testing.T) {
	p := New(WithKeys(func(name string) bool { return name == "pocket" }))
	expr, err := p.Parse("actor.coat.pocket")
	require.NoError(t, err)
	_, ok := expr.Root.(SlotAccess)
	assert.True(t, ok)

	expr, err = p.Parse("actor.topmost_clothing.torso_upper")
	require.NoError(t, err)
	_, ok = expr.Root.(Field)
	assert.True(t, ok)
}

func TestExpressionString(t *testing.T) {
	expr, err := Parse("actor.all_clothing[][ entity.id!='a' ]+entities(!core:actor)")
	require.NoError(t, err)
	assert.Equal(t, "actor.all_clothing[][entity.id!='a'] | entities(!core:actor)", expr.String())
}

func TestMapError(t *testing.T) {
	_, err := Parse("actor.items[x]")
	hint := MapError(err)
	assert.Contains(t, hint.Error(), "a filter must follow")
	var se *SyntaxError
	assert.True(t, errors.As(hint, &se))
}
