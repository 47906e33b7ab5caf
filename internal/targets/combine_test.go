package targets

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(name string, ids ...string) Set {
	s := Set{Name: name, Placeholder: name}
	for _, id := range ids {
		s.Candidates = append(s.Candidates, Candidate{ID: id, DisplayName: id})
	}
	return s
}

func collect(c *Combinations) [][]string {
	var out [][]string
	for a := range c.All() {
		var row []string
		for _, b := range a {
			row = append(row, b.Candidate.ID)
		}
		out = append(out, row)
	}
	return out
}

func TestCombineFullProduct(t *testing.T) {
	c := Combine([]Set{set("item", "apple", "bread"), set("person", "ann", "bob")}, 100)
	assert.Equal(t, [][]string{
		{"apple", "ann"}, {"apple", "bob"}, {"bread", "ann"}, {"bread", "bob"},
	}, collect(c))
	assert.Equal(t, Metadata{TotalCombinations: 4, LimitedTo: 4}, c.Metadata())
	assert.False(t, c.Metadata().Overflowed())
}

func TestCombineCap(t *testing.T) {
	c := Combine([]Set{set("a", "1", "2"), set("b", "x", "y")}, 2)
	assert.Len(t, collect(c), 2)
	assert.Equal(t, Metadata{TotalCombinations: 4, LimitedTo: 2}, c.Metadata())
	assert.True(t, c.Metadata().Overflowed())
}

func TestCombineBound(t *testing.T) {
	for _, tc := range []struct{ n, m, limit int }{
		{3, 4, 5}, {3, 4, 12}, {3, 4, 50}, {1, 1, 1}, {7, 2, 13},
	} {
		a := make([]string, tc.n)
		b := make([]string, tc.m)
		for i := range a {
			a[i] = string(rune('a' + i))
		}
		for i := range b {
			b[i] = string(rune('A' + i))
		}
		c := Combine([]Set{set("a", a...), set("b", b...)}, tc.limit)
		assert.Len(t, collect(c), min(tc.n*tc.m, tc.limit))
		assert.Equal(t, tc.n*tc.m, c.Metadata().TotalCombinations)
	}
}

func TestCombineRestartable(t *testing.T) {
	c := Combine([]Set{set("a", "1", "2", "3"), set("b", "x", "y")}, 4)
	first := collect(c)
	assert.Equal(t, first, collect(c))

	// Stopping early leaves nothing behind for the next run.
	for range c.All() {
		break
	}
	assert.Equal(t, first, collect(c))
}

func TestCombineSkipsEmptySets(t *testing.T) {
	c := Combine([]Set{set("a", "1", "2"), set("optional"), set("b", "x")}, 10)
	assert.Equal(t, [][]string{{"1", "x"}, {"2", "x"}}, collect(c))
	for a := range c.All() {
		_, ok := a.Get("optional")
		assert.False(t, ok)
	}
}

func TestCombineNoAxes(t *testing.T) {
	c := Combine(nil, 10)
	assert.Equal(t, Metadata{TotalCombinations: 1, LimitedTo: 1}, c.Metadata())
	require.Len(t, collect(c), 1)

	c = Combine([]Set{set("a", "1")}, 0)
	assert.Empty(t, collect(c))
}

func TestCombineSaturates(t *testing.T) {
	big := make([]Candidate, 1<<16)
	sets := make([]Set, 5)
	for i := range sets {
		sets[i] = Set{Name: string(rune('a' + i)), Candidates: big}
	}
	c := Combine(sets, 3)
	assert.Equal(t, math.MaxInt, c.Metadata().TotalCombinations)
	assert.Len(t, collect(c), 3)
}

func TestFirst(t *testing.T) {
	c := First([]Set{set("a", "1", "2"), set("b", "x", "y")})
	assert.Equal(t, [][]string{{"1", "x"}}, collect(c))
	assert.Equal(t, 4, c.Metadata().TotalCombinations)
	assert.Equal(t, 1, c.Metadata().LimitedTo)
}
