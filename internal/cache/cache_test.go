package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suderio/scopedsl/internal/parser"
	"github.com/suderio/scopedsl/internal/world"
)

func TestASTCache(t *testing.T) {
	c := NewASTs(parser.New())
	a, err := c.Get("actor.all_clothing[]")
	require.NoError(t, err)
	b, err := c.Get("actor.all_clothing[]")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = c.Get("actor..x")
	assert.Error(t, err)
	_, err2 := c.Get("actor..x")
	assert.Equal(t, err, err2)
	assert.Equal(t, 2, c.Len())
}

func TestResolutionHitAndInvalidate(t *testing.T) {
	c := NewResolutions()
	key := Key{Entity: "hero", Expression: "actor.all_clothing[]", Context: "ctx"}
	calls := 0
	compute := func() ([]string, []string) {
		calls++
		return []string{"jacket"}, []string{EntityDep("hero")}
	}

	assert.Equal(t, []string{"jacket"}, c.GetOrCompute(key, compute))
	assert.Equal(t, []string{"jacket"}, c.GetOrCompute(key, compute))
	assert.Equal(t, 1, calls)

	c.Invalidate("someone_else", "clothing:equipment")
	c.GetOrCompute(key, compute)
	assert.Equal(t, 1, calls)

	c.Invalidate("hero", "clothing:equipment")
	assert.Equal(t, 0, c.Len())
	c.GetOrCompute(key, compute)
	assert.Equal(t, 2, calls)
}

func TestResolutionComponentIndexDependency(t *testing.T) {
	c := NewResolutions()
	key := Key{Entity: "hero", Expression: "entities(core:actor)", Context: "ctx"}
	c.GetOrCompute(key, func() ([]string, []string) {
		return []string{"a"}, []string{ComponentDep("core:actor")}
	})
	require.Equal(t, 1, c.Len())

	c.Invalidate("newcomer", "core:name")
	assert.Equal(t, 1, c.Len())
	c.Invalidate("newcomer", "core:actor")
	assert.Equal(t, 0, c.Len())

	c.GetOrCompute(key, func() ([]string, []string) {
		return []string{"a"}, []string{ComponentDep("core:actor")}
	})
	c.Invalidate("removed", "")
	assert.Equal(t, 0, c.Len())
}

func TestResolutionStaleComputeNotStored(t *testing.T) {
	c := NewResolutions()
	key := Key{Entity: "hero", Expression: "actor.all_clothing[]"}
	got := c.GetOrCompute(key, func() ([]string, []string) {
		// A mutation lands while the resolution is running.
		c.Invalidate("hero", "clothing:equipment")
		return []string{"old"}, []string{EntityDep("hero")}
	})
	assert.Equal(t, []string{"old"}, got)
	assert.Equal(t, 0, c.Len())
}

func TestResolutionCoalescesConcurrentComputes(t *testing.T) {
	c := NewResolutions()
	key := Key{Entity: "hero", Expression: "x"}
	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := c.GetOrCompute(key, func() ([]string, []string) {
				calls.Add(1)
				<-release
				return []string{"a"}, nil
			})
			assert.Equal(t, []string{"a"}, ids)
		}()
	}
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.Equal(t, 1, c.Len())
}

func TestResolutionReturnsCopies(t *testing.T) {
	c := NewResolutions()
	key := Key{Entity: "hero", Expression: "x"}
	ids := c.GetOrCompute(key, func() ([]string, []string) { return []string{"a"}, nil })
	ids[0] = "mutated"
	assert.Equal(t, []string{"a"}, c.GetOrCompute(key, nil))
}

func TestAttachToStore(t *testing.T) {
	s := world.NewStore()
	c := NewResolutions()
	detach := c.Attach(s)
	key := Key{Entity: "hero", Expression: "x"}
	c.GetOrCompute(key, func() ([]string, []string) { return []string{"a"}, []string{EntityDep("hero")} })

	s.SetComponent("hero", "core:name", "Hero")
	assert.Equal(t, 0, c.Len())

	detach()
	c.GetOrCompute(key, func() ([]string, []string) { return []string{"a"}, []string{EntityDep("hero")} })
	s.SetComponent("hero", "core:name", "Hero")
	assert.Equal(t, 1, c.Len())
}
