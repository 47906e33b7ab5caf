package targets

import (
	"iter"
	"math"
)

// Candidate is one resolved entity.
type Candidate struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
}

// Set is the ordered candidate set of one target definition.
type Set struct {
	Name        string
	Placeholder string
	Candidates  []Candidate
}

// Binding assigns a candidate to a target.
type Binding struct {
	Target      string
	Placeholder string
	Candidate   Candidate
}

// Assignment binds one candidate to every non-empty target set.
type Assignment []Binding

// Get returns the candidate bound to a target.
func (a Assignment) Get(target string) (Candidate, bool) {
	for _, b := range a {
		if b.Target == target {
			return b.Candidate, true
		}
	}
	return Candidate{}, false
}

// Metadata describes a combination run. TotalCombinations is the true
// product of the set sizes, saturating at math.MaxInt; LimitedTo is the
// number of assignments actually produced.
type Metadata struct {
	TotalCombinations int `json:"totalCombinations" yaml:"totalCombinations"`
	LimitedTo         int `json:"limitedTo" yaml:"limitedTo"`
}

// Overflowed reports whether the cap cut the product short.
func (m Metadata) Overflowed() bool { return m.LimitedTo < m.TotalCombinations }

// Combinations is a lazy, finite, restartable cartesian product.
type Combinations struct {
	axes []Set
	meta Metadata
}

// Combine prepares the product of sets, stopping after limit assignments.
// Empty sets are not axes: they contribute no binding. A non-positive limit
// produces nothing.
func Combine(sets []Set, limit int) *Combinations {
	c := &Combinations{}
	total := 1
	for _, s := range sets {
		if len(s.Candidates) == 0 {
			continue
		}
		c.axes = append(c.axes, s)
		total = saturatingMul(total, len(s.Candidates))
	}
	c.meta = Metadata{TotalCombinations: total, LimitedTo: min(total, max(limit, 0))}
	return c
}

// First is the product used when combinations are not requested: one
// assignment holding the first candidate of each non-empty set.
func First(sets []Set) *Combinations {
	return Combine(sets, 1)
}

// Metadata returns the totals of the run.
func (c *Combinations) Metadata() Metadata { return c.meta }

// All yields the assignments in lexicographic order of the authored
// definitions, the last axis varying fastest. Each call restarts from the
// first assignment. Memory is one counter digit per axis.
func (c *Combinations) All() iter.Seq[Assignment] {
	return func(yield func(Assignment) bool) {
		digits := make([]int, len(c.axes))
		for emitted := 0; emitted < c.meta.LimitedTo; emitted++ {
			a := make(Assignment, len(c.axes))
			for i, axis := range c.axes {
				a[i] = Binding{Target: axis.Name, Placeholder: axis.Placeholder, Candidate: axis.Candidates[digits[i]]}
			}
			if !yield(a) {
				return
			}
			// Increment the multi-radix counter.
			for i := len(digits) - 1; i >= 0; i-- {
				digits[i]++
				if digits[i] < len(c.axes[i].Candidates) {
					break
				}
				digits[i] = 0
			}
		}
	}
}

func saturatingMul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}
