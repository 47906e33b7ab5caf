// Package cache memoizes parsed expressions and resolved candidate sets.
//
// The AST tier is keyed by expression text and never evicts: expressions are
// a small closed set authored as content. The resolution tier is keyed by
// (entity, expression, context signature) and is invalidated by component
// mutation notifications, never by time.
package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/suderio/scopedsl/internal/parser"
)

type astEntry struct {
	expr *parser.Expression
	err  error
}

// ASTs caches parse results, including syntax errors, by expression text.
type ASTs struct {
	parser *parser.Parser

	mu      sync.RWMutex
	entries map[string]astEntry
	group   singleflight.Group
}

// NewASTs creates an AST cache in front of p.
func NewASTs(p *parser.Parser) *ASTs {
	if p == nil {
		p = parser.New()
	}
	return &ASTs{parser: p, entries: make(map[string]astEntry)}
}

// Get returns the parsed expression for text, parsing it at most once.
func (c *ASTs) Get(text string) (*parser.Expression, error) {
	c.mu.RLock()
	e, ok := c.entries[text]
	c.mu.RUnlock()
	if ok {
		lookupsTotal.WithLabelValues("ast", "hit").Inc()
		return e.expr, e.err
	}
	lookupsTotal.WithLabelValues("ast", "miss").Inc()
	v, _, _ := c.group.Do(text, func() (any, error) {
		expr, err := c.parser.Parse(text)
		e := astEntry{expr: expr, err: err}
		c.mu.Lock()
		c.entries[text] = e
		c.mu.Unlock()
		return e, nil
	})
	e = v.(astEntry)
	return e.expr, e.err
}

// Len returns the number of cached expressions.
func (c *ASTs) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
