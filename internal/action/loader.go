package action

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/suderio/scopedsl/internal/parser"
	"github.com/suderio/scopedsl/internal/predicate"
	"github.com/suderio/scopedsl/internal/targets"
)

// Loader reads action files from a data directory fallback hierarchy.
type Loader struct {
	dataDirs []string
}

// NewLoader initializes an action loader searching dataDirs in order.
func NewLoader(dataDirs []string) *Loader {
	return &Loader{dataDirs: dataDirs}
}

// Load opens an action file by path, or by name as actions/<name>.yaml
// inside one of the data directories.
func (l *Loader) Load(ref string) (*Catalog, error) {
	for _, path := range l.candidates(ref) {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()
		c, err := Decode(f)
		if err != nil {
			return nil, oops.In("content").Code("decode_failed").With("path", path).Wrapf(err, "failed to decode actions %s", ref)
		}
		return c, nil
	}
	return nil, oops.In("content").Code("not_found").Errorf("could not find actions %s in any available data directory", ref)
}

func (l *Loader) candidates(ref string) []string {
	out := []string{ref}
	for _, dir := range l.dataDirs {
		out = append(out,
			filepath.Join(dir, ref),
			filepath.Join(dir, "actions", ref+".yaml"),
		)
	}
	return out
}

// Decode reads an action catalog. An empty document is an empty catalog.
func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &c, nil
}

// Problem is one authoring mistake found by Check.
type Problem struct {
	ActionID string
	Target   string
	Err      error
}

func (p Problem) Error() string {
	if p.Target == "" {
		return fmt.Sprintf("action %s: %v", p.ActionID, p.Err)
	}
	return fmt.Sprintf("action %s, target %s: %v", p.ActionID, p.Target, p.Err)
}

func (p Problem) Unwrap() error { return p.Err }

// Check reports authoring mistakes in c: scope syntax errors, missing ids,
// duplicate ids and dependency problems. Syntax errors are wrapped
// *parser.SyntaxError values.
func Check(c *Catalog, p *parser.Parser) []Problem {
	var out []Problem
	seen := make(map[string]bool)
	for i, a := range c.Actions {
		id := a.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
			out = append(out, Problem{ActionID: id, Err: errors.New("missing id")})
		} else if seen[id] {
			out = append(out, Problem{ActionID: id, Err: errors.New("duplicate id")})
		}
		seen[id] = true

		defs := a.Definitions()
		for _, d := range defs {
			if _, err := p.Parse(d.Scope); err != nil {
				out = append(out, Problem{ActionID: id, Target: d.Name, Err: err})
			}
		}
		for _, diag := range targets.Order(defs).Diagnostics {
			if diag.Kind == targets.DiagFailedDependency {
				continue
			}
			out = append(out, Problem{ActionID: id, Target: diag.Target, Err: errors.New(diag.Kind)})
		}
	}
	return out
}

// CheckPredicates compiles every prerequisite, validation and scope filter
// of c with checker. Scopes that do not parse are left to Check.
func CheckPredicates(c *Catalog, p *parser.Parser, checker predicate.Checker) []Problem {
	var out []Problem
	for i, a := range c.Actions {
		id := a.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		if a.Prerequisite != "" {
			if err := checker.Check(a.Prerequisite); err != nil {
				out = append(out, Problem{ActionID: id, Err: fmt.Errorf("prerequisite: %w", err)})
			}
		}
		for _, d := range a.Definitions() {
			if d.Validation != "" {
				if err := checker.Check(d.Validation); err != nil {
					out = append(out, Problem{ActionID: id, Target: d.Name, Err: fmt.Errorf("validation: %w", err)})
				}
			}
			expr, err := p.Parse(d.Scope)
			if err != nil {
				continue
			}
			parser.Walk(expr.Root, func(n parser.Node) {
				f, ok := n.(parser.Filter)
				if !ok {
					return
				}
				if err := checker.Check(f.Predicate); err != nil {
					out = append(out, Problem{ActionID: id, Target: d.Name, Err: fmt.Errorf("filter: %w", err)})
				}
			})
		}
	}
	return out
}
