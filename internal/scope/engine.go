// Package scope resolves parsed scope expressions against the entity graph.
//
// Field names that are not component type ids are dispatched through a
// static Registry; everything else is plain navigation over component data.
// Resolution never fails: missing data, malformed equipment and rejected
// identifiers all degrade to fewer candidates.
package scope

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/suderio/scopedsl/internal/cache"
	"github.com/suderio/scopedsl/internal/clothing"
	"github.com/suderio/scopedsl/internal/diag"
	"github.com/suderio/scopedsl/internal/logger"
	"github.com/suderio/scopedsl/internal/parser"
	"github.com/suderio/scopedsl/internal/predicate"
	"github.com/suderio/scopedsl/internal/world"
)

// DefaultMaxCandidates bounds the size of every intermediate value list.
const DefaultMaxCandidates = 10000

// Engine resolves scope expressions. It holds no request state and is safe
// for concurrent use.
type Engine struct {
	accessor      Accessor
	eval          predicate.Evaluator
	vocab         *clothing.Vocabulary
	registry      *Registry
	parser        *parser.Parser
	asts          *cache.ASTs
	results       *cache.Resolutions
	tracer        diag.Tracer
	log           logrus.FieldLogger
	maxCandidates int
}

// Option configures an Engine.
type Option func(*Engine)

// WithVocabulary sets the clothing vocabulary. The registry is rebuilt from
// it unless WithRegistry is also given.
func WithVocabulary(v *clothing.Vocabulary) Option {
	return func(e *Engine) { e.vocab = v }
}

// WithRegistry replaces the built-in field registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithParser sets the parser used by Parse.
func WithParser(p *parser.Parser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithASTCache shares an AST cache.
func WithASTCache(c *cache.ASTs) Option {
	return func(e *Engine) { e.asts = c }
}

// WithResolutionCache memoizes resolutions in c. Attach c to the store's
// mutation notifications to keep it fresh.
func WithResolutionCache(c *cache.Resolutions) Option {
	return func(e *Engine) { e.results = c }
}

// WithTracer reports diagnostics to t.
func WithTracer(t diag.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMaxCandidates bounds intermediate list sizes.
func WithMaxCandidates(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCandidates = n
		}
	}
}

// New builds an Engine reading through accessor and evaluating filters with
// eval.
func New(accessor Accessor, eval predicate.Evaluator, opts ...Option) *Engine {
	e := &Engine{
		accessor:      accessor,
		eval:          eval,
		vocab:         clothing.Default(),
		tracer:        diag.Nop{},
		maxCandidates: DefaultMaxCandidates,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry(e.vocab)
	}
	if e.parser == nil {
		e.parser = parser.New(parser.WithKeys(e.vocab.IsKey))
	}
	if e.asts == nil {
		e.asts = cache.NewASTs(e.parser)
	}
	if e.log == nil {
		e.log = logger.For("scope")
	}
	return e
}

// Accessor returns the entity accessor.
func (e *Engine) Accessor() Accessor { return e.accessor }

// Evaluator returns the predicate evaluator.
func (e *Engine) Evaluator() predicate.Evaluator { return e.eval }

// Vocabulary returns the clothing vocabulary.
func (e *Engine) Vocabulary() *clothing.Vocabulary { return e.vocab }

// Registry returns the field registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Parse parses text through the AST cache.
func (e *Engine) Parse(text string) (*parser.Expression, error) {
	return e.asts.Get(text)
}

// ResolveText parses and resolves text. The only error is a syntax error.
func (e *Engine) ResolveText(text string, ctx Context) ([]string, error) {
	expr, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	return e.Resolve(expr, ctx), nil
}

// Resolve returns the ordered, duplicate-free candidate ids of expr.
func (e *Engine) Resolve(expr *parser.Expression, ctx Context) []string {
	if expr == nil || expr.Root == nil {
		return nil
	}
	if e.results == nil {
		ids, _ := e.compute(expr, ctx)
		return ids
	}
	key := cache.Key{Entity: ctx.Actor, Expression: expr.Text, Context: ctx.Signature()}
	return e.results.GetOrCompute(key, func() ([]string, []string) {
		return e.compute(expr, ctx)
	})
}

func (e *Engine) compute(expr *parser.Expression, ctx Context) (ids []string, deps []string) {
	r := e.newRequest(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			resolutionPanicsTotal.Inc()
			e.log.WithField("panic", fmt.Sprint(rec)).Error("scope resolution aborted")
			e.tracer.Warn("resolution aborted", logrus.Fields{"actor_id": ctx.Actor})
			ids, deps = nil, nil
		}
	}()
	e.tracer.Step("resolve", logrus.Fields{"actor_id": ctx.Actor})
	values := r.eval(expr.Root)
	ids = terminalIDs(values)
	e.tracer.Success("resolve", logrus.Fields{"actor_id": ctx.Actor, "candidates": len(ids)})
	return ids, r.dependencies()
}

// terminalIDs keeps the non-empty strings of the final values, first
// occurrence wins.
func terminalIDs(values []any) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		id, ok := v.(string)
		if !ok || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Request is the state of one resolution: the context, the dependencies read
// so far and per-request memoization.
type Request struct {
	engine    *Engine
	ctx       Context
	reads     map[string]struct{}
	views     *views
	equipment map[string]clothing.Equipment
	wearables map[string]*clothing.Wearable
	anatomy   map[string][]string
	env       predicate.Env
}

func (e *Engine) newRequest(ctx Context) *Request {
	r := &Request{
		engine:    e,
		ctx:       ctx,
		reads:     make(map[string]struct{}),
		equipment: make(map[string]clothing.Equipment),
		wearables: make(map[string]*clothing.Wearable),
		anatomy:   make(map[string][]string),
	}
	r.views = newViews(tracking{r})
	return r
}

// Context returns the resolution context.
func (r *Request) Context() Context { return r.ctx }

// Component reads a component and records the dependency.
func (r *Request) Component(entityID, componentTypeID string) (any, bool) {
	r.reads[cache.EntityDep(entityID)] = struct{}{}
	return r.engine.accessor.GetComponentData(entityID, componentTypeID)
}

// Equipment returns the validated equipment of an entity. Malformed entries
// are left out and repaired.
func (r *Request) Equipment(entityID string) clothing.Equipment {
	if eq, ok := r.equipment[entityID]; ok {
		return eq
	}
	data, _ := r.Component(entityID, clothing.EquipmentComponent)
	eq, defects := clothing.Decode(data, r.engine.vocab)
	if len(defects) > 0 {
		r.engine.repair(entityID, defects)
	}
	r.equipment[entityID] = eq
	return eq
}

// Wearable returns the validated wearable component of an item.
func (r *Request) Wearable(itemID string) (clothing.Wearable, bool) {
	if w, ok := r.wearables[itemID]; ok {
		if w == nil {
			return clothing.Wearable{}, false
		}
		return *w, true
	}
	data, _ := r.Component(itemID, clothing.WearableComponent)
	w, ok := clothing.DecodeWearable(data, r.engine.vocab)
	if !ok {
		r.wearables[itemID] = nil
		return clothing.Wearable{}, false
	}
	for _, kind := range w.Rejected {
		r.reject(kind)
	}
	r.wearables[itemID] = &w
	return w, true
}

// Anatomy returns the whitelisted sockets of an entity.
func (r *Request) Anatomy(entityID string) ([]string, bool) {
	if s, ok := r.anatomy[entityID]; ok {
		return s, s != nil
	}
	data, ok := r.Component(entityID, clothing.AnatomyComponent)
	if !ok {
		r.anatomy[entityID] = nil
		return nil, false
	}
	sockets, rejected := clothing.AnatomySockets(data, r.engine.vocab)
	for i := 0; i < rejected; i++ {
		r.reject(clothing.DefectUnknownSocket)
	}
	if sockets == nil {
		sockets = []string{}
	}
	r.anatomy[entityID] = sockets
	return sockets, true
}

func (r *Request) reject(kind clothing.DefectKind) {
	securityRejectionsTotal.WithLabelValues(string(kind)).Inc()
	r.engine.tracer.Warn("security rejection", logrus.Fields{"kind": string(kind)})
}

func (r *Request) dependencies() []string {
	out := make([]string, 0, len(r.reads))
	for d := range r.reads {
		out = append(out, d)
	}
	return out
}

func (r *Request) bound(values []any) []any {
	if len(values) > r.engine.maxCandidates {
		r.engine.tracer.Warn("candidate limit", logrus.Fields{"limit": r.engine.maxCandidates})
		return values[:r.engine.maxCandidates]
	}
	return values
}

func (r *Request) eval(n parser.Node) []any {
	switch node := n.(type) {
	case parser.Source:
		return r.source(node)
	case parser.Field:
		var out []any
		for _, v := range r.eval(node.Parent) {
			out = append(out, r.field(v, node.Name, node.Component)...)
		}
		return r.bound(out)
	case parser.SlotAccess:
		var out []any
		for _, v := range r.eval(node.Parent) {
			if q, ok := v.(*Query); ok {
				out = append(out, q.key(r, node.Key)...)
				continue
			}
			out = append(out, r.field(v, node.Key, false)...)
		}
		return r.bound(out)
	case parser.Expand:
		var out []any
		for _, v := range r.eval(node.Parent) {
			out = append(out, r.expand(v)...)
		}
		return r.bound(out)
	case parser.Filter:
		return r.filter(r.eval(node.Parent), node.Predicate)
	case parser.Union:
		return r.bound(append(r.eval(node.Left), r.eval(node.Right)...))
	}
	return nil
}

func (r *Request) source(s parser.Source) []any {
	switch s.Kind {
	case parser.SourceActor:
		return single(r.ctx.Actor)
	case parser.SourceLocation:
		return single(r.ctx.Location)
	case parser.SourceGame:
		return single(r.ctx.Game)
	case parser.SourceTarget:
		id, _ := r.ctx.Target.Get()
		return single(id)
	case parser.SourceTargets:
		sets, ok := r.ctx.Targets.Get()
		if !ok {
			return nil
		}
		var out []any
		for _, name := range sortedKeys(sets) {
			for _, id := range sets[name] {
				out = append(out, id)
			}
		}
		return r.bound(out)
	case parser.SourceEntities:
		r.reads[cache.ComponentDep(s.Component)] = struct{}{}
		index, ok := r.engine.accessor.(EntityIndex)
		if !ok {
			return nil
		}
		return r.bound(toList(index.EntitiesWithComponent(s.Component, s.Negate)))
	}
	return nil
}

func single(id string) []any {
	if id == "" {
		return nil
	}
	return []any{id}
}

// field applies ".name" to one value. On an entity id a component type id
// reads the component and any other name goes through the registry; on
// data it reads a key.
func (r *Request) field(v any, name string, component bool) []any {
	switch val := v.(type) {
	case string:
		if component {
			if data, ok := r.Component(val, name); ok {
				return []any{data}
			}
			return nil
		}
		res, ok := r.engine.registry.Lookup(name)
		if !ok {
			return nil
		}
		if out := res.Resolve(r, val); out != nil {
			return []any{out}
		}
		return nil
	case *Query:
		r.reject(clothing.DefectUnknownSlot)
		return nil
	}
	if data, ok := world.Get(v, name); ok {
		return []any{data}
	}
	return nil
}

// expand flattens one value: list elements, object values in key order, or
// every admitted item of a clothing query.
func (r *Request) expand(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []string:
		return toList(val)
	case *Query:
		return val.flatten(r)
	}
	keys, ok := world.Keys(v)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		item, _ := world.Get(v, k)
		out = append(out, item)
	}
	return out
}

// filter keeps the candidates the predicate holds for, with each bound as
// entity. Evaluation errors count as false.
func (r *Request) filter(candidates []any, pred string) []any {
	if r.engine.eval == nil {
		return nil
	}
	if r.env == nil {
		r.env = r.views.env(r.ctx)
	}
	var out []any
	for _, c := range candidates {
		env := make(predicate.Env, len(r.env)+1)
		for k, v := range r.env {
			env[k] = v
		}
		if id, ok := c.(string); ok {
			env["entity"] = r.views.entity(id)
		} else {
			env["entity"] = world.Plain(c)
		}
		ok, err := r.engine.eval.Evaluate(pred, env)
		if err != nil {
			predicateErrorsTotal.Inc()
			r.engine.tracer.Warn("predicate error", logrus.Fields{"actor_id": r.ctx.Actor})
			continue
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// tracking routes view construction through the request so that every
// entity a predicate can see becomes a cache dependency.
type tracking struct{ r *Request }

func (t tracking) GetComponentData(entityID, componentTypeID string) (any, bool) {
	return t.r.Component(entityID, componentTypeID)
}

func (t tracking) ComponentTypes(entityID string) []string {
	t.r.reads[cache.EntityDep(entityID)] = struct{}{}
	if lister, ok := t.r.engine.accessor.(ComponentLister); ok {
		return lister.ComponentTypes(entityID)
	}
	return nil
}
