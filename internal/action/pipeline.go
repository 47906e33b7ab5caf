package action

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/suderio/scopedsl/internal/diag"
	"github.com/suderio/scopedsl/internal/logger"
	"github.com/suderio/scopedsl/internal/parser"
	"github.com/suderio/scopedsl/internal/scope"
	"github.com/suderio/scopedsl/internal/targets"
)

// Request states. Every request ends in StateEmitted or StateSkipped.
const (
	StateParse              = "parse"
	StateResolveIndependent = "resolve_independent"
	StateResolveDependent   = "resolve_dependent"
	StateValidate           = "validate"
	StateCombine            = "combine"
	StateFormat             = "format"
	StateEmitted            = "emitted"
	StateSkipped            = "skipped"
)

// Skip reasons.
const (
	SkipPrerequisite   = "prerequisite"
	SkipRequiredTarget = "required target"
	SkipSyntaxError    = "syntax error"
	SkipDuplicateName  = "duplicate target"
	SkipPanic          = "panic"
	SkipCanceled       = "canceled"
)

const (
	// DefaultMaxCombinations caps combinations when neither the action nor a
	// definition sets maxCombinations.
	DefaultMaxCombinations = 50
	// HardCombinationLimit caps every action regardless of authored values.
	HardCombinationLimit = 10000
)

var requestEvents = fsm.Events{
	{Name: "advance", Src: []string{StateParse}, Dst: StateResolveIndependent},
	{Name: "advance", Src: []string{StateResolveIndependent}, Dst: StateResolveDependent},
	{Name: "advance", Src: []string{StateResolveDependent}, Dst: StateValidate},
	{Name: "advance", Src: []string{StateValidate}, Dst: StateCombine},
	{Name: "advance", Src: []string{StateCombine}, Dst: StateFormat},
	{Name: "emit", Src: []string{StateFormat}, Dst: StateEmitted},
	{Name: "skip", Src: []string{
		StateParse, StateResolveIndependent, StateResolveDependent,
		StateValidate, StateCombine, StateFormat,
	}, Dst: StateSkipped},
}

// Result is the outcome of discovering one action.
type Result struct {
	RequestID   string                    `json:"requestId" yaml:"requestId"`
	ActionID    string                    `json:"actionId" yaml:"actionId"`
	State       string                    `json:"state" yaml:"state"`
	Reason      string                    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Candidates  []targets.ActionCandidate `json:"candidates" yaml:"candidates"`
	Diagnostics []targets.Diagnostic      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Emitted reports whether the action produced candidates.
func (r Result) Emitted() bool { return r.State == StateEmitted }

// Pipeline discovers action candidates with a scope engine.
type Pipeline struct {
	engine      *scope.Engine
	validator   *targets.Validator
	tracer      diag.Tracer
	log         logrus.FieldLogger
	defaultMax  int
	hardLimit   int
	concurrency int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTracer reports request states and diagnostics to t.
func WithTracer(t diag.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithLogger sets the pipeline logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithCombinationLimits sets the default cap and the hard limit. Zero
// values keep the defaults.
func WithCombinationLimits(defaultMax, hardLimit int) Option {
	return func(p *Pipeline) {
		if defaultMax > 0 {
			p.defaultMax = defaultMax
		}
		if hardLimit > 0 {
			p.hardLimit = hardLimit
		}
	}
}

// WithConcurrency bounds the actions DiscoverAll resolves at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPipeline builds a pipeline over engine.
func NewPipeline(engine *scope.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:      engine,
		tracer:      diag.Nop{},
		log:         logger.For("action"),
		defaultMax:  DefaultMaxCombinations,
		hardLimit:   HardCombinationLimit,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.validator = targets.NewValidator(engine.Accessor(), engine.Evaluator(), p.tracer)
	return p
}

// request carries the state of one action resolution.
type request struct {
	p       *Pipeline
	action  Action
	ctx     scope.Context
	machine *fsm.FSM
	fields  logrus.Fields
	result  Result

	plan   targets.Plan
	exprs  map[string]*parser.Expression
	sets   map[string][]string
	combos *targets.Combinations
}

// Discover drives a through parse, resolve_independent, resolve_dependent,
// validate, combine and format. It never returns an error: failures,
// including panics, skip the action.
func (p *Pipeline) Discover(ctx context.Context, a Action, sctx scope.Context) (res Result) {
	r := &request{
		p:      p,
		action: a,
		ctx:    sctx,
		result: Result{RequestID: uuid.NewString(), ActionID: a.ID},
		exprs:  make(map[string]*parser.Expression),
		sets:   make(map[string][]string),
	}
	r.fields = logrus.Fields{"request_id": r.result.RequestID, "action_id": a.ID, "actor_id": sctx.Actor}
	r.machine = fsm.NewFSM(StateParse, requestEvents, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			p.tracer.Step(e.Dst, r.fields)
		},
	})

	defer func() {
		if rec := recover(); rec != nil {
			p.log.WithFields(r.fields).WithField("state", r.machine.Current()).Error("action resolution panicked")
			r.skip(ctx, SkipPanic)
		}
		r.result.State = r.machine.Current()
		if r.result.Emitted() {
			emittedTotal.Add(float64(len(r.result.Candidates)))
			p.tracer.Success("action", logrus.Fields{"action_id": a.ID, "candidates": len(r.result.Candidates)})
		}
		res = r.result
	}()

	r.run(ctx)
	return r.result
}

func (r *request) run(ctx context.Context) {
	steps := []func() string{r.parse, r.resolveIndependent, r.resolveDependent, r.validate, r.combine}
	for _, step := range steps {
		if ctx.Err() != nil {
			r.skip(ctx, SkipCanceled)
			return
		}
		if reason := step(); reason != "" {
			r.skip(ctx, reason)
			return
		}
		if err := r.machine.Event(ctx, "advance"); err != nil {
			r.skip(ctx, SkipCanceled)
			return
		}
	}
	r.format()
	if err := r.machine.Event(ctx, "emit"); err != nil {
		r.skip(ctx, SkipCanceled)
	}
}

func (r *request) skip(ctx context.Context, reason string) {
	if r.machine.Current() == StateSkipped {
		return
	}
	r.result.Reason = reason
	r.result.Candidates = nil
	skippedTotal.WithLabelValues(reason).Inc()
	r.p.log.WithFields(r.fields).WithField("reason", reason).Debug("action skipped")
	// A canceled caller context still finishes the transition.
	_ = r.machine.Event(context.WithoutCancel(ctx), "skip")
}

func (r *request) diagnose(d targets.Diagnostic) {
	r.result.Diagnostics = append(r.result.Diagnostics, d)
	r.p.tracer.Warn(d.Kind, logrus.Fields{"action_id": r.action.ID, "target": d.Target})
}

// parse checks the actor gates, orders definitions and parses every scope.
// Two definitions sharing a name cannot both be bound, so the action is
// skipped.
func (r *request) parse() string {
	if !r.actorAllowed() {
		return SkipPrerequisite
	}
	defs := r.action.Definitions()
	r.plan = targets.Order(defs)
	duplicate := false
	for _, d := range r.plan.Diagnostics {
		r.diagnose(d)
		duplicate = duplicate || d.Kind == targets.DiagDuplicateName
	}
	if len(r.plan.Diagnostics) > 0 {
		r.p.log.WithFields(r.fields).WithField("diagnostics", len(r.plan.Diagnostics)).Warn("target dependency problems")
	}
	if duplicate {
		return SkipDuplicateName
	}
	for _, d := range defs {
		expr, err := r.p.engine.Parse(d.Scope)
		if err != nil {
			r.diagnose(targets.Diagnostic{Kind: targets.DiagSyntaxError, Target: d.Name})
			return SkipSyntaxError
		}
		r.exprs[d.Name] = expr
	}
	return ""
}

func (r *request) actorAllowed() bool {
	accessor := r.p.engine.Accessor()
	for _, t := range r.action.RequiredComponents {
		if _, ok := accessor.GetComponentData(r.ctx.Actor, t); !ok {
			return false
		}
	}
	for _, t := range r.action.ForbiddenComponents {
		if _, ok := accessor.GetComponentData(r.ctx.Actor, t); ok {
			return false
		}
	}
	if r.action.Prerequisite == "" {
		return true
	}
	ok, err := r.p.engine.Evaluator().Evaluate(r.action.Prerequisite, scope.Environment(accessor, r.ctx, ""))
	if err != nil {
		r.p.log.WithFields(r.fields).Warn("prerequisite evaluation failed")
		return false
	}
	return ok
}

// resolve resolves and validates d in ctx. Validation runs immediately so
// dependents see validated sets.
func (r *request) resolve(d targets.Definition, ctx scope.Context) {
	ids := r.p.engine.Resolve(r.exprs[d.Name], ctx)
	kept, dropped := r.p.validator.Filter(ids, d.Validation, ctx)
	for range dropped {
		r.result.Diagnostics = append(r.result.Diagnostics, targets.Diagnostic{Kind: targets.DiagValidationFailure, Target: d.Name})
	}
	r.sets[d.Name] = kept
}

func (r *request) resolveIndependent() string {
	for _, d := range r.plan.Independent() {
		r.resolve(d, r.ctx)
	}
	return ""
}

func (r *request) resolveDependent() string {
	for _, d := range r.plan.Dependent() {
		ctx, ok := targets.DependentContext(r.ctx, d.ContextFrom, r.sets)
		if !ok {
			r.sets[d.Name] = nil
			continue
		}
		r.resolve(d, ctx)
	}
	return ""
}

// validate skips the action when a required definition is empty, failed
// definitions included.
func (r *request) validate() string {
	for _, d := range r.action.Definitions() {
		if d.Required && len(r.sets[d.Name]) == 0 {
			r.p.log.WithFields(r.fields).WithField("target", d.Name).Debug("required target empty")
			return SkipRequiredTarget
		}
	}
	return ""
}

// limit is the effective combination cap of a: the smallest positive
// maxCombinations of the action and its definitions, else the default,
// never above the hard limit.
func (p *Pipeline) limit(a Action) int {
	limit := 0
	consider := func(n int) {
		if n > 0 && (limit == 0 || n < limit) {
			limit = n
		}
	}
	consider(a.MaxCombinations)
	for _, d := range a.Definitions() {
		consider(d.MaxCombinations)
	}
	if limit == 0 {
		limit = p.defaultMax
	}
	return min(limit, p.hardLimit)
}

// combine builds the candidate sets in authored order. A set is enumerated
// when the action generates combinations, when its definition is multiple,
// or when it is the only definition. Other sets contribute their first
// candidate.
func (r *request) combine() string {
	defs := r.action.Definitions()
	enumerate := r.action.GenerateCombinations || len(defs) == 1
	axes := enumerate
	sets := make([]targets.Set, len(defs))
	for i, d := range defs {
		sets[i] = targets.Set{
			Name:        d.Name,
			Placeholder: d.PlaceholderName(),
			Candidates:  targets.Candidates(r.p.engine.Accessor(), r.sets[d.Name]),
		}
		axes = axes || d.Multiple
	}
	if !axes {
		r.combos = targets.First(sets)
		return ""
	}
	if !enumerate {
		for i, d := range defs {
			if !d.Multiple && len(sets[i].Candidates) > 1 {
				sets[i].Candidates = sets[i].Candidates[:1]
			}
		}
	}
	r.combos = targets.Combine(sets, r.p.limit(r.action))
	if meta := r.combos.Metadata(); meta.Overflowed() {
		overflowsTotal.Inc()
		r.p.tracer.Warn("combination overflow", logrus.Fields{
			"action_id": r.action.ID,
			"total":     meta.TotalCombinations,
			"limit":     meta.LimitedTo,
		})
	}
	return ""
}

func (r *request) format() {
	meta := r.combos.Metadata()
	for a := range r.combos.All() {
		r.result.Candidates = append(r.result.Candidates,
			targets.Format(r.action.ID, r.ctx.Actor, r.action.Template, a, meta))
	}
}

// DiscoverAll discovers every action for one actor, at most the configured
// number at a time. Results keep the order of actions. A canceled ctx stops
// scheduling further actions and is returned as the error; actions never
// started have zero Results.
func (p *Pipeline) DiscoverAll(ctx context.Context, actions []Action, sctx scope.Context) ([]Result, error) {
	results := make([]Result, len(actions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, a := range actions {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Discover(gctx, a, sctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("action discovery interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("action discovery interrupted: %w", err)
	}
	return results, nil
}

// Candidates flattens the candidates of emitted results.
func Candidates(results []Result) []targets.ActionCandidate {
	var out []targets.ActionCandidate
	for _, r := range results {
		if r.Emitted() {
			out = append(out, r.Candidates...)
		}
	}
	return out
}
