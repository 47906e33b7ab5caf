package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/suderio/scopedsl/internal/action"
	"github.com/suderio/scopedsl/internal/cache"
	"github.com/suderio/scopedsl/internal/config"
	"github.com/suderio/scopedsl/internal/diag"
	"github.com/suderio/scopedsl/internal/logger"
	"github.com/suderio/scopedsl/internal/parser"
	"github.com/suderio/scopedsl/internal/predicate"
	"github.com/suderio/scopedsl/internal/scope"
	"github.com/suderio/scopedsl/internal/targets"
	"github.com/suderio/scopedsl/internal/world"
)

// Session wires a loaded world and action catalog to a scope engine, its
// caches and the action pipeline.
type Session struct {
	cfg         *config.Config
	store       *world.Store
	catalog     *action.Catalog
	eval        predicate.Evaluator
	asts        *cache.ASTs
	results     *cache.Resolutions
	engine      *scope.Engine
	pipeline    *action.Pipeline
	tracer      diag.Tracer
	log         logrus.FieldLogger
	unsubscribe func()
	actor       string
}

// Option configures a Session.
type Option func(*Session)

// WithTracer adds t to the diagnostics of every resolution.
func WithTracer(t diag.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// WithCatalog uses c instead of an empty action catalog.
func WithCatalog(c *action.Catalog) Option {
	return func(s *Session) { s.catalog = c }
}

// NewSession bootstraps a session over store with the given configuration.
func NewSession(cfg *config.Config, store *world.Store, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:     cfg,
		store:   store,
		catalog: &action.Catalog{},
		log:     logger.For("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	tracer := diag.Tracer(diag.NewLogger(s.log))
	if s.tracer != nil {
		tracer = diag.Multi{tracer, s.tracer}
	}

	vocab, err := cfg.Vocabulary()
	if err != nil {
		return nil, err
	}
	eval, err := predicate.New(cfg.Predicate.Engine)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize predicate engine: %w", err)
	}
	s.eval = eval

	p := parser.New(parser.WithLimits(cfg.Limits.Limits), parser.WithKeys(vocab.IsKey))
	s.asts = cache.NewASTs(p)
	engineOpts := []scope.Option{
		scope.WithVocabulary(vocab),
		scope.WithParser(p),
		scope.WithASTCache(s.asts),
		scope.WithTracer(tracer),
		scope.WithMaxCandidates(cfg.Limits.MaxCandidates),
	}
	if cfg.Cache.Enabled {
		s.results = cache.NewResolutions()
		s.unsubscribe = s.results.Attach(store)
		engineOpts = append(engineOpts, scope.WithResolutionCache(s.results))
	}
	s.engine = scope.New(store, eval, engineOpts...)
	s.pipeline = action.NewPipeline(s.engine,
		action.WithTracer(tracer),
		action.WithCombinationLimits(cfg.Limits.DefaultMaxCombinations, cfg.Limits.HardCombinationLimit),
		action.WithConcurrency(cfg.Concurrency),
	)
	return s, nil
}

// Load bootstraps a session from a world reference and an optional action
// reference, both searched in the configured data directories.
func Load(cfg *config.Config, worldRef, actionsRef string, opts ...Option) (*Session, error) {
	store, err := world.NewLoader(cfg.DataDirs).Load(worldRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load world: %w", err)
	}
	if actionsRef != "" {
		catalog, err := action.NewLoader(cfg.DataDirs).Load(actionsRef)
		if err != nil {
			return nil, fmt.Errorf("failed to load actions: %w", err)
		}
		opts = append(opts, WithCatalog(catalog))
	}
	return NewSession(cfg, store, opts...)
}

// Close detaches the cache and releases the predicate engine.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if closer, ok := s.eval.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Store returns the world store.
func (s *Session) Store() *world.Store { return s.store }

// Engine returns the scope engine.
func (s *Session) Engine() *scope.Engine { return s.engine }

// Pipeline returns the action pipeline.
func (s *Session) Pipeline() *action.Pipeline { return s.pipeline }

// Catalog returns the loaded actions.
func (s *Session) Catalog() *action.Catalog { return s.catalog }

// Actor returns the default actor of Execute.
func (s *Session) Actor() string { return s.actor }

// SetActor changes the default actor of Execute.
func (s *Session) SetActor(id string) error {
	if !s.store.HasEntity(id) {
		return fmt.Errorf("unknown entity %s", id)
	}
	s.actor = id
	return nil
}

// Context builds the resolution context of actorID, with target bound when
// not empty.
func (s *Session) Context(actorID, target string, underwear bool) scope.Context {
	ctx := scope.NewContext(s.store, actorID)
	if target != "" {
		ctx = ctx.WithTarget(target)
	}
	ctx.Permissions.Underwear = underwear
	return ctx
}

// Resolve resolves expression text for actorID. The only error is a syntax
// error, mapped to a user-facing hint.
func (s *Session) Resolve(actorID, text string, ctx scope.Context) ([]targets.Candidate, error) {
	if !s.store.HasEntity(actorID) {
		return nil, fmt.Errorf("unknown entity %s", actorID)
	}
	ids, err := s.engine.ResolveText(text, ctx)
	if err != nil {
		return nil, parser.MapError(err)
	}
	return targets.Candidates(s.store, ids), nil
}

// Actions discovers every catalog action for actorID.
func (s *Session) Actions(ctx context.Context, actorID string) ([]action.Result, error) {
	if !s.store.HasEntity(actorID) {
		return nil, fmt.Errorf("unknown entity %s", actorID)
	}
	return s.pipeline.DiscoverAll(ctx, s.catalog.Actions, scope.NewContext(s.store, actorID))
}

// Stats reports cache sizes for the REPL status box.
func (s *Session) Stats() (entities, asts, results int) {
	entities = len(s.store.EntityIDs())
	if s.results != nil {
		results = s.results.Len()
	}
	return entities, s.asts.Len(), results
}

// Execute runs one REPL line and returns the lines to print.
func (s *Session) Execute(ctx context.Context, input string) ([]string, error) {
	in := ParseInput(input)
	actor := in.ActorID
	if actor == "" {
		actor = s.actor
	}
	switch in.Command {
	case "":
		return nil, nil
	case "help":
		return helpLines, nil
	case "actor":
		if in.Text == "" {
			return []string{"actor: " + s.actor}, nil
		}
		if err := s.SetActor(in.Text); err != nil {
			return nil, err
		}
		return []string{"actor set to " + in.Text}, nil
	case "entities":
		return s.store.EntityIDs(), nil
	case "fields":
		return s.engine.Registry().Names(), nil
	case "resolve":
		if actor == "" {
			return nil, fmt.Errorf("no actor: use 'actor <id>' or 'by: <id>'")
		}
		cands, err := s.Resolve(actor, in.Text, s.Context(actor, in.Target, in.Underwear))
		if err != nil {
			return nil, err
		}
		if len(cands) == 0 {
			return []string{"(no candidates)"}, nil
		}
		out := make([]string, len(cands))
		for i, c := range cands {
			out[i] = fmt.Sprintf("%s (%s)", c.ID, c.DisplayName)
		}
		return out, nil
	case "actions":
		if actor == "" {
			return nil, fmt.Errorf("no actor: use 'actor <id>' or 'by: <id>'")
		}
		results, err := s.Actions(ctx, actor)
		if err != nil {
			return nil, err
		}
		return describe(results), nil
	}
	return nil, fmt.Errorf("unknown command %s, try 'help'", in.Command)
}

var helpLines = []string{
	"actor <id>                        set the default actor",
	"resolve [by: <id>] [target: <id>] [underwear: yes] <expression>",
	"actions [by: <id>]                discover action candidates",
	"entities                          list entity ids",
	"fields                            list registered clothing fields",
	"exit                              leave",
}

func describe(results []action.Result) []string {
	var out []string
	sort.SliceStable(results, func(i, j int) bool { return results[i].ActionID < results[j].ActionID })
	for _, r := range results {
		if !r.Emitted() {
			out = append(out, fmt.Sprintf("%s: skipped (%s)", r.ActionID, r.Reason))
			continue
		}
		for _, c := range r.Candidates {
			line := c.Command
			if c.Metadata.Overflowed() {
				line += fmt.Sprintf("  [%d of %d]", c.Metadata.LimitedTo, c.Metadata.TotalCombinations)
			}
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return []string{"(no actions)"}
	}
	return out
}
