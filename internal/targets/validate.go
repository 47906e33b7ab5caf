package targets

import (
	"github.com/sirupsen/logrus"

	"github.com/suderio/scopedsl/internal/diag"
	"github.com/suderio/scopedsl/internal/predicate"
	"github.com/suderio/scopedsl/internal/scope"
)

// Validator applies target validation predicates.
type Validator struct {
	accessor scope.Accessor
	eval     predicate.Evaluator
	tracer   diag.Tracer
}

// NewValidator builds a Validator. tracer may be nil.
func NewValidator(accessor scope.Accessor, eval predicate.Evaluator, tracer diag.Tracer) *Validator {
	if tracer == nil {
		tracer = diag.Nop{}
	}
	return &Validator{accessor: accessor, eval: eval, tracer: tracer}
}

// Filter keeps the candidates for which pred holds in ctx with the
// candidate bound as entity and target. Evaluation errors count as false.
// Dropped candidates are returned in order.
func (v *Validator) Filter(candidates []string, pred string, ctx scope.Context) (kept, dropped []string) {
	if pred == "" {
		return candidates, nil
	}
	for _, id := range candidates {
		ok, err := v.eval.Evaluate(pred, scope.Environment(v.accessor, ctx, id))
		if err != nil || !ok {
			dropped = append(dropped, id)
			v.tracer.Warn(DiagValidationFailure, logrus.Fields{"actor_id": ctx.Actor, "candidate_id": id})
			continue
		}
		kept = append(kept, id)
	}
	return kept, dropped
}

// DependentContext derives the context of a definition resolved after dep:
// target is dep's first candidate and targets holds every set so far.
func DependentContext(base scope.Context, dep string, sets map[string][]string) (scope.Context, bool) {
	ids := sets[dep]
	if len(ids) == 0 {
		return base, false
	}
	return base.WithTarget(ids[0]).WithTargets(sets), true
}
