package normalize

import (
	"fmt"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// Rule is a single rewrite. Apply returns the rewritten term and true, or
// its argument and false when the rule does not apply. Rules must not
// report a change for a term they return unchanged.
type Rule struct {
	Name  string
	Apply func(s *session.Session, t uexpr.Term) (uexpr.Term, bool)
}

// Normalizer runs a rule table to a fixed point.
type Normalizer struct {
	s     *session.Session
	loop  string
	rules []Rule
}

// New creates a normalizer for the named loop.
func New(s *session.Session, loop string, rules ...Rule) *Normalizer {
	return &Normalizer{s: s, loop: loop, rules: rules}
}

// Normalize reduces t to normal form with the core rules.
func Normalize(s *session.Session, t uexpr.Term) (uexpr.Term, error) {
	return New(s, "core", Rules()...).Run(t)
}

// Run applies Pass until nothing changes. The result is sorted with
// uexpr.SortCommAssoc.
func (n *Normalizer) Run(t uexpr.Term) (out uexpr.Term, err error) {
	defer Recover(&err)

	budget := NewBudget(n.loop, n.s.MaxIterations())
	osc := NewOscillationDetector()
	t = uexpr.SortCommAssoc(t)
	osc.Record(t)

	for {
		if err := budget.Check(); err != nil {
			n.s.Logger().Warn("normalization budget exhausted", "loop", n.loop, "passes", budget.Passes())
			return nil, err
		}
		next, changed := n.Pass(t)
		if !changed {
			n.s.Logger().Debug("fixed point reached", "loop", n.loop, "pass", budget.Passes())
			return t, nil
		}
		next = uexpr.SortCommAssoc(next)
		if osc.Record(next) {
			return nil, &NormalizeError{
				Code:    ErrCodeOscillation,
				Rule:    n.loop,
				Term:    next,
				Message: fmt.Sprintf("term repeated after %d passes", budget.Passes()),
			}
		}
		t = next
	}
}

// Pass rewrites the children of t, then applies every rule at the root in
// table order. It reports whether anything changed.
func (n *Normalizer) Pass(t uexpr.Term) (uexpr.Term, bool) {
	changed := false
	if children := uexpr.SubTerms(t); len(children) > 0 {
		next := make([]uexpr.Term, len(children))
		for i, c := range children {
			var ch bool
			next[i], ch = n.Pass(c)
			changed = changed || ch
		}
		if changed {
			t = uexpr.Rebuild(t, next)
		}
	}
	for _, r := range n.rules {
		out, ok := n.apply(r, t)
		if !ok {
			continue
		}
		n.s.Logger().Debug("rule fired", "loop", n.loop, "rule", r.Name, "kind", t.Kind().String())
		t, changed = out, true
	}
	return t, changed
}

// apply runs r on t. A *uexpr.ShapeError raised inside the rule is
// re-raised as a shape violation naming r and t.
func (n *Normalizer) apply(r Rule, t uexpr.Term) (uexpr.Term, bool) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if se, ok := p.(*uexpr.ShapeError); ok {
			panic(&NormalizeError{Code: ErrCodeShapeViolation, Rule: r.Name, Term: t, Message: se.Message})
		}
		panic(p)
	}()
	return r.Apply(n.s, t)
}

// Passer performs one rewriting pass over a term.
type Passer interface {
	Pass(t uexpr.Term) (uexpr.Term, bool)
}

// Fixpoint alternates inner, run to its own fixed point, with one pass of
// outer until the pass changes nothing. It is the driver of the loops
// layered on the core normalizer.
func Fixpoint(s *session.Session, loop string, t uexpr.Term, inner func(uexpr.Term) (uexpr.Term, error), outer Passer) (out uexpr.Term, err error) {
	defer Recover(&err)

	budget := NewBudget(loop, s.MaxIterations())
	osc := NewOscillationDetector()
	for {
		if err := budget.Check(); err != nil {
			s.Logger().Warn("normalization budget exhausted", "loop", loop, "passes", budget.Passes())
			return nil, err
		}
		if t, err = inner(t); err != nil {
			return nil, err
		}
		next, changed := outer.Pass(t)
		if !changed {
			s.Logger().Debug("fixed point reached", "loop", loop, "pass", budget.Passes())
			return t, nil
		}
		next = uexpr.SortCommAssoc(next)
		if osc.Record(next) {
			return nil, &NormalizeError{
				Code:    ErrCodeOscillation,
				Rule:    loop,
				Term:    next,
				Message: fmt.Sprintf("term repeated after %d passes", budget.Passes()),
			}
		}
		t = next
	}
}
