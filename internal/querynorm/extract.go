package querynorm

import (
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// hoistUnrelated moves the predicates and negations of a squashed
// product that use none of the summation's binders out of the squash:
//
//	||sum{W}(A * p)|| = p * ||sum{W}(A)||
//
// p is 0/1-valued and constant over W. Squashes are never hoisted; the
// core merges them.
func hoistUnrelated(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	sq, ok := t.(*uexpr.Squashing)
	if !ok {
		return t, false
	}
	body := sq.Body
	sum, summed := body.(*uexpr.Summation)
	if summed {
		body = sum.Body
	}
	var hoisted, rest []uexpr.Term
	for _, f := range uexpr.Factors(body) {
		if unrelated(f, sum) {
			hoisted = append(hoisted, f)
			continue
		}
		rest = append(rest, f)
	}
	if len(hoisted) == 0 || len(rest) == 0 {
		return t, false
	}
	inner := uexpr.Mul(rest...)
	if summed {
		inner = uexpr.Sum(sum.Vars, inner)
	}
	return uexpr.Mul(append(hoisted, uexpr.Squash(inner))...), true
}

// unrelated reports whether f is a predicate or a negation free of the
// binders of sum, if any.
func unrelated(f uexpr.Term, sum *uexpr.Summation) bool {
	switch f.(type) {
	case *uexpr.Predicate, *uexpr.Negation:
	default:
		return false
	}
	return sum == nil || !uexpr.IsUsingAny(f, uexpr.BoundNames(sum))
}
