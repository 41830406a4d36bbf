package normalize

import (
	"slices"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// IsIndicator reports whether t is 0/1-valued by construction.
func IsIndicator(t uexpr.Term) bool {
	switch n := t.(type) {
	case *uexpr.Predicate, *uexpr.Squashing, *uexpr.Negation:
		return true
	case *uexpr.Constant:
		return !n.Null && (n.Value == 0 || n.Value == 1)
	case *uexpr.Product:
		for _, c := range n.Items {
			if !IsIndicator(c) {
				return false
			}
		}
		return true
	}
	return false
}

func isPositiveConst(t uexpr.Term) bool {
	c, ok := t.(*uexpr.Constant)
	return ok && !c.Null && c.Value > 0
}

// Activate simplifies t on the assumption that only its positivity
// matters, as under a squash or a negation. Nested squashes are unwrapped
// through additions, products and summations, positive constant and
// repeated factors are dropped, and an addition with a positive constant
// becomes 1. Bodies
// of negations are left alone.
func Activate(t uexpr.Term) (uexpr.Term, bool) {
	switch n := t.(type) {
	case *uexpr.Squashing:
		inner, _ := Activate(n.Body)
		return inner, true
	case *uexpr.Addition:
		items, changed := activateAll(n.Items)
		for _, c := range items {
			if isPositiveConst(c) {
				return uexpr.Const(1), true
			}
		}
		if !changed {
			return t, false
		}
		return uexpr.Add(items...), true
	case *uexpr.Product:
		items, changed := activateAll(n.Items)
		kept := items[:0:0]
		for _, c := range items {
			if isPositiveConst(c) || slices.ContainsFunc(kept, func(k uexpr.Term) bool { return uexpr.Equal(k, c) }) {
				changed = true
				continue
			}
			kept = append(kept, c)
		}
		if !changed {
			return t, false
		}
		return uexpr.Mul(kept...), true
	case *uexpr.Summation:
		body, changed := Activate(n.Body)
		if !changed {
			return t, false
		}
		return uexpr.Sum(n.Vars, body), true
	}
	return t, false
}

func activateAll(items []uexpr.Term) ([]uexpr.Term, bool) {
	out := make([]uexpr.Term, len(items))
	changed := false
	for i, c := range items {
		var ch bool
		out[i], ch = Activate(c)
		changed = changed || ch
	}
	return out, changed
}

// simplifySquash removes squashes that are redundant: nested ones, those
// over 0/1-valued bodies and those over exclusive literal equalities.
func simplifySquash(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	sq, ok := t.(*uexpr.Squashing)
	if !ok {
		return t, false
	}
	body, changed := Activate(sq.Body)
	if IsIndicator(body) || exclusiveLiteralEqs(body) {
		return body, true
	}
	if !changed {
		return t, false
	}
	return uexpr.Squash(body), true
}

// simplifyNegation unwraps positivity-preserving structure under a
// negation, turns a double negation into a squash, and pushes negation
// through an addition.
func simplifyNegation(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	ng, ok := t.(*uexpr.Negation)
	if !ok {
		return t, false
	}
	body, changed := Activate(ng.Body)
	switch b := body.(type) {
	case *uexpr.Negation:
		return uexpr.Squash(b.Body), true
	case *uexpr.Addition:
		negs := make([]uexpr.Term, len(b.Items))
		for i, c := range b.Items {
			negs[i] = uexpr.Neg(c)
		}
		return uexpr.Mul(negs...), true
	}
	if !changed {
		return t, false
	}
	return uexpr.Neg(body), true
}
