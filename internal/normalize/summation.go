package normalize

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// simplifySummation drops unused binders, merges directly nested
// summations and distributes a summation over an addition, keeping in
// each addend only the binders it uses.
func simplifySummation(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	sum, ok := t.(*uexpr.Summation)
	if !ok {
		return t, false
	}

	used := uexpr.FreeVars(sum.Body)
	vars := keepUsed(sum.Vars, used)
	changed := len(vars) != len(sum.Vars)
	if len(vars) == 0 {
		return sum.Body, true
	}

	switch b := sum.Body.(type) {
	case *uexpr.Summation:
		// Binders of the outer sum shadowed by the inner one are unused
		// and already gone.
		return uexpr.Sum(append(vars, b.Vars...), b.Body), true
	case *uexpr.Addition:
		parts := make([]uexpr.Term, len(b.Items))
		for i, x := range b.Items {
			parts[i] = uexpr.Sum(keepUsed(vars, uexpr.FreeVars(x)), x)
		}
		return uexpr.Add(parts...), true
	}
	if !changed {
		return t, false
	}
	return uexpr.Sum(vars, sum.Body), true
}

func keepUsed(vars []*uexpr.Var, used *set.Set[string]) []*uexpr.Var {
	out := make([]*uexpr.Var, 0, len(vars))
	for _, v := range vars {
		if used.Contains(v.Name) {
			out = append(out, v)
		}
	}
	return out
}

// promoteSummation lifts summation factors out of a product:
// E * sum{V}(B) becomes sum{V}(E * B). Binders that clash with a variable
// free elsewhere in the product, or with another lifted binder, are
// renamed first.
func promoteSummation(s *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	p, ok := t.(*uexpr.Product)
	if !ok {
		return t, false
	}
	var sums []*uexpr.Summation
	var rest []uexpr.Term
	taken := set.New[string](8)
	for _, c := range p.Items {
		for _, n := range uexpr.FreeVars(c).Slice() {
			taken.Insert(n)
		}
		if sm, ok := c.(*uexpr.Summation); ok {
			sums = append(sums, sm)
			continue
		}
		rest = append(rest, c)
	}
	if len(sums) == 0 {
		return t, false
	}

	var binders []*uexpr.Var
	for _, sm := range sums {
		var clash []*uexpr.Var
		for _, v := range sm.Vars {
			if taken.Contains(v.Name) {
				clash = append(clash, v)
			}
		}
		if len(clash) > 0 {
			sm = uexpr.RenameBinders(sm, clash, s.Rename)
		}
		for _, v := range sm.Vars {
			taken.Insert(v.Name)
			binders = append(binders, v)
		}
		rest = append(rest, uexpr.Factors(sm.Body)...)
	}
	return uexpr.Sum(binders, uexpr.Mul(rest...)), true
}
