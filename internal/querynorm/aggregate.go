package querynorm

import (
	"slices"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// Aggregate names produced by collapseMinMax and collapseCountDistinct.
// The aggregated set is written sum{W}(body * value(e)), the convention
// shared with the translator for every aggregate. COUNT(DISTINCT e) is
// count(||sum{W}(body * value(e))||).
const (
	AggMax   = "max"
	AggMin   = "min"
	AggCount = "count"
	AggValue = "value"
)

// extremum is a summation over W whose body is rest * [distinguished
// factor], where the distinguished factor relates e to an outer term.
type extremum struct {
	vars []*uexpr.Var
	rest []uexpr.Term
	e    uexpr.Term
}

// aggregated returns sum{W}(rest * value(e)).
func (x extremum) aggregated() uexpr.Term {
	return uexpr.Sum(x.vars, uexpr.Mul(append(slices.Clone(x.rest), uexpr.Fn(AggValue, x.e))...))
}

// witness is an [v = e] factor found in a squashed summation.
type witness struct {
	v   uexpr.Term
	ext extremum
}

// collapseMinMax recognizes, among the factors of a product,
//
//	||sum{W}(A * [v = e])|| * not(sum{W}(A * [e > v]))
//
// which holds exactly when v is the largest e over A, and replaces the pair
// with [v = max(sum{W}(A * value(e)))]. The [e < v] form yields min.
func collapseMinMax(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	p, ok := t.(*uexpr.Product)
	if !ok {
		return t, false
	}
	for i, c := range p.Items {
		sq, ok := c.(*uexpr.Squashing)
		if !ok {
			continue
		}
		sum, ok := sq.Body.(*uexpr.Summation)
		if !ok {
			continue
		}
		for _, w := range witnesses(sum) {
			for j, d := range p.Items {
				ng, ok := d.(*uexpr.Negation)
				if !ok {
					continue
				}
				agg, ok := bounding(ng, w)
				if !ok {
					continue
				}
				items := make([]uexpr.Term, 0, len(p.Items)-1)
				for k, x := range p.Items {
					if k != i && k != j {
						items = append(items, x)
					}
				}
				items = append(items, uexpr.Eq(w.v, uexpr.Fn(agg, w.ext.aggregated())))
				return uexpr.Mul(items...), true
			}
		}
	}
	return t, false
}

// collapseCountDistinct recognizes
//
//	sum{v}(||sum{W}(A * [v = e])||)
//
// which counts the distinct non-NULL values of e over A, and replaces it
// with count(||sum{W}(A * value(e))||).
func collapseCountDistinct(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	outer, ok := t.(*uexpr.Summation)
	if !ok || len(outer.Vars) != 1 || outer.Vars[0].Kind != uexpr.VarBase {
		return t, false
	}
	v := outer.Vars[0]
	sq, ok := outer.Body.(*uexpr.Squashing)
	if !ok {
		return t, false
	}
	sum, ok := sq.Body.(*uexpr.Summation)
	if !ok {
		return t, false
	}
	for _, w := range witnesses(sum) {
		r, ok := w.v.(*uexpr.VarRef)
		if !ok || !r.Var.Equal(v) {
			continue
		}
		if uexpr.IsUsing(w.ext.e, v.Name) || slices.ContainsFunc(w.ext.rest, func(f uexpr.Term) bool { return uexpr.IsUsing(f, v.Name) }) {
			continue
		}
		return uexpr.Fn(AggCount, uexpr.Squash(w.ext.aggregated())), true
	}
	return t, false
}

// witnesses lists the [v = e] factors of sum where only e uses the
// binders.
func witnesses(sum *uexpr.Summation) []witness {
	bound := uexpr.BoundNames(sum)
	factors := uexpr.Factors(sum.Body)
	var out []witness
	for i, f := range factors {
		p, ok := f.(*uexpr.Predicate)
		if !ok || p.Op != uexpr.OpEq {
			continue
		}
		v, e := p.Args[0], p.Args[1]
		uv, ue := uexpr.IsUsingAny(v, bound), uexpr.IsUsingAny(e, bound)
		if uv == ue {
			continue
		}
		if uv {
			v, e = e, v
		}
		out = append(out, witness{v: v, ext: extremum{vars: sum.Vars, rest: dropAt(factors, i), e: e}})
	}
	return out
}

// bounding reports whether ng is not(sum{W}(A * [e > v])) over the same
// rows as w, and which aggregate the comparison selects.
func bounding(ng *uexpr.Negation, w witness) (string, bool) {
	sum, ok := ng.Body.(*uexpr.Summation)
	if !ok {
		return "", false
	}
	bound := uexpr.BoundNames(sum)
	factors := uexpr.Factors(sum.Body)
	vkey := uexpr.Key(w.v)
	for i, f := range factors {
		p, ok := f.(*uexpr.Predicate)
		if !ok || (p.Op != uexpr.OpGt && p.Op != uexpr.OpLt) {
			continue
		}
		e, v := p.Args[0], p.Args[1]
		greater := p.Op == uexpr.OpGt
		if uexpr.Key(e) == vkey {
			e, v = v, e
			greater = !greater
		}
		if uexpr.Key(v) != vkey || !uexpr.IsUsingAny(e, bound) {
			continue
		}
		other := extremum{vars: sum.Vars, rest: dropAt(factors, i), e: e}
		if !uexpr.Equal(w.ext.aggregated(), other.aggregated()) {
			continue
		}
		if greater {
			return AggMax, true
		}
		return AggMin, true
	}
	return "", false
}

func dropAt(ts []uexpr.Term, i int) []uexpr.Term {
	out := make([]uexpr.Term, 0, len(ts)-1)
	out = append(out, ts[:i]...)
	return append(out, ts[i+1:]...)
}
