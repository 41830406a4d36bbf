package querynorm

import (
	"slices"

	"github.com/hashicorp/go-set/v3"

	"github.com/roach88/uprove/internal/congruence"
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// eliminateBoundVar removes a binder whose value is fixed by the
// equalities of the summation body.
//
// A binder equated as a whole to some term is substituted by it. A binder
// used only through projections is eliminated when every attribute of its
// tuple schema is equated to a term, or asserted null; when only some
// are, it is replaced by a fresh binder over the remaining attributes.
func eliminateBoundVar(s *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	sum, ok := t.(*uexpr.Summation)
	if !ok {
		return t, false
	}
	factors := uexpr.Factors(sum.Body)
	cc := congruence.Build(factors)
	bound := uexpr.BoundNames(sum)
	for _, v := range sum.Vars {
		if out, ok := eliminateWhole(s, sum, v, cc, bound); ok {
			return out, true
		}
		if out, ok := eliminateAttrs(s, sum, v, factors, cc, bound); ok {
			return out, true
		}
	}
	return t, false
}

func without(vars []*uexpr.Var, v *uexpr.Var) []*uexpr.Var {
	return slices.DeleteFunc(slices.Clone(vars), func(o *uexpr.Var) bool { return o.Name == v.Name })
}

// pick returns the best member of class not using v: literals first, then
// terms free of the summation's binders, then the rest.
func pick(class []uexpr.Term, v *uexpr.Var, bound *set.Set[string]) (uexpr.Term, bool) {
	var best uexpr.Term
	bestRank := 3
	for _, c := range class {
		if uexpr.IsUsing(c, v.Name) || uexpr.IsNullConst(c) {
			continue
		}
		rank := 2
		switch {
		case uexpr.IsLiteral(c):
			rank = 0
		case !uexpr.IsUsingAny(c, bound):
			rank = 1
		}
		if rank < bestRank {
			best, bestRank = c, rank
		}
	}
	return best, best != nil
}

func eliminateWhole(s *session.Session, sum *uexpr.Summation, v *uexpr.Var, cc *congruence.Closure, bound *set.Set[string]) (uexpr.Term, bool) {
	cand, ok := pick(cc.EqClassOf(uexpr.Ref(v)), v, bound)
	if !ok {
		return nil, false
	}
	var body uexpr.Term
	if r, isRef := cand.(*uexpr.VarRef); isRef && r.Var.Kind != uexpr.VarProj {
		body = uexpr.ReplaceVar(sum.Body, v, r.Var, s.Rename)
	} else {
		body = uexpr.ReplaceTerm(sum.Body, uexpr.Ref(v), cand, s.Rename)
	}
	if uexpr.IsUsing(body, v.Name) {
		return nil, false
	}
	s.Logger().Debug("bound variable eliminated", "var", v.String(), "value", cand.String())
	return uexpr.Sum(without(sum.Vars, v), body), true
}

func eliminateAttrs(s *session.Session, sum *uexpr.Summation, v *uexpr.Var, factors []uexpr.Term, cc *congruence.Closure, bound *set.Set[string]) (uexpr.Term, bool) {
	attrs := s.TupleVarSchema(v)
	if len(attrs) == 0 || !projectionsOnly(sum.Body, v.Name) {
		return nil, false
	}
	nulls := make(map[string]bool)
	for _, f := range factors {
		if p, ok := f.(*uexpr.Predicate); ok && p.Op == uexpr.OpIsNull {
			nulls[uexpr.Key(p.Args[0])] = true
		}
	}

	body := sum.Body
	var rest []string
	for _, a := range attrs {
		ref := uexpr.Ref(uexpr.Proj(a, v))
		var cand uexpr.Term
		if nulls[uexpr.Key(ref)] {
			cand = uexpr.Null()
		} else if c, ok := pick(cc.EqClassOf(ref), v, bound); ok {
			cand = c
		}
		if cand == nil {
			rest = append(rest, a)
			continue
		}
		body = uexpr.ReplaceTerm(body, ref, cand, s.Rename)
	}
	switch {
	case len(rest) == len(attrs):
		return nil, false
	case len(rest) == 0:
		if uexpr.IsUsing(body, v.Name) {
			return nil, false
		}
		s.Logger().Debug("bound variable eliminated by attributes", "var", v.String())
		return uexpr.Sum(without(sum.Vars, v), body), true
	}
	w := s.FreshEqVar()
	s.PutTupleVarSchema(w, rest)
	body = uexpr.ReplaceVar(body, v, w, s.Rename)
	s.Logger().Debug("bound variable narrowed", "var", v.String(), "to", w.String(), "attrs", rest)
	return uexpr.Sum(append(without(sum.Vars, v), w), body), true
}

// projectionsOnly reports whether every free occurrence of the base
// variable name in t is the direct argument of a projection.
func projectionsOnly(t uexpr.Term, name string) bool {
	switch n := t.(type) {
	case *uexpr.TableAtom:
		return !n.Var.Uses(name)
	case *uexpr.VarRef:
		if n.Var.Kind == uexpr.VarProj && n.Var.Of().Kind == uexpr.VarBase {
			return true
		}
		return !n.Var.Uses(name)
	case *uexpr.Summation:
		if slices.ContainsFunc(n.Vars, func(b *uexpr.Var) bool { return b.Name == name }) {
			return true
		}
	}
	for _, c := range uexpr.SubTerms(t) {
		if !projectionsOnly(c, name) {
			return false
		}
	}
	return true
}
