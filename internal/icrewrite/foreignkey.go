package icrewrite

import (
	"maps"
	"slices"

	"github.com/roach88/uprove/internal/congruence"
	"github.com/roach88/uprove/internal/schema"
	"github.com/roach88/uprove/internal/uexpr"
)

// eliminateForeignKey removes a binder s over a referenced table when its
// key is equated to the foreign key of a row t of the referencing table
// and s is used for nothing else. The foreign key guarantees exactly one
// such row whenever the key of t is not null, so the sum over s becomes a
// non-null test on the foreign key columns of t.
func eliminateForeignKey(rw *rewriter, sc scope, t uexpr.Term) (uexpr.Term, bool) {
	sum, ok := t.(*uexpr.Summation)
	if !ok {
		return t, false
	}
	factors := uexpr.Factors(sum.Body)
	atoms := tableAtoms(factors)
	var cc *congruence.Closure
	for _, a := range atoms {
		if !isBinder(sum, a.Var) {
			continue
		}
		target, ok := rw.s.Schema().Table(a.Name)
		if !ok {
			continue
		}
		for _, ref := range rw.s.Schema().ReferencesTo(a.Name) {
			if rw.constraint != "" && rw.constraint != a.Name && rw.constraint != ref.From.Name {
				continue
			}
			if !target.IsUnique(ref.Key.RefColumns) {
				continue
			}
			if cc == nil {
				cc = congruence.Build(factors)
			}
			for _, from := range referencing(sum, sc, atoms, ref.From.Name) {
				if from.Equal(a.Var) || !followsKey(cc, ref.Key, a.Var, from) {
					continue
				}
				if out, ok := dropReferenced(rw, sum, factors, a, ref, from); ok {
					return out, true
				}
			}
		}
	}
	return t, false
}

// referencing returns the variables ranging over table that are visible
// in the body of sum, outer ones first, each group in name order.
func referencing(sum *uexpr.Summation, sc scope, atoms []*uexpr.TableAtom, table string) []*uexpr.Var {
	var out []*uexpr.Var
	for _, name := range slices.Sorted(maps.Keys(sc.tables)) {
		if sc.tables[name] == table && !isBinder(sum, uexpr.Base(name)) {
			out = append(out, uexpr.Base(name))
		}
	}
	for _, a := range atoms {
		if a.Name == table && !slices.ContainsFunc(out, a.Var.Equal) {
			out = append(out, a.Var)
		}
	}
	return out
}

func followsKey(cc *congruence.Closure, fk schema.ForeignKey, to, from *uexpr.Var) bool {
	for i, c := range fk.Columns {
		if !cc.IsCongruent(col(fk.RefColumns[i], to), col(c, from)) {
			return false
		}
	}
	return true
}

func dropReferenced(rw *rewriter, sum *uexpr.Summation, factors []uexpr.Term, atom *uexpr.TableAtom, ref schema.Reference, from *uexpr.Var) (uexpr.Term, bool) {
	i := slices.IndexFunc(factors, func(f uexpr.Term) bool { return uexpr.Equal(f, atom) })
	body := uexpr.Mul(slices.Delete(slices.Clone(factors), i, i+1)...)
	for j, c := range ref.Key.Columns {
		body = uexpr.ReplaceTerm(body, col(ref.Key.RefColumns[j], atom.Var), col(c, from), rw.s.Rename)
	}
	if uexpr.IsUsing(body, atom.Var.Name) {
		return nil, false
	}
	guards := []uexpr.Term{body}
	for _, c := range ref.Key.Columns {
		if !ref.From.IsNotNull(c) {
			guards = append(guards, uexpr.Neg(uexpr.IsNull(col(c, from))))
		}
	}
	rw.s.Logger().Debug("foreign key followed", "table", atom.Name, "var", atom.Var.String(), "from", from.String())
	return uexpr.Sum(without(sum.Vars, atom.Var), uexpr.Mul(guards...)), true
}
