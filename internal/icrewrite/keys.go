package icrewrite

import (
	"slices"
	"strings"

	"github.com/roach88/uprove/internal/congruence"
	"github.com/roach88/uprove/internal/normalize"
	"github.com/roach88/uprove/internal/schema"
	"github.com/roach88/uprove/internal/uexpr"
)

// selfJoin identifies two variables over the same table when the body
// equates them on every column of a unique key. At least one of them must
// be a binder of the summation; it is the one removed.
//
// NULL never equals NULL, so the identified row must be non-null on every
// nullable key column; those columns get a not([isnull(c)]) guard. The
// equalities left reflexive on NOT NULL key columns always hold and are
// dropped.
func selfJoin(rw *rewriter, _ scope, t uexpr.Term) (uexpr.Term, bool) {
	sum, ok := t.(*uexpr.Summation)
	if !ok {
		return t, false
	}
	factors := uexpr.Factors(sum.Body)
	atoms := tableAtoms(factors)
	if len(atoms) < 2 {
		return t, false
	}
	cc := congruence.Build(factors)
	for i, a := range atoms {
		tbl, ok := rw.table(a.Name)
		if !ok || !tbl.HasKey() {
			continue
		}
		for _, b := range atoms[i+1:] {
			if b.Name != a.Name || b.Var.Equal(a.Var) {
				continue
			}
			keep, drop := a.Var, b.Var
			if !isBinder(sum, drop) {
				keep, drop = drop, keep
			}
			if !isBinder(sum, drop) {
				continue
			}
			key, ok := sameKey(cc, tbl.UniqueKeys(), keep, drop)
			if !ok {
				continue
			}
			body := uexpr.ReplaceVar(sum.Body, drop, keep, rw.s.Rename)
			factors := dedupAtom(uexpr.Factors(body), uexpr.Table(a.Name, keep))
			factors = slices.DeleteFunc(factors, func(f uexpr.Term) bool {
				return reflexiveNotNull(f, tbl, key, keep)
			})
			for _, c := range key {
				if !tbl.IsNotNull(c) {
					factors = append(factors, uexpr.Neg(uexpr.IsNull(col(c, keep))))
				}
			}
			body = uexpr.Mul(factors...)
			rw.s.Logger().Debug("self-join removed", "table", a.Name, "var", drop.String(), "into", keep.String())
			return uexpr.Sum(without(sum.Vars, drop), body), true
		}
	}
	return t, false
}

// sameKey returns the first key on whose every column a and b agree.
func sameKey(cc *congruence.Closure, keys [][]string, a, b *uexpr.Var) ([]string, bool) {
	for _, k := range keys {
		if !slices.ContainsFunc(k, func(c string) bool { return !cc.IsCongruent(col(c, a), col(c, b)) }) {
			return k, true
		}
	}
	return nil, false
}

// reflexiveNotNull reports whether f is [c(v) = c(v)] for a NOT NULL
// column c of key.
func reflexiveNotNull(f uexpr.Term, tbl *schema.Table, key []string, v *uexpr.Var) bool {
	p, ok := f.(*uexpr.Predicate)
	if !ok || p.Op != uexpr.OpEq || uexpr.Key(p.Args[0]) != uexpr.Key(p.Args[1]) {
		return false
	}
	for _, c := range key {
		if tbl.IsNotNull(c) && uexpr.Key(p.Args[0]) == uexpr.Key(col(c, v)) {
			return true
		}
	}
	return false
}

// dedupAtom keeps the first occurrence of atom among factors. A keyed
// table holds each row at most once, so the square of its atom is the
// atom.
func dedupAtom(factors []uexpr.Term, atom *uexpr.TableAtom) []uexpr.Term {
	seen := false
	return slices.DeleteFunc(slices.Clone(factors), func(f uexpr.Term) bool {
		if !uexpr.Equal(f, atom) {
			return false
		}
		if seen {
			return true
		}
		seen = true
		return false
	})
}

// pinned returns the first of keys whose every column, projected from v,
// is congruent to a term accepted by ok, together with those terms.
func pinned(cc *congruence.Closure, keys [][]string, v *uexpr.Var, ok func(uexpr.Term) bool) ([]string, []uexpr.Term, bool) {
	for _, k := range keys {
		vals := make([]uexpr.Term, 0, len(k))
		for _, c := range k {
			i := slices.IndexFunc(cc.EqClassOf(col(c, v)), ok)
			if i < 0 {
				break
			}
			vals = append(vals, cc.EqClassOf(col(c, v))[i])
		}
		if len(vals) == len(k) {
			return k, vals, true
		}
	}
	return nil, nil, false
}

// insertSquash wraps a summation in a squash when it counts at most one
// row: every factor is 0/1-valued or an atom of a keyed table, and every
// binder ranges over a keyed table whose key is equated to terms from
// outside the summation.
func insertSquash(rw *rewriter, sc scope, t uexpr.Term) (uexpr.Term, bool) {
	sum, ok := t.(*uexpr.Summation)
	if !ok || sc.positive {
		return t, false
	}
	factors := uexpr.Factors(sum.Body)
	for _, f := range factors {
		if a, ok := f.(*uexpr.TableAtom); ok {
			if tbl, ok := rw.table(a.Name); ok && tbl.HasKey() {
				continue
			}
			return t, false
		}
		if !normalize.IsIndicator(f) {
			return t, false
		}
	}
	cc := congruence.Build(factors)
	bound := uexpr.BoundNames(sum)
	outside := func(m uexpr.Term) bool { return !uexpr.IsUsingAny(m, bound) }
	for _, v := range sum.Vars {
		// Binders pinned to literals are left to removeOneRecord.
		if binderPinned(rw, cc, factors, v, uexpr.IsLiteral) || !binderPinned(rw, cc, factors, v, outside) {
			return t, false
		}
	}
	rw.s.Logger().Debug("squash inserted", "vars", len(sum.Vars))
	return uexpr.Squash(sum), true
}

func binderPinned(rw *rewriter, cc *congruence.Closure, factors []uexpr.Term, v *uexpr.Var, ok func(uexpr.Term) bool) bool {
	for _, a := range tableAtoms(factors) {
		if !a.Var.Equal(v) {
			continue
		}
		if tbl, found := rw.table(a.Name); found {
			if _, _, pin := pinned(cc, tbl.UniqueKeys(), v, ok); pin {
				return true
			}
		}
	}
	return false
}

// removeOneRecord replaces a binder whose unique key is equated to
// literals by the fresh variable standing for that row. The variable is
// minted once per table and key values and registered with the session.
func removeOneRecord(rw *rewriter, _ scope, t uexpr.Term) (uexpr.Term, bool) {
	sum, ok := t.(*uexpr.Summation)
	if !ok {
		return t, false
	}
	factors := uexpr.Factors(sum.Body)
	var cc *congruence.Closure
	for _, a := range tableAtoms(factors) {
		if !isBinder(sum, a.Var) {
			continue
		}
		tbl, ok := rw.table(a.Name)
		if !ok || !tbl.HasKey() {
			continue
		}
		if cc == nil {
			cc = congruence.Build(factors)
		}
		key, vals, ok := pinned(cc, tbl.UniqueKeys(), a.Var, uexpr.IsLiteral)
		if !ok {
			continue
		}
		r := rw.representative(tbl.Name, tbl.ColumnNames(), key, vals)
		body := uexpr.ReplaceVar(sum.Body, a.Var, r, rw.s.Rename)
		rw.s.Logger().Debug("one-record sum removed", "table", tbl.Name, "var", a.Var.String(), "row", r.String())
		return uexpr.Sum(without(sum.Vars, a.Var), body), true
	}
	return t, false
}

// representative returns the variable registered for the row of table
// whose key columns hold vals, minting it on first use.
func (rw *rewriter) representative(table string, columns, key []string, vals []uexpr.Term) *uexpr.Var {
	var b strings.Builder
	b.WriteString(table)
	for i, c := range key {
		b.WriteString("|")
		b.WriteString(c)
		b.WriteString("=")
		b.WriteString(uexpr.Key(vals[i]))
	}
	id := b.String()
	if v, ok := rw.s.LookupFresh(id); ok {
		return v
	}
	v := rw.s.FreshBaseVar()
	rw.s.PutTupleVarSchema(v, columns)
	rw.s.RecordFresh(id, v)
	return v
}
