package icrewrite

import "github.com/roach88/uprove/internal/uexpr"

// removeNullTest folds [isnull(c(t))] to 0 when t ranges over a table
// that declares c not null.
func removeNullTest(rw *rewriter, sc scope, t uexpr.Term) (uexpr.Term, bool) {
	p, ok := t.(*uexpr.Predicate)
	if !ok || p.Op != uexpr.OpIsNull {
		return t, false
	}
	ref, ok := p.Args[0].(*uexpr.VarRef)
	if !ok || ref.Var.Kind != uexpr.VarProj || ref.Var.Of().Kind != uexpr.VarBase {
		return t, false
	}
	name, ok := sc.tables[ref.Var.Of().Name]
	if !ok {
		return t, false
	}
	tbl, ok := rw.table(name)
	if !ok || !tbl.IsNotNull(ref.Var.Name) {
		return t, false
	}
	return uexpr.Const(0), true
}
