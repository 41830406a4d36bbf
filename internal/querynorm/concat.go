package querynorm

import (
	"slices"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// resolveConcat narrows a projection of a concatenation to the element
// that carries the column.
func resolveConcat(s *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	r, ok := t.(*uexpr.VarRef)
	if !ok || r.Var.Kind != uexpr.VarProj {
		return t, false
	}
	of := r.Var.Of()
	if of.Kind != uexpr.VarConcat {
		return t, false
	}
	for _, el := range of.Args {
		if slices.Contains(s.TupleVarSchema(el), r.Var.Name) {
			return uexpr.Ref(uexpr.Proj(r.Var.Name, el)), true
		}
	}
	return t, false
}
