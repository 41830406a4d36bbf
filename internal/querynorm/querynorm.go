package querynorm

import (
	"github.com/roach88/uprove/internal/normalize"
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// Rules returns the query rule table in application order.
func Rules() []normalize.Rule {
	return []normalize.Rule{
		{Name: "concat-projection", Apply: resolveConcat},
		{Name: "null-propagation", Apply: propagateNull},
		{Name: "eliminate-bound-var", Apply: eliminateBoundVar},
		{Name: "min-max", Apply: collapseMinMax},
		{Name: "count-distinct", Apply: collapseCountDistinct},
		{Name: "hoist-unrelated", Apply: hoistUnrelated},
		{Name: "subsumption", Apply: subsume},
	}
}

// Normalize reduces t with the core rules and the query rules. The result
// is in core normal form.
func Normalize(s *session.Session, t uexpr.Term) (uexpr.Term, error) {
	s.BindTables(t)
	core := normalize.New(s, "core", normalize.Rules()...)
	query := normalize.New(s, "query", Rules()...)
	return normalize.Fixpoint(s, "query", t, core.Run, query)
}
