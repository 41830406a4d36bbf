package querynorm

import (
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// propagateNull rewrites the factors of a product that mention a term the
// product asserts to be null. An equality with it becomes a null test of
// the other side; an ordering over it can never hold.
func propagateNull(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	p, ok := t.(*uexpr.Product)
	if !ok {
		return t, false
	}
	nulls := make(map[string]bool)
	for _, c := range p.Items {
		if pr, ok := c.(*uexpr.Predicate); ok && pr.Op == uexpr.OpIsNull && len(pr.Args) == 1 {
			nulls[uexpr.Key(pr.Args[0])] = true
		}
	}
	if len(nulls) == 0 {
		return t, false
	}

	items := make([]uexpr.Term, len(p.Items))
	changed := false
	for i, c := range p.Items {
		items[i] = c
		pr, ok := c.(*uexpr.Predicate)
		if !ok || len(pr.Args) != 2 || !pr.Op.IsComparison() {
			continue
		}
		l, r := nulls[uexpr.Key(pr.Args[0])], nulls[uexpr.Key(pr.Args[1])]
		switch {
		case pr.Op == uexpr.OpEq && l:
			items[i], changed = uexpr.IsNull(pr.Args[1]), true
		case pr.Op == uexpr.OpEq && r:
			items[i], changed = uexpr.IsNull(pr.Args[0]), true
		case pr.Op.IsOrdering() && (l || r):
			return uexpr.Const(0), true
		}
	}
	if !changed {
		return t, false
	}
	return uexpr.Mul(items...), true
}
