package normalize

import (
	"slices"

	"github.com/roach88/uprove/internal/congruence"
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// distribute multiplies out the first addition factor of a product.
func distribute(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	p, ok := t.(*uexpr.Product)
	if !ok {
		return t, false
	}
	for i, c := range p.Items {
		a, ok := c.(*uexpr.Addition)
		if !ok {
			continue
		}
		parts := make([]uexpr.Term, len(a.Items))
		for j, x := range a.Items {
			items := slices.Clone(p.Items)
			items[i] = x
			parts[j] = uexpr.Mul(items...)
		}
		return uexpr.Add(parts...), true
	}
	return t, false
}

// combineSquash merges the squash factors of a product into one squash of
// their product.
func combineSquash(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	p, ok := t.(*uexpr.Product)
	if !ok {
		return t, false
	}
	var bodies, rest []uexpr.Term
	for _, c := range p.Items {
		if sq, ok := c.(*uexpr.Squashing); ok {
			bodies = append(bodies, sq.Body)
			continue
		}
		rest = append(rest, c)
	}
	if len(bodies) < 2 {
		return t, false
	}
	return uexpr.Mul(append(rest, uexpr.Squash(uexpr.Mul(bodies...)))...), true
}

// dedupFactors keeps one copy of each repeated 0/1-valued factor. Table
// atoms are multiplicities and are never deduplicated here.
func dedupFactors(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	p, ok := t.(*uexpr.Product)
	if !ok {
		return t, false
	}
	kept := make([]uexpr.Term, 0, len(p.Items))
	for _, c := range p.Items {
		if IsIndicator(c) && slices.ContainsFunc(kept, func(k uexpr.Term) bool { return uexpr.Equal(k, c) }) {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == len(p.Items) {
		return t, false
	}
	return uexpr.Mul(kept...), true
}

// contradiction zeroes a product whose equalities force two distinct
// literals together, or that asserts a strict comparison between
// congruent operands.
func contradiction(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	p, ok := t.(*uexpr.Product)
	if !ok {
		return t, false
	}
	cc := congruence.Build(p.Items)
	if _, _, bad := cc.Contradiction(); bad {
		return uexpr.Const(0), true
	}
	for _, c := range p.Items {
		pr, ok := c.(*uexpr.Predicate)
		if !ok || len(pr.Args) != 2 {
			continue
		}
		switch pr.Op {
		case uexpr.OpNe, uexpr.OpLt, uexpr.OpGt:
			if cc.IsCongruent(pr.Args[0], pr.Args[1]) {
				return uexpr.Const(0), true
			}
		}
	}
	return t, false
}
