package normalize

import (
	"math"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// flatten splices nested additions and products into their parent and
// collapses containers holding fewer than two items.
func flatten(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	switch n := t.(type) {
	case *uexpr.Addition:
		items, spliced := splice(n.Items, func(c uexpr.Term) ([]uexpr.Term, bool) {
			a, ok := c.(*uexpr.Addition)
			if !ok {
				return nil, false
			}
			return a.Items, true
		})
		if !spliced && len(items) > 1 {
			return t, false
		}
		return uexpr.Add(items...), true
	case *uexpr.Product:
		items, spliced := splice(n.Items, func(c uexpr.Term) ([]uexpr.Term, bool) {
			p, ok := c.(*uexpr.Product)
			if !ok {
				return nil, false
			}
			return p.Items, true
		})
		if !spliced && len(items) > 1 {
			return t, false
		}
		return uexpr.Mul(items...), true
	}
	return t, false
}

func splice(items []uexpr.Term, inner func(uexpr.Term) ([]uexpr.Term, bool)) ([]uexpr.Term, bool) {
	out := make([]uexpr.Term, 0, len(items))
	spliced := false
	for _, c := range items {
		if sub, ok := inner(c); ok {
			out = append(out, sub...)
			spliced = true
			continue
		}
		out = append(out, c)
	}
	return out, spliced
}

// foldConstants evaluates the constant parts of additions, products,
// negations and squashes. NULL absorbs every addition and product it
// appears in; a 0 factor annihilates a product.
func foldConstants(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	switch n := t.(type) {
	case *uexpr.Addition:
		return foldContainer(t, n.Items, 0, addInt64, uexpr.Add)
	case *uexpr.Product:
		for _, c := range n.Items {
			if uexpr.IsNullConst(c) {
				return uexpr.Null(), true
			}
		}
		for _, c := range n.Items {
			if uexpr.IsConst(c, 0) {
				return uexpr.Const(0), true
			}
		}
		return foldContainer(t, n.Items, 1, mulInt64, uexpr.Mul)
	case *uexpr.Negation:
		if c, ok := n.Body.(*uexpr.Constant); ok {
			if c.Null || c.Value == 0 {
				return uexpr.Const(1), true
			}
			return uexpr.Const(0), true
		}
	case *uexpr.Squashing:
		if c, ok := n.Body.(*uexpr.Constant); ok {
			if c.Null || c.Value == 0 {
				return uexpr.Const(0), true
			}
			return uexpr.Const(1), true
		}
	}
	return t, false
}

// foldContainer combines the constant items with op. The container is left
// as is when op overflows.
func foldContainer(t uexpr.Term, items []uexpr.Term, identity int64, op func(a, b int64) (int64, bool), build func(...uexpr.Term) uexpr.Term) (uexpr.Term, bool) {
	var rest []uexpr.Term
	acc, consts := identity, 0
	for _, c := range items {
		if uexpr.IsNullConst(c) {
			return uexpr.Null(), true
		}
		if k, ok := c.(*uexpr.Constant); ok {
			next, ok := op(acc, k.Value)
			if !ok {
				return t, false
			}
			acc = next
			consts++
			continue
		}
		rest = append(rest, c)
	}
	if consts == 0 || (consts == 1 && acc != identity) {
		return t, false
	}
	if acc != identity || len(rest) == 0 {
		rest = append(rest, uexpr.Const(acc))
	}
	return build(rest...), true
}

func addInt64(a, b int64) (int64, bool) {
	c := a + b
	if (a > 0 && b > 0 && c < 0) || (a < 0 && b < 0 && c >= 0) {
		return 0, false
	}
	return c, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return c, true
}

// foldPredicate decides comparisons over literals and identical operands,
// and null tests over constants. A comparison with a NULL operand is 0.
//
// Identical operands compare equal only when they are not NULL, so a
// reflexive =, <= or >= over a column becomes not([isnull(e)]). Tuple
// variables denote rows and are never NULL.
func foldPredicate(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	p, ok := t.(*uexpr.Predicate)
	if !ok {
		return t, false
	}
	if p.Op == uexpr.OpIsNull && len(p.Args) == 1 {
		switch {
		case uexpr.IsNullConst(p.Args[0]):
			return uexpr.Const(1), true
		case uexpr.IsLiteral(p.Args[0]):
			return uexpr.Const(0), true
		}
		return t, false
	}
	if !p.Op.IsComparison() || len(p.Args) != 2 {
		return t, false
	}
	a, b := p.Args[0], p.Args[1]
	if uexpr.IsNullConst(a) || uexpr.IsNullConst(b) {
		return uexpr.Const(0), true
	}
	if uexpr.Key(a) == uexpr.Key(b) {
		reflexive := p.Op == uexpr.OpEq || p.Op == uexpr.OpLe || p.Op == uexpr.OpGe
		if !reflexive || neverNull(a) {
			return truth(reflexive), true
		}
		return uexpr.Neg(uexpr.IsNull(a)), true
	}
	if c, ok := compareLiterals(a, b); ok {
		return truth(holds(p.Op, c)), true
	}
	return t, false
}

func neverNull(t uexpr.Term) bool {
	if r, ok := t.(*uexpr.VarRef); ok {
		return r.Var.Kind != uexpr.VarProj
	}
	return uexpr.IsLiteral(t)
}

// compareLiterals orders two literals of the same type.
func compareLiterals(a, b uexpr.Term) (int, bool) {
	switch x := a.(type) {
	case *uexpr.Constant:
		y, ok := b.(*uexpr.Constant)
		if !ok || x.Null || y.Null {
			return 0, false
		}
		switch {
		case x.Value < y.Value:
			return -1, true
		case x.Value > y.Value:
			return 1, true
		}
		return 0, true
	case *uexpr.StrLit:
		y, ok := b.(*uexpr.StrLit)
		if !ok {
			return 0, false
		}
		switch {
		case x.Value < y.Value:
			return -1, true
		case x.Value > y.Value:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func holds(op uexpr.PredOp, c int) bool {
	switch op {
	case uexpr.OpEq:
		return c == 0
	case uexpr.OpNe:
		return c != 0
	case uexpr.OpLt:
		return c < 0
	case uexpr.OpLe:
		return c <= 0
	case uexpr.OpGt:
		return c > 0
	case uexpr.OpGe:
		return c >= 0
	}
	return false
}

func truth(b bool) *uexpr.Constant {
	if b {
		return uexpr.Const(1)
	}
	return uexpr.Const(0)
}
