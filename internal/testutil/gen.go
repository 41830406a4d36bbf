package testutil

import (
	"pgregory.net/rapid"

	"github.com/roach88/uprove/internal/uexpr"
)

var (
	genTables  = []string{"R", "S"}
	genColumns = []string{"a", "b"}
)

// TermGen draws terms over the tables R and S, the columns a and b, the
// free variable x and binders drawn from t and u. depth bounds nesting.
func TermGen(depth int) *rapid.Generator[uexpr.Term] {
	return rapid.Custom(func(rt *rapid.T) uexpr.Term {
		return drawTerm(rt, depth, []string{"x"})
	})
}

func drawTerm(rt *rapid.T, depth int, scope []string) uexpr.Term {
	if depth <= 0 {
		return drawLeaf(rt, scope)
	}
	switch rapid.IntRange(0, 6).Draw(rt, "kind") {
	case 0:
		return uexpr.Add(drawList(rt, depth, scope)...)
	case 1:
		return uexpr.Mul(drawList(rt, depth, scope)...)
	case 2:
		return uexpr.Squash(drawTerm(rt, depth-1, scope))
	case 3:
		return uexpr.Neg(drawIndicator(rt, scope))
	case 4:
		v := rapid.SampledFrom([]string{"t", "u"}).Draw(rt, "binder")
		inner := append(append([]string(nil), scope...), v)
		body := uexpr.Mul(uexpr.Table(rapid.SampledFrom(genTables).Draw(rt, "table"), uexpr.Base(v)), drawTerm(rt, depth-1, inner))
		return uexpr.Sum([]*uexpr.Var{uexpr.Base(v)}, body)
	}
	return drawLeaf(rt, scope)
}

func drawList(rt *rapid.T, depth int, scope []string) []uexpr.Term {
	n := rapid.IntRange(2, 3).Draw(rt, "n")
	out := make([]uexpr.Term, n)
	for i := range out {
		out[i] = drawTerm(rt, depth-1, scope)
	}
	return out
}

func drawLeaf(rt *rapid.T, scope []string) uexpr.Term {
	switch rapid.IntRange(0, 3).Draw(rt, "leaf") {
	case 0:
		return uexpr.Const(int64(rapid.IntRange(0, 2).Draw(rt, "const")))
	case 1:
		return uexpr.Table(rapid.SampledFrom(genTables).Draw(rt, "table"), uexpr.Base(rapid.SampledFrom(scope).Draw(rt, "var")))
	}
	return drawIndicator(rt, scope)
}

func drawIndicator(rt *rapid.T, scope []string) uexpr.Term {
	col := func(label string) uexpr.Term {
		return uexpr.Col(rapid.SampledFrom(genColumns).Draw(rt, label+"-col"), rapid.SampledFrom(scope).Draw(rt, label+"-var"))
	}
	if rapid.Bool().Draw(rt, "literal") {
		return uexpr.Eq(col("lhs"), uexpr.Const(int64(rapid.IntRange(1, 3).Draw(rt, "value"))))
	}
	return uexpr.Eq(col("lhs"), col("rhs"))
}
