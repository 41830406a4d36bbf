package uexpr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterRenamer() Renamer {
	n := 0
	return func(old *Var) *Var {
		n++
		return Base(fmt.Sprintf("%s#%d", old.Name, n))
	}
}

func TestFreeVarsAndIsUsing(t *testing.T) {
	term := Mul(
		Table("S", Base("u")),
		Sum(vars("t"), Mul(Table("R", Base("t")), Eq(Col("a", "t"), Col("b", "s")))),
	)

	free := FreeVars(term)
	assert.True(t, free.Contains("s"))
	assert.True(t, free.Contains("u"))
	assert.False(t, free.Contains("t"))
	assert.Equal(t, 2, free.Size())

	assert.True(t, IsUsing(term, "s"))
	assert.False(t, IsUsing(term, "t"))
	assert.True(t, IsUsingVar(term, Proj("b", Base("s"))))
	assert.False(t, IsUsingVar(term, Proj("a", Base("s"))))
}

func TestSubTermsAndRebuild(t *testing.T) {
	p := Eq(Col("a", "t"), Const(1))
	children := SubTerms(p)
	require.Len(t, children, 2)

	r := Rebuild(p, []Term{children[0], Const(2)})
	assert.Equal(t, "[a(t) = 2]", r.String())
	assert.Empty(t, SubTerms(Const(1)))
	assert.Equal(t, 4, Size(Neg(p)))
}

func TestReplaceVarRenamesCapturingBinder(t *testing.T) {
	term := Mul(
		Table("T", Base("t")),
		Sum(vars("s"), Mul(Table("R", Base("s")), Eq(Col("a", "s"), Col("a", "t")))),
	)

	got := ReplaceVar(term, Base("t"), Base("s"), counterRenamer())

	want := Mul(
		Table("T", Base("s")),
		Sum(vars("z"), Mul(Table("R", Base("z")), Eq(Col("a", "z"), Col("a", "s")))),
	)
	assert.True(t, Equal(want, got), "got %s", got)
}

func TestReplaceVarWithoutRenamerPanicsOnCapture(t *testing.T) {
	term := Sum(vars("s"), Eq(Col("a", "s"), Col("a", "t")))
	assert.Panics(t, func() {
		ReplaceVar(term, Base("t"), Base("s"), nil)
	})
}

func TestReplaceVarStopsAtShadowingBinder(t *testing.T) {
	term := Sum(vars("t"), Table("R", Base("t")))
	assert.Same(t, term, ReplaceVar(term, Base("t"), Base("u"), nil))
}

func TestReplaceTerm(t *testing.T) {
	term := Mul(Eq(Col("a", "t"), Const(1)), Pred("p", Col("a", "t")), Table("R", Base("t")))

	got := ReplaceTerm(term, Col("a", "t"), Const(5), nil)

	want := Mul(Eq(Const(5), Const(1)), Pred("p", Const(5)), Table("R", Base("t")))
	assert.True(t, Equal(want, got), "got %s", got)
}

func TestTransformBottomUp(t *testing.T) {
	var order []string
	Transform(Neg(Squash(Const(1))), func(n Term) Term {
		order = append(order, n.Kind().String())
		return n
	})
	assert.Equal(t, []string{"const", "squash", "not"}, order)
}
