package querynorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uprove/internal/normalize"
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/testutil"
	"github.com/roach88/uprove/internal/uexpr"
)

func binders(names ...string) []*uexpr.Var {
	out := make([]*uexpr.Var, len(names))
	for i, n := range names {
		out[i] = uexpr.Base(n)
	}
	return out
}

func tbl(name, v string) uexpr.Term {
	return uexpr.Table(name, uexpr.Base(v))
}

func ref(v string) uexpr.Term {
	return uexpr.Ref(uexpr.Base(v))
}

func run(t *testing.T, s *session.Session, in uexpr.Term) uexpr.Term {
	t.Helper()
	out, err := Normalize(s, in)
	require.NoError(t, err)
	return out
}

func assertEquiv(t *testing.T, want, got uexpr.Term) {
	t.Helper()
	assert.Truef(t, uexpr.Equal(want, got), "want %s\n got %s", want, got)
}

func TestNormalize_RedundantExistentialSquash(t *testing.T) {
	in := uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.Squash(uexpr.Sum(binders("t"), tbl("R", "t")))))

	for _, src := range []string{"", testutil.KeyedSchema} {
		out := run(t, testutil.Session(t, src), in)
		assertEquiv(t, uexpr.Sum(binders("t"), tbl("R", "t")), out)
	}
}

func TestNormalize_EliminatesBoundVarEquatedToConstant(t *testing.T) {
	s := testutil.Session(t, "")
	in := uexpr.Sum(binders("t"), uexpr.Mul(uexpr.Eq(ref("t"), uexpr.Const(5)), uexpr.Pred("p", ref("t"))))

	out := run(t, s, in)

	want, err := normalize.Normalize(testutil.Session(t, ""), uexpr.Pred("p", uexpr.Const(5)))
	require.NoError(t, err)
	assertEquiv(t, want, out)
	assert.False(t, uexpr.IsUsing(out, "t"))
}

func TestNormalize_EliminatedValueDecidesPredicates(t *testing.T) {
	in := uexpr.Sum(binders("t"), uexpr.Mul(uexpr.Eq(ref("t"), uexpr.Const(5)), uexpr.Gt(ref("t"), uexpr.Const(3))))
	assertEquiv(t, uexpr.Const(1), run(t, testutil.Session(t, ""), in))
}

func TestNormalize_EliminatesBoundVarEquatedToBinder(t *testing.T) {
	in := uexpr.Sum(binders("t", "u"), uexpr.Mul(tbl("R", "t"), tbl("S", "u"), uexpr.Eq(ref("t"), ref("u"))))
	want := uexpr.Sum(binders("u"), uexpr.Mul(tbl("R", "u"), tbl("S", "u")))
	assertEquiv(t, want, run(t, testutil.Session(t, ""), in))
}

func TestNormalize_EliminatesByAttributes(t *testing.T) {
	s := testutil.Session(t, "")
	s.PutTupleVarSchema(uexpr.Base("t"), []string{"a", "b"})
	in := uexpr.Sum(binders("t"), uexpr.Mul(
		uexpr.Eq(uexpr.Col("a", "t"), uexpr.Col("a", "x")),
		uexpr.Eq(uexpr.Col("b", "t"), uexpr.Const(5)),
		uexpr.Pred("p", uexpr.Col("a", "t"), uexpr.Col("b", "t")),
	))

	// a(t) = a(x) held only for a non-null a(x).
	want := uexpr.Mul(
		uexpr.Pred("p", uexpr.Col("a", "x"), uexpr.Const(5)),
		uexpr.Neg(uexpr.IsNull(uexpr.Col("a", "x"))),
	)
	assertEquiv(t, want, run(t, s, in))
}

func TestNormalize_NarrowsPartlyResolvedBinder(t *testing.T) {
	s := testutil.Session(t, "")
	s.PutTupleVarSchema(uexpr.Base("t"), []string{"a", "b"})
	in := uexpr.Sum(binders("t"), uexpr.Mul(
		uexpr.Eq(uexpr.Col("a", "t"), uexpr.Const(5)),
		uexpr.Pred("p", uexpr.Col("a", "t"), uexpr.Col("b", "t")),
	))

	out := run(t, s, in)

	assertEquiv(t, uexpr.Sum(binders("w"), uexpr.Pred("p", uexpr.Const(5), uexpr.Col("b", "w"))), out)
	sum, ok := out.(*uexpr.Summation)
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, s.TupleVarSchema(sum.Vars[0]))
	assert.Equal(t, "e#1", sum.Vars[0].Name)
}

func TestNormalize_KeepsTableBoundBinder(t *testing.T) {
	s := testutil.Session(t, testutil.KeyedSchema)
	in := uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.Eq(uexpr.Col("a", "t"), uexpr.Const(5))))
	assertEquiv(t, in, run(t, s, in))
}

func TestNormalize_AllNullRow(t *testing.T) {
	s := testutil.Session(t, "")
	s.PutTupleVarSchema(uexpr.Base("t"), []string{"a", "b"})
	in := uexpr.Sum(binders("t"), uexpr.Mul(
		uexpr.IsNull(uexpr.Col("a", "t")),
		uexpr.IsNull(uexpr.Col("b", "t")),
		uexpr.Pred("p", uexpr.Col("b", "t")),
	))

	assertEquiv(t, uexpr.Pred("p", uexpr.Null()), run(t, s, in))
}

func TestNormalize_NestedEliminationUnderSquash(t *testing.T) {
	in := uexpr.Squash(uexpr.Sum(binders("t"), uexpr.Squash(uexpr.Sum(binders("u"), uexpr.Mul(tbl("S", "u"), uexpr.Eq(ref("t"), ref("u")))))))
	want := uexpr.Squash(uexpr.Sum(binders("u"), tbl("S", "u")))
	assertEquiv(t, want, run(t, testutil.Session(t, ""), in))
}

func TestNormalize_NullPropagation(t *testing.T) {
	ax, bx := uexpr.Col("a", "x"), uexpr.Col("b", "x")
	tests := []struct {
		name string
		in   uexpr.Term
		want uexpr.Term
	}{
		{
			name: "equality becomes null test",
			in:   uexpr.Mul(tbl("R", "x"), uexpr.IsNull(ax), uexpr.Eq(ax, bx)),
			want: uexpr.Mul(tbl("R", "x"), uexpr.IsNull(ax), uexpr.IsNull(bx)),
		},
		{
			name: "equality with a literal",
			in:   uexpr.Mul(tbl("R", "x"), uexpr.IsNull(ax), uexpr.Eq(ax, uexpr.Const(3))),
			want: uexpr.Const(0),
		},
		{
			name: "ordering never holds",
			in:   uexpr.Mul(tbl("R", "x"), uexpr.IsNull(ax), uexpr.Lt(bx, ax)),
			want: uexpr.Const(0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertEquiv(t, tt.want, run(t, testutil.Session(t, ""), tt.in))
		})
	}
}

func TestNormalize_ConcatProjection(t *testing.T) {
	s := testutil.Session(t, "")
	s.PutTupleVarSchema(uexpr.Base("t"), []string{"a"})
	s.PutTupleVarSchema(uexpr.Base("u"), []string{"b"})
	col := uexpr.Ref(uexpr.Proj("b", uexpr.Concat(uexpr.Base("t"), uexpr.Base("u"))))

	out := run(t, s, uexpr.Eq(col, uexpr.Const(5)))
	assertEquiv(t, uexpr.Eq(uexpr.Col("b", "u"), uexpr.Const(5)), out)

	unknown := uexpr.Eq(uexpr.Ref(uexpr.Proj("z", uexpr.Concat(uexpr.Base("t"), uexpr.Base("u")))), uexpr.Const(5))
	assertEquiv(t, unknown, run(t, s, unknown))
}

func TestNormalize_MinMax(t *testing.T) {
	m := uexpr.Col("m", "x")
	a := uexpr.Col("a", "t")
	exists := uexpr.Squash(uexpr.Sum(binders("t"), uexpr.Mul(tbl("S", "t"), uexpr.Eq(m, a))))
	rows := uexpr.Sum(binders("t"), uexpr.Mul(tbl("S", "t"), uexpr.Fn(AggValue, a)))

	tests := []struct {
		name  string
		bound uexpr.Term
		want  string
	}{
		{"greater row", uexpr.Gt(a, m), AggMax},
		{"greater row written reversed", uexpr.Lt(m, a), AggMax},
		{"smaller row", uexpr.Lt(a, m), AggMin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := uexpr.Mul(tbl("R", "x"), exists, uexpr.Neg(uexpr.Sum(binders("t"), uexpr.Mul(tbl("S", "t"), tt.bound))))
			want := uexpr.Mul(tbl("R", "x"), uexpr.Eq(m, uexpr.Fn(tt.want, rows)))
			assertEquiv(t, want, run(t, testutil.Session(t, ""), in))
		})
	}
}

func TestNormalize_MinMaxNeedsSameRows(t *testing.T) {
	m := uexpr.Col("m", "x")
	a := uexpr.Col("a", "t")
	in := uexpr.Mul(
		tbl("R", "x"),
		uexpr.Squash(uexpr.Sum(binders("t"), uexpr.Mul(tbl("S", "t"), uexpr.Eq(m, a)))),
		uexpr.Neg(uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.Gt(a, m)))),
	)
	assertEquiv(t, in, run(t, testutil.Session(t, ""), in))
}

func TestNormalize_CountDistinct(t *testing.T) {
	a := uexpr.Col("a", "t")
	in := uexpr.Sum(binders("v"), uexpr.Squash(uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.Eq(ref("v"), a)))))

	want := uexpr.Fn(AggCount, uexpr.Squash(uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.Fn(AggValue, a)))))
	assertEquiv(t, want, run(t, testutil.Session(t, ""), in))
}

func TestNormalize_CountDistinctNeedsBareSquash(t *testing.T) {
	a := uexpr.Col("a", "t")
	exists := uexpr.Squash(uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.Eq(ref("v"), a))))
	tests := []struct {
		name string
		in   uexpr.Term
	}{
		{"filtered values", uexpr.Sum(binders("v"), uexpr.Mul(tbl("S", "v"), exists))},
		{"unsquashed rows", uexpr.Sum(binders("v"), uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.Eq(ref("v"), a))))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, testutil.Session(t, ""), tt.in)
			assert.NotContains(t, out.String(), AggCount)
		})
	}
}

func TestNormalize_HoistsUnrelatedFactorsOutOfSquash(t *testing.T) {
	px := uexpr.Pred("p", uexpr.Col("a", "x"))
	in := uexpr.Mul(tbl("R", "x"), uexpr.Squash(uexpr.Sum(binders("u"), uexpr.Mul(tbl("S", "u"), px))))

	want := uexpr.Mul(tbl("R", "x"), px, uexpr.Squash(uexpr.Sum(binders("u"), tbl("S", "u"))))
	assertEquiv(t, want, run(t, testutil.Session(t, ""), in))
}

func TestNormalize_KeepsRelatedFactorsInSquash(t *testing.T) {
	in := uexpr.Mul(tbl("R", "x"), uexpr.Squash(uexpr.Sum(binders("u"), uexpr.Mul(
		tbl("S", "u"),
		uexpr.Eq(uexpr.Col("a", "x"), uexpr.Col("y", "u")),
	))))
	assertEquiv(t, in, run(t, testutil.Session(t, ""), in))
}

func TestNormalize_Subsumption(t *testing.T) {
	p := uexpr.Eq(uexpr.Col("a", "x"), uexpr.Const(1))
	tests := []struct {
		name string
		in   uexpr.Term
		want uexpr.Term
	}{
		{
			name: "implied negation",
			in:   uexpr.Mul(tbl("R", "x"), uexpr.Neg(uexpr.Sum(binders("t"), tbl("R", "t")))),
			want: uexpr.Const(0),
		},
		{
			name: "negated sibling predicate",
			in:   uexpr.Mul(tbl("R", "x"), p, uexpr.Neg(p)),
			want: uexpr.Const(0),
		},
		{
			name: "implied component of a squash",
			in:   uexpr.Mul(tbl("R", "x"), uexpr.Squash(uexpr.Sum(binders("t", "u"), uexpr.Mul(tbl("R", "t"), tbl("S", "u"))))),
			want: uexpr.Mul(tbl("R", "x"), uexpr.Squash(uexpr.Sum(binders("u"), tbl("S", "u")))),
		},
		{
			name: "implied component of a negation",
			in:   uexpr.Mul(tbl("R", "x"), uexpr.Neg(uexpr.Sum(binders("t", "u"), uexpr.Mul(tbl("R", "t"), tbl("S", "u"))))),
			want: uexpr.Mul(tbl("R", "x"), uexpr.Neg(uexpr.Sum(binders("u"), tbl("S", "u")))),
		},
		{
			name: "squashed addend implying another",
			in: uexpr.Squash(uexpr.Add(
				uexpr.Sum(binders("t"), tbl("R", "t")),
				uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), tbl("S", "t"))),
			)),
			want: uexpr.Squash(uexpr.Sum(binders("t"), tbl("R", "t"))),
		},
		{
			name: "unrelated squash stays",
			in:   uexpr.Mul(tbl("R", "x"), uexpr.Squash(uexpr.Sum(binders("t"), tbl("S", "t")))),
			want: uexpr.Mul(tbl("R", "x"), uexpr.Squash(uexpr.Sum(binders("t"), tbl("S", "t")))),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertEquiv(t, tt.want, run(t, testutil.Session(t, ""), tt.in))
		})
	}
}

func TestNormalize_BudgetExhausted(t *testing.T) {
	s := testutil.Session(t, "", session.WithMaxIterations(1))
	_, err := Normalize(s, uexpr.Sum(binders("t"), uexpr.Mul(uexpr.Eq(ref("t"), uexpr.Const(5)), uexpr.Pred("p", ref("t")))))
	require.Error(t, err)
	assert.True(t, normalize.IsNotConverged(err))
}

func TestComponents(t *testing.T) {
	factors := []uexpr.Term{
		tbl("R", "t"),
		tbl("S", "u"),
		uexpr.Eq(uexpr.Col("a", "t"), uexpr.Col("a", "v")),
		uexpr.Eq(uexpr.Col("a", "x"), uexpr.Const(1)),
	}
	got := components(binders("t", "u", "v"), factors)
	require.Len(t, got, 3)
	assert.Len(t, got[0].factors, 2, "t and v are linked")
	assert.Equal(t, []*uexpr.Var{uexpr.Base("t"), uexpr.Base("v")}, got[0].vars)
	assert.Empty(t, got[2].vars, "a factor without binders stands alone")
}
