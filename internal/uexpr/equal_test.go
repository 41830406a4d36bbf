package uexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vars(names ...string) []*Var {
	out := make([]*Var, len(names))
	for i, n := range names {
		out[i] = Base(n)
	}
	return out
}

func TestEqualModuloRenamingAndOrder(t *testing.T) {
	tests := []struct {
		name string
		a, b Term
		want bool
	}{
		{
			name: "bound rename",
			a:    Sum(vars("t"), Table("R", Base("t"))),
			b:    Sum(vars("s"), Table("R", Base("s"))),
			want: true,
		},
		{
			name: "product order",
			a:    Mul(Table("R", Base("t")), Table("S", Base("u"))),
			b:    Mul(Table("S", Base("u")), Table("R", Base("t"))),
			want: true,
		},
		{
			name: "free vars are significant",
			a:    Table("R", Base("t")),
			b:    Table("R", Base("s")),
			want: false,
		},
		{
			name: "bound does not match free",
			a:    Sum(vars("t"), Mul(Table("R", Base("t")), Table("S", Base("x")))),
			b:    Sum(vars("x"), Mul(Table("R", Base("x")), Table("S", Base("x")))),
			want: false,
		},
		{
			name: "binders paired by use",
			a:    Sum(vars("a", "b"), Mul(Table("R", Base("a")), Table("S", Base("b")))),
			b:    Sum(vars("a", "b"), Mul(Table("R", Base("b")), Table("S", Base("a")))),
			want: true,
		},
		{
			name: "shadowed inner binder",
			a:    Sum(vars("t"), Mul(Table("R", Base("t")), Squash(Sum(vars("t"), Table("S", Base("t")))))),
			b:    Sum(vars("u"), Mul(Table("R", Base("u")), Squash(Sum(vars("v"), Table("S", Base("v")))))),
			want: true,
		},
		{
			name: "inner binder must not reach outer",
			a:    Sum(vars("t"), Mul(Table("R", Base("t")), Squash(Sum(vars("s"), Table("S", Base("t")))))),
			b:    Sum(vars("u"), Mul(Table("R", Base("u")), Squash(Sum(vars("v"), Table("S", Base("v")))))),
			want: false,
		},
		{
			name: "equality is symmetric",
			a:    Eq(Col("a", "t"), Const(5)),
			b:    Eq(Const(5), Col("a", "t")),
			want: true,
		},
		{
			name: "ordering is not symmetric",
			a:    Lt(Col("a", "t"), Const(5)),
			b:    Lt(Const(5), Col("a", "t")),
			want: false,
		},
		{
			name: "null differs from zero",
			a:    Null(),
			b:    Const(0),
			want: false,
		},
		{
			name: "multiset multiplicity",
			a:    Mul(Table("R", Base("t")), Table("R", Base("t")), Table("S", Base("t"))),
			b:    Mul(Table("R", Base("t")), Table("S", Base("t")), Table("S", Base("t"))),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestHashIgnoresBoundNames(t *testing.T) {
	a := Sum(vars("t"), Mul(Table("R", Base("t")), Eq(Col("a", "t"), Col("b", "x"))))
	b := Sum(vars("q"), Mul(Eq(Col("b", "x"), Col("a", "q")), Table("R", Base("q"))))

	assert.Equal(t, Hash(a), Hash(b))
	assert.NotEqual(t, Key(a), Key(b))

	c := Sum(vars("t"), Mul(Table("R", Base("t")), Eq(Col("a", "t"), Col("b", "y"))))
	assert.NotEqual(t, Hash(a), Hash(c), "free variable names are hashed")
}

func TestKeyIgnoresCommutativeOrder(t *testing.T) {
	a := Add(Const(1), Str("x"), Table("R", Base("t")))
	b := Add(Table("R", Base("t")), Const(1), Str("x"))
	assert.Equal(t, Key(a), Key(b))
}

func TestSortCommAssoc(t *testing.T) {
	in := Mul(Table("S", Base("t")), Table("R", Base("t")), Eq(Const(5), Col("a", "t")))
	out := SortCommAssoc(in)

	require.True(t, Equal(in, out))
	assert.Equal(t, "R(t) * S(t) * [a(t) = 5]", out.String())
	assert.Same(t, out, SortCommAssoc(out), "sorting a sorted term returns it unchanged")
}
