package uexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVar(t *testing.T) {
	tests := []struct {
		in   string
		want *Var
	}{
		{"t", Base("t")},
		{"a(t)", Proj("a", Base("t"))},
		{"t1||t2", Concat(Base("t1"), Base("t2"))},
		{"a(t1||t2)", Proj("a", Concat(Base("t1"), Base("t2")))},
		{"x#3", Base("x#3")},
		{" b(a(t)) ", Proj("b", Proj("a", Base("t")))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVar(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseVarErrors(t *testing.T) {
	for _, in := range []string{"", "a(t", "(t)", "a b", "t||", "a(t))x"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseVar(in)
			assert.Error(t, err)
		})
	}
}

func TestConcatFlattens(t *testing.T) {
	v := Concat(Concat(Base("t1"), Base("t2")), Base("t3"))
	assert.Equal(t, "t1||t2||t3", v.String())
	assert.Len(t, v.Args, 3)

	single := Concat(Base("t"))
	assert.Equal(t, VarBase, single.Kind)
}

func TestVarReplace(t *testing.T) {
	tv, sv := Base("t"), Base("s")

	assert.Equal(t, "a(s)", Proj("a", tv).Replace(tv, sv).String())
	assert.Equal(t, "s||u", Concat(tv, Base("u")).Replace(tv, sv).String())

	untouched := Proj("a", Base("u"))
	assert.Same(t, untouched, untouched.Replace(tv, sv))
}

func TestVarUsesAndBases(t *testing.T) {
	v := Proj("a", Concat(Base("t1"), Base("t2")))

	assert.True(t, v.Uses("t1"))
	assert.True(t, v.Uses("t2"))
	assert.False(t, v.Uses("a"))
	assert.Len(t, v.Bases(), 2)
	assert.True(t, v.Contains(Base("t2")))
}
