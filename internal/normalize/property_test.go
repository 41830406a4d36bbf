package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/testutil"
	"github.com/roach88/uprove/internal/uexpr"
)

func normalizeFresh(t require.TestingT, in uexpr.Term) uexpr.Term {
	out, err := Normalize(session.New(nil, session.WithIDGenerator(session.NewFixedGenerator(testutil.RunID))), in)
	require.NoError(t, err)
	return out
}

func TestProperty_Idempotence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := testutil.TermGen(3).Draw(rt, "term")
		once := normalizeFresh(rt, in)
		twice := normalizeFresh(rt, once)
		require.Truef(rt, uexpr.Equal(once, twice), "once %s\ntwice %s", once, twice)
	})
}

func TestProperty_PermutationInvariance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		items := rapid.SliceOfN(testutil.TermGen(2), 2, 4).Draw(rt, "items")
		perm := rapid.Permutation(items).Draw(rt, "perm")

		require.True(rt, uexpr.Equal(normalizeFresh(rt, uexpr.Mul(items...)), normalizeFresh(rt, uexpr.Mul(perm...))))
		require.True(rt, uexpr.Equal(normalizeFresh(rt, uexpr.Add(items...)), normalizeFresh(rt, uexpr.Add(perm...))))
	})
}

func TestProperty_AlphaInvariance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		body := testutil.TermGen(2).Draw(rt, "body")
		in := uexpr.Sum(binders("x"), uexpr.Mul(tbl("R", "x"), body))
		renamed := uexpr.Sum(binders("z"), uexpr.ReplaceVar(uexpr.Mul(tbl("R", "x"), body), uexpr.Base("x"), uexpr.Base("z"), nil))

		a, b := normalizeFresh(rt, in), normalizeFresh(rt, renamed)
		require.Truef(rt, uexpr.Equal(a, b), "original %s\nrenamed %s", a, b)
	})
}

func TestProperty_NullAbsorption(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := testutil.TermGen(3).Draw(rt, "factor")
		out := normalizeFresh(rt, uexpr.Mul(f, uexpr.Null()))
		require.Truef(rt, uexpr.IsNullConst(out), "got %s", out)
	})
}
