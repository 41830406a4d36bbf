package icrewrite

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uprove/internal/querynorm"
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

func rewrite(t *testing.T, s *session.Session, in uexpr.Term, opts ...Option) uexpr.Term {
	t.Helper()
	out, _, err := Rewrite(s, in, opts...)
	require.NoError(t, err)
	return out
}

func assertEquiv(t *testing.T, want, got uexpr.Term) {
	t.Helper()
	assert.Truef(t, uexpr.Equal(want, got), "want %s\n got %s", want, got)
}

// unchanged returns what the query normalizer alone makes of in.
func unchanged(t *testing.T, src string, in uexpr.Term) uexpr.Term {
	t.Helper()
	out, err := querynorm.Normalize(testutil.Session(t, src), in)
	require.NoError(t, err)
	return out
}

func selfJoinInput() uexpr.Term {
	return uexpr.Sum(binders("t1", "t2"), uexpr.Mul(
		tbl("R", "t1"),
		tbl("R", "t2"),
		uexpr.Eq(uexpr.Col("a", "t1"), uexpr.Col("a", "t2")),
	))
}

func TestRewrite_SelfJoin(t *testing.T) {
	out := rewrite(t, testutil.Session(t, testutil.KeyedSchema), selfJoinInput())

	assertEquiv(t, uexpr.Sum(binders("t1"), tbl("R", "t1")), out)
	sum, ok := out.(*uexpr.Summation)
	require.True(t, ok)
	assert.Len(t, sum.Vars, 1)
}

func TestRewrite_SelfJoinNeedsKey(t *testing.T) {
	in := selfJoinInput()
	assertEquiv(t, unchanged(t, "", in), rewrite(t, testutil.Session(t, ""), in))

	// b is not a key of R.
	onB := uexpr.Sum(binders("t1", "t2"), uexpr.Mul(
		tbl("R", "t1"),
		tbl("R", "t2"),
		uexpr.Eq(uexpr.Col("b", "t1"), uexpr.Col("b", "t2")),
	))
	assertEquiv(t, unchanged(t, testutil.KeyedSchema, onB), rewrite(t, testutil.Session(t, testutil.KeyedSchema), onB))
}

// uniqueNullableSchema declares U keyed on id with a nullable unique b.
const uniqueNullableSchema = `
table: U: {
	columns: [{name: "id", not_null: true}, {name: "b"}]
	primary_key: ["id"]
	unique: [["b"]]
}
`

func TestRewrite_SelfJoinOnNullableKeyKeepsGuard(t *testing.T) {
	in := uexpr.Sum(binders("t1", "t2"), uexpr.Mul(
		tbl("U", "t1"),
		tbl("U", "t2"),
		uexpr.Eq(uexpr.Col("b", "t1"), uexpr.Col("b", "t2")),
	))
	out := rewrite(t, testutil.Session(t, uniqueNullableSchema), in, WithRules(RuleSelfJoin))

	// Rows with b NULL join nothing, so they must not survive the collapse.
	want := uexpr.Sum(binders("t1"), uexpr.Mul(
		tbl("U", "t1"),
		uexpr.Neg(uexpr.IsNull(uexpr.Col("b", "t1"))),
	))
	assertEquiv(t, want, out)
}

func TestRewrite_OneRecord(t *testing.T) {
	s := testutil.Session(t, testutil.KeyedSchema)
	in := uexpr.Sum(binders("t"), uexpr.Mul(
		tbl("R", "t"),
		uexpr.Eq(uexpr.Col("a", "t"), uexpr.Const(5)),
		uexpr.Pred("p", uexpr.Col("b", "t")),
	))

	out, fresh, err := Rewrite(s, in)
	require.NoError(t, err)

	want := uexpr.Mul(
		uexpr.Table("R", uexpr.Base("x#1")),
		uexpr.Eq(uexpr.Col("a", "x#1"), uexpr.Const(5)),
		uexpr.Pred("p", uexpr.Col("b", "x#1")),
	)
	assertEquiv(t, want, out)
	require.Len(t, fresh, 1)
	assert.Equal(t, "x#1", fresh[0].Name)
	assert.Equal(t, []string{"a", "b"}, s.TupleVarSchema(fresh[0]))

	again, fresh, err := Rewrite(s, in)
	require.NoError(t, err)
	assertEquiv(t, want, again)
	assert.Len(t, fresh, 1, "the same row reuses its variable")
}

func TestRewrite_OneRecordDistinguishesKeyValues(t *testing.T) {
	s := testutil.Session(t, testutil.KeyedSchema)
	row := func(n int64) uexpr.Term {
		return uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.Eq(uexpr.Col("a", "t"), uexpr.Const(n))))
	}

	_, _, err := Rewrite(s, row(1))
	require.NoError(t, err)
	_, fresh, err := Rewrite(s, row(2))
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func fkInput(extra ...uexpr.Term) uexpr.Term {
	inner := append([]uexpr.Term{
		tbl("S", "s"),
		uexpr.Eq(uexpr.Col("x", "s"), uexpr.Col("r", "t")),
	}, extra...)
	return uexpr.Sum(binders("t"), uexpr.Mul(
		tbl("T", "t"),
		uexpr.Squash(uexpr.Sum(binders("s"), uexpr.Mul(inner...))),
	))
}

func TestRewrite_ForeignKey(t *testing.T) {
	out := rewrite(t, testutil.Session(t, testutil.KeyedSchema), fkInput())

	want := uexpr.Sum(binders("t"), uexpr.Mul(
		tbl("T", "t"),
		uexpr.Neg(uexpr.IsNull(uexpr.Col("r", "t"))),
	))
	assertEquiv(t, want, out)
}

func TestRewrite_ForeignKeyKeepsUsedRow(t *testing.T) {
	in := fkInput(uexpr.Pred("p", uexpr.Col("y", "s")))
	out := rewrite(t, testutil.Session(t, testutil.KeyedSchema), in)
	assertEquiv(t, unchanged(t, testutil.KeyedSchema, in), out)
}

func TestRewrite_NullRemoval(t *testing.T) {
	s := testutil.Session(t, testutil.KeyedSchema)

	notNull := uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.IsNull(uexpr.Col("a", "t"))))
	assertEquiv(t, uexpr.Const(0), rewrite(t, s, notNull))

	nullable := uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.IsNull(uexpr.Col("b", "t"))))
	assertEquiv(t, nullable, rewrite(t, s, nullable))
}

func TestRewrite_SquashInsertion(t *testing.T) {
	in := uexpr.Sum(binders("t"), uexpr.Mul(
		uexpr.Table("S", uexpr.Base("x")),
		tbl("R", "t"),
		uexpr.Eq(uexpr.Col("a", "t"), uexpr.Col("y", "x")),
	))

	out := rewrite(t, testutil.Session(t, testutil.KeyedSchema), in)

	assert.Equal(t, uexpr.KindSquash, out.Kind())
	assertEquiv(t, uexpr.Squash(in), out)
}

func TestRewrite_NoSquashWithoutKeyBinding(t *testing.T) {
	in := uexpr.Sum(binders("t"), uexpr.Mul(tbl("R", "t"), uexpr.Pred("p", uexpr.Col("b", "t"))))
	out := rewrite(t, testutil.Session(t, testutil.KeyedSchema), in)
	assertEquiv(t, in, out)
}

func TestRewrite_WithRules(t *testing.T) {
	s := testutil.Session(t, testutil.KeyedSchema)
	out := rewrite(t, s, selfJoinInput(), WithRules(RuleNullRemoval))
	assertEquiv(t, unchanged(t, testutil.KeyedSchema, selfJoinInput()), out)

	out = rewrite(t, s, selfJoinInput(), WithRules(RuleSelfJoin))
	assertEquiv(t, uexpr.Sum(binders("t1"), tbl("R", "t1")), out)

	_, _, err := Rewrite(s, selfJoinInput(), WithRules("bogus"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown rule "bogus"`)
}

func TestRewrite_WithConstraint(t *testing.T) {
	s := testutil.Session(t, testutil.KeyedSchema)

	out := rewrite(t, s, selfJoinInput(), WithConstraint("S"))
	assertEquiv(t, unchanged(t, testutil.KeyedSchema, selfJoinInput()), out)

	out = rewrite(t, s, selfJoinInput(), WithConstraint("R"))
	assertEquiv(t, uexpr.Sum(binders("t1"), tbl("R", "t1")), out)
}

func TestRewrite_LogsFiredRules(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := testutil.Session(t, testutil.KeyedSchema, session.WithLogger(logger))

	rewrite(t, s, selfJoinInput())

	assert.Contains(t, buf.String(), "rule=self-join")
	assert.Contains(t, buf.String(), "loop=ic")
	assert.Contains(t, buf.String(), "run_id="+testutil.RunID)
}

func TestRuleNames(t *testing.T) {
	assert.Equal(t, []string{
		RuleSelfJoin, RuleSquashInsertion, RuleNullRemoval, RuleForeignKey, RuleOneRecord,
	}, RuleNames())
}
