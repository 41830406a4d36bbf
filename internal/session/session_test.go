package session

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uprove/internal/schema"
	"github.com/roach88/uprove/internal/uexpr"
)

func testSchema() *schema.Schema {
	return schema.New(schema.Table{
		Name:       "R",
		Columns:    []schema.Column{{Name: "a"}, {Name: "b"}},
		PrimaryKey: []string{"a"},
	})
}

func TestFreshVarsAreUniquePerCounter(t *testing.T) {
	s := New(nil, WithIDGenerator(NewFixedGenerator("run-1")))

	b1, b2 := s.FreshBaseVar(), s.FreshBaseVar()
	e1 := s.FreshEqVar()

	assert.NotEqual(t, b1.Name, b2.Name)
	assert.NotEqual(t, b1.Name, e1.Name)
	assert.Equal(t, "x#1", b1.Name)
	assert.Equal(t, "e#1", e1.Name)
	assert.Equal(t, "run-1", s.ID())
}

func TestSessionsDoNotShareCounters(t *testing.T) {
	a := New(nil)
	b := New(nil)

	a.FreshBaseVar()
	a.FreshBaseVar()

	assert.Equal(t, "x#1", b.FreshBaseVar().Name)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestTupleVarSchema(t *testing.T) {
	s := New(testSchema())
	t1, t2 := uexpr.Base("t1"), uexpr.Base("t2")

	s.PutTupleVarSchema(t1, []string{"a", "b"})
	s.PutTupleVarSchema(t2, []string{"c"})

	assert.Equal(t, []string{"a", "b"}, s.TupleVarSchema(t1))
	assert.Equal(t, []string{"a", "b", "c"}, s.TupleVarSchema(uexpr.Concat(t1, t2)))
	assert.Nil(t, s.TupleVarSchema(uexpr.Proj("a", t1)))
	assert.Nil(t, s.TupleVarSchema(uexpr.Base("unknown")))
}

func TestBindTablesRegistersColumns(t *testing.T) {
	s := New(testSchema())
	tv := uexpr.Base("t")
	s.BindTables(uexpr.Sum([]*uexpr.Var{tv}, uexpr.Mul(uexpr.Table("R", tv), uexpr.Table("Missing", uexpr.Base("u")))))

	assert.Equal(t, []string{"a", "b"}, s.TupleVarSchema(tv))
	assert.Nil(t, s.TupleVarSchema(uexpr.Base("u")))

	s.PutTupleVarSchema(tv, []string{"b"})
	s.BindTables(uexpr.Table("R", tv))
	assert.Equal(t, []string{"b"}, s.TupleVarSchema(tv), "existing entries are kept")
}

func TestRenameCopiesSchema(t *testing.T) {
	s := New(nil)
	old := uexpr.Base("t")
	s.PutTupleVarSchema(old, []string{"a"})

	v := s.Rename(old)
	assert.NotEqual(t, "t", v.Name)
	assert.Equal(t, []string{"a"}, s.TupleVarSchema(v))
}

func TestFreshRegistry(t *testing.T) {
	s := New(nil)
	v := s.FreshBaseVar()

	_, ok := s.LookupFresh("R|5")
	assert.False(t, ok)

	s.RecordFresh("R|5", v)
	got, ok := s.LookupFresh("R|5")
	require.True(t, ok)
	assert.Same(t, v, got)
	assert.Len(t, s.Fresh(), 1)
}

func TestOptions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := New(nil, WithMaxIterations(7), WithMaxIterations(0), WithLogger(logger), WithIDGenerator(NewFixedGenerator("fixed")))

	assert.Equal(t, 7, s.MaxIterations())
	s.Logger().Info("hello")
	assert.Contains(t, buf.String(), "run_id=fixed")
}

func TestFixedGeneratorPanicsWhenExhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
