package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/testutil"
	"github.com/roach88/uprove/internal/uexpr"
)

// TestBudget_ExceedsLimit tests the distinguishable non-convergence error.
func TestBudget_ExceedsLimit(t *testing.T) {
	b := NewBudget("core", 2)
	require.NoError(t, b.Check())
	require.NoError(t, b.Check())

	err := b.Check()
	require.Error(t, err)
	assert.True(t, IsBudgetExceeded(err))
	assert.True(t, IsNotConverged(err))
	assert.Equal(t, 3, b.Passes())
	assert.Contains(t, err.Error(), "core did not converge")

	var ne *NormalizeError
	require.True(t, errors.As(err, &ne), "budget errors unwrap to NOT_CONVERGED")
	assert.Equal(t, ErrCodeNotConverged, ne.Code)
}

func TestNormalize_BudgetExhausted(t *testing.T) {
	s := testutil.Session(t, "", session.WithMaxIterations(1))
	_, err := Normalize(s, uexpr.Mul(uexpr.Const(1), uexpr.Add(uexpr.Const(0), uexpr.Const(0))))
	require.Error(t, err)
	assert.True(t, IsNotConverged(err))

	out, err := Normalize(s, tbl("R", "x"))
	require.NoError(t, err, "a normal term needs a single pass")
	assertEquiv(t, tbl("R", "x"), out)
}

func TestOscillationDetector_Record(t *testing.T) {
	d := NewOscillationDetector()
	assert.False(t, d.Record(uexpr.Sum(binders("t"), tbl("R", "t"))))
	assert.True(t, d.Record(uexpr.Sum(binders("u"), tbl("R", "u"))), "alpha-equivalent terms repeat")
	assert.False(t, d.Record(tbl("R", "t")))
	assert.Equal(t, 2, d.Size())
}

func TestNormalizer_Oscillation(t *testing.T) {
	flip := Rule{Name: "flip", Apply: func(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
		a, ok := t.(*uexpr.TableAtom)
		if !ok {
			return t, false
		}
		if a.Name == "R" {
			return uexpr.Table("S", a.Var), true
		}
		return uexpr.Table("R", a.Var), true
	}}

	_, err := New(testutil.Session(t, ""), "flip", flip).Run(tbl("R", "x"))
	require.Error(t, err)
	assert.True(t, IsNotConverged(err))

	var ne *NormalizeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, ErrCodeOscillation, ne.Code)
	assert.Equal(t, "flip", ne.Rule)
}

func TestNormalizer_ShapeViolation(t *testing.T) {
	bad := Rule{Name: "bad", Apply: func(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
		if _, ok := t.(*uexpr.Summation); ok {
			ShapeViolation("bad", t, "summation body must be a product")
		}
		return t, false
	}}

	_, err := New(testutil.Session(t, ""), "test", bad).Run(uexpr.Sum(binders("t"), tbl("R", "t")))
	require.Error(t, err)
	assert.True(t, IsShapeViolation(err))
	assert.False(t, IsNotConverged(err))
	assert.Contains(t, err.Error(), "rule=bad")
	assert.Contains(t, err.Error(), "summation body must be a product")
}

func TestNormalizer_TermShapeErrorIsRecovered(t *testing.T) {
	bad := Rule{Name: "bad", Apply: func(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
		return uexpr.Sum([]*uexpr.Var{uexpr.Proj("a", uexpr.Base("t"))}, t), true
	}}

	_, err := New(testutil.Session(t, ""), "test", bad).Run(tbl("R", "t"))
	require.Error(t, err)
	assert.True(t, IsShapeViolation(err))

	var ne *NormalizeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "bad", ne.Rule, "the failing rule is named")
	assertEquiv(t, tbl("R", "t"), ne.Term)
	assert.Contains(t, err.Error(), "rule=bad")
}

func TestNormalizer_OtherPanicsPropagate(t *testing.T) {
	boom := Rule{Name: "boom", Apply: func(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
		panic(fmt.Sprintf("boom at %s", t))
	}}

	assert.Panics(t, func() {
		_, _ = New(testutil.Session(t, ""), "test", boom).Run(tbl("R", "t"))
	})
}

func TestNormalizeError_Message(t *testing.T) {
	err := &NormalizeError{Code: ErrCodeShapeViolation, Rule: "distribute", Term: tbl("R", "x"), Message: "oops"}
	assert.Equal(t, "SHAPE_VIOLATION: oops (rule=distribute) at R(x)", err.Error())

	wrapped := fmt.Errorf("normalizing: %w", err)
	assert.True(t, IsShapeViolation(wrapped))
	assert.False(t, IsShapeViolation(errors.New("other")))
	assert.False(t, IsNotConverged(errors.New("other")))
}

func TestNormalize_LogsRuleFirings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := testutil.Session(t, "", session.WithLogger(logger))

	_, err := Normalize(s, uexpr.Add(uexpr.Const(2), uexpr.Const(3)))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "rule fired")
	assert.Contains(t, out, "rule=fold-constants")
	assert.Contains(t, out, "run_id="+testutil.RunID)
	assert.Contains(t, out, "fixed point reached")
}
