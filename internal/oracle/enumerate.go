package oracle

import (
	"context"
	"fmt"

	"github.com/roach88/uprove/internal/normalize"
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// Enumerator searches for a model among the integers in [-Bound, Bound].
// It reports Unsat only for a formula without variables; when the search
// space is exhausted the answer is Unknown.
type Enumerator struct {
	Bound int64
}

// Satisfiable implements Oracle.
func (e Enumerator) Satisfiable(ctx context.Context, f Formula) (Result, error) {
	if e.Bound < 0 {
		return Result{}, fmt.Errorf("negative bound %d", e.Bound)
	}
	s := session.New(nil)
	vals := make([]int64, len(f.Vars))
	for i := range vals {
		vals[i] = -e.Bound
	}
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		ok, err := holds(s, f, vals)
		if err != nil {
			return Result{}, err
		}
		if ok {
			m := make(Model, len(f.Vars))
			for i, v := range f.Vars {
				m[v] = vals[i]
			}
			return Result{Verdict: Sat, Model: m}, nil
		}
		if !e.next(vals) {
			break
		}
	}
	if len(f.Vars) == 0 {
		return Result{Verdict: Unsat}, nil
	}
	return Result{Verdict: Unknown, Reason: fmt.Sprintf("no model within bound %d", e.Bound)}, nil
}

// next advances vals like an odometer and reports false after the last
// assignment.
func (e Enumerator) next(vals []int64) bool {
	for i := range vals {
		if vals[i] < e.Bound {
			vals[i]++
			return true
		}
		vals[i] = -e.Bound
	}
	return false
}

// holds substitutes vals into the constraints and reports whether their
// product normalizes to a positive constant.
func holds(s *session.Session, f Formula, vals []int64) (bool, error) {
	conj := uexpr.Mul(f.Constraints...)
	for i, v := range f.Vars {
		conj = uexpr.ReplaceTerm(conj, uexpr.Ref(uexpr.Base(v)), uexpr.Const(vals[i]), nil)
	}
	out, err := normalize.Normalize(s, conj)
	if err != nil {
		return false, err
	}
	c, ok := out.(*uexpr.Constant)
	return ok && !c.Null && c.Value > 0, nil
}
