// Package oracle is the boundary to external arithmetic decision
// procedures.
//
// Normalization itself never consults an oracle. Rewrites layered on top
// of it that need arithmetic facts call Check, which bounds the call by a
// wall-clock timeout and turns every failure into Unknown so the caller
// can fall back to a sound approximation.
//
// No rewrite in this module calls Check, Portfolio or Enumerator yet. The
// SQL-to-U-expression translator and the equivalence driver are their
// callers, and both live outside this module. Until then the package is
// exercised only by its tests.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/uprove/internal/uexpr"
)

// Verdict is the answer of a satisfiability query.
type Verdict int

const (
	// Unknown means the oracle could not decide, gave up or failed.
	Unknown Verdict = iota
	// Sat means a model exists.
	Sat
	// Unsat means no model exists.
	Unsat
)

// String returns the conventional solver spelling of the verdict.
func (v Verdict) String() string {
	switch v {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Model assigns an integer to every variable of a formula.
type Model map[string]int64

// Result is the outcome of one query. Model is set only for Sat; Reason
// explains an Unknown.
type Result struct {
	Verdict Verdict
	Model   Model
	Reason  string
}

// Formula is a conjunction of integer constraints. Each constraint is a
// term whose variables are the base variables named in Vars, referenced
// as uexpr.Ref(uexpr.Base(name)).
type Formula struct {
	Vars        []string
	Constraints []uexpr.Term
}

// String renders the formula as "vars: c1 & c2".
func (f Formula) String() string {
	parts := make([]string, len(f.Constraints))
	for i, c := range f.Constraints {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s: %s", strings.Join(f.Vars, ","), strings.Join(parts, " & "))
}

// Oracle decides the satisfiability of formulas. Implementations should
// return promptly once ctx is done.
type Oracle interface {
	Satisfiable(ctx context.Context, f Formula) (Result, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, f Formula) (Result, error)

// Satisfiable calls fn.
func (fn Func) Satisfiable(ctx context.Context, f Formula) (Result, error) {
	return fn(ctx, f)
}

// ErrTimeout is the reason recorded when Check gives up waiting.
var ErrTimeout = errors.New("oracle timed out")

// Check asks o about f and waits at most timeout; a non-positive timeout
// only waits for ctx. An error, a timeout or a cancelled ctx all yield
// Unknown, never an error.
func Check(ctx context.Context, o Oracle, f Formula, timeout time.Duration) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type answer struct {
		res Result
		err error
	}
	done := make(chan answer, 1)
	go func() {
		res, err := o.Satisfiable(ctx, f)
		done <- answer{res, err}
	}()

	select {
	case a := <-done:
		if a.err != nil {
			return Result{Verdict: Unknown, Reason: a.err.Error()}
		}
		if a.res.Verdict != Sat {
			a.res.Model = nil
		}
		return a.res
	case <-ctx.Done():
		reason := ctx.Err().Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = ErrTimeout.Error()
		}
		return Result{Verdict: Unknown, Reason: reason}
	}
}
