package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/uprove/internal/uexpr"
)

// AssertionError describes a failed check with enough context to debug
// it.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Diff     string // Optional cmp.Diff of expected and actual
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "\nDiff (-expected +actual):\n%s", e.Diff)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against a result that holds a
// normal form and returns the failure messages.
func EvaluateAssertions(r *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(r, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	out := r.Output
	switch a.Type {
	case AssertKind:
		if out.Kind().String() != a.Kind {
			return &AssertionError{Type: a.Type, Expected: a.Kind, Actual: fmt.Sprintf("%s (%s)", out.Kind(), out)}
		}
	case AssertNotUses:
		if uexpr.IsUsing(out, a.Var) {
			return &AssertionError{Type: a.Type, Expected: "no free use of " + a.Var, Actual: out.String()}
		}
	case AssertFreshCount:
		if len(r.Fresh) != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Count), Actual: fmt.Sprintf("%d %v", len(r.Fresh), r.Fresh)}
		}
	case AssertMaxSize:
		if n := uexpr.Size(out); n > a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("at most %d nodes", a.Count), Actual: fmt.Sprintf("%d nodes: %s", n, out)}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
