package normalize

import (
	"errors"
	"fmt"

	"github.com/roach88/uprove/internal/uexpr"
)

// NormalizeError reports a normalization run that had to be aborted.
//
// Normalization errors include:
//   - Shape violation: a rule met a term outside its structural precondition
//   - Not converged: a fixed-point loop exhausted its iteration budget
//   - Oscillation: a fixed-point loop revisited an earlier term
type NormalizeError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Rule names the rule or driver that detected the problem.
	Rule string

	// Term is the sub-term being rewritten, when known.
	Term uexpr.Term

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes normalization errors.
type ErrorCode string

const (
	// ErrCodeShapeViolation indicates a logic defect in a rule or primitive.
	ErrCodeShapeViolation ErrorCode = "SHAPE_VIOLATION"

	// ErrCodeNotConverged indicates the iteration budget ran out.
	ErrCodeNotConverged ErrorCode = "NOT_CONVERGED"

	// ErrCodeOscillation indicates the rewrite sequence entered a cycle.
	ErrCodeOscillation ErrorCode = "OSCILLATION"
)

// Error implements the error interface.
func (e *NormalizeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Rule != "" {
		msg += fmt.Sprintf(" (rule=%s)", e.Rule)
	}
	if e.Term != nil {
		msg += fmt.Sprintf(" at %s", e.Term)
	}
	return msg
}

// IsShapeViolation reports whether err is a shape violation.
// Uses errors.As to handle wrapped errors.
func IsShapeViolation(err error) bool {
	var ne *NormalizeError
	if errors.As(err, &ne) {
		return ne.Code == ErrCodeShapeViolation
	}
	return uexpr.IsShapeError(err)
}

// IsNotConverged reports whether a fixed-point loop failed to settle,
// either by exhausting its budget or by oscillating.
func IsNotConverged(err error) bool {
	var be *BudgetExceededError
	if errors.As(err, &be) {
		return true
	}
	var ne *NormalizeError
	if errors.As(err, &ne) {
		return ne.Code == ErrCodeNotConverged || ne.Code == ErrCodeOscillation
	}
	return false
}

// ShapeViolation panics with a shape violation found by rule at t. Entry
// points recover it and return it as an error.
func ShapeViolation(rule string, t uexpr.Term, format string, args ...any) {
	panic(&NormalizeError{
		Code:    ErrCodeShapeViolation,
		Rule:    rule,
		Term:    t,
		Message: fmt.Sprintf(format, args...),
	})
}

// Recover converts a panicking *NormalizeError or *uexpr.ShapeError into
// *errp. Any other panic is re-raised. Use it deferred at entry points:
//
//	defer normalize.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	switch e := r.(type) {
	case *NormalizeError:
		*errp = e
	case *uexpr.ShapeError:
		*errp = &NormalizeError{Code: ErrCodeShapeViolation, Message: e.Message}
	default:
		panic(r)
	}
}
