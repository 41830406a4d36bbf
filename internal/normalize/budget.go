package normalize

import (
	"errors"
	"fmt"
)

// Budget counts the passes of one fixed-point loop and enforces a limit.
//
// Together with the OscillationDetector it guarantees that every driver
// terminates: the detector catches loops that revisit a term, the budget
// catches ones that keep producing new terms.
type Budget struct {
	loop    string
	limit   int
	current int
}

// NewBudget creates a budget of limit passes for the named loop.
func NewBudget(loop string, limit int) *Budget {
	return &Budget{loop: loop, limit: limit}
}

// Check counts one pass and fails once the limit is exceeded.
func (b *Budget) Check() error {
	b.current++
	if b.current > b.limit {
		return &BudgetExceededError{Loop: b.loop, Passes: b.current, Limit: b.limit}
	}
	return nil
}

// Passes returns the number of passes counted so far.
func (b *Budget) Passes() int {
	return b.current
}

// BudgetExceededError is returned when a fixed-point loop runs out of
// passes: normalization did not converge.
type BudgetExceededError struct {
	Loop   string
	Passes int
	Limit  int
}

// Error implements the error interface.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s did not converge: %d passes > %d limit", e.Loop, e.Passes, e.Limit)
}

// Unwrap lets errors.As match the NOT_CONVERGED NormalizeError.
func (e *BudgetExceededError) Unwrap() error {
	return &NormalizeError{Code: ErrCodeNotConverged, Rule: e.Loop, Message: "iteration budget exhausted"}
}

// IsBudgetExceeded reports whether err is a BudgetExceededError.
func IsBudgetExceeded(err error) bool {
	var be *BudgetExceededError
	return errors.As(err, &be)
}
