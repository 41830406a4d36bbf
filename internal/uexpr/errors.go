package uexpr

import (
	"errors"
	"fmt"
)

// ShapeError reports a term whose structure violates a constructor or
// primitive precondition. Primitives panic with *ShapeError; the
// normalizer entry points recover it.
type ShapeError struct {
	Message string
}

func (e *ShapeError) Error() string {
	return "shape violation: " + e.Message
}

func shapeViolation(format string, args ...any) *ShapeError {
	return &ShapeError{Message: fmt.Sprintf(format, args...)}
}

// IsShapeError reports whether err is or wraps a *ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}
