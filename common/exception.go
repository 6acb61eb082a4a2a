package common

import (
	"errors"
	"runtime"
)

// CurFuncName returns the name of the function that called it. Log lines are
// prefixed with it so a failure can be traced back to its origin.
func CurFuncName() string {
	pc := make([]uintptr, 1)
	runtime.Callers(2, pc)
	f := runtime.FuncForPC(pc[0])
	return f.Name()
}

// ErrValidation is matched by every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation error")

// ValidationError reports a business rule violated by a candidate record or
// by the arguments of a partial update. It is raised before the store is
// touched, so it never leaves the store half-modified.
type ValidationError struct {
	Reason string
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
