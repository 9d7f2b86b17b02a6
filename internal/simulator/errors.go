package simulator

import (
	"errors"
	"fmt"
)

// ErrInvalidWorkflow marks errors caused by a bad workflow definition
// (unknown operation type, missing step name, limits exceeded). Handlers
// map these to client errors; everything else is a server-side fault.
var ErrInvalidWorkflow = errors.New("invalid workflow definition")

// UnknownOperationError reports a step config with an operation type
// outside OperationTypes.
type UnknownOperationError struct {
	Op string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation type %q", e.Op)
}

// Unwrap makes errors.Is(err, ErrInvalidWorkflow) work.
func (e *UnknownOperationError) Unwrap() error {
	return ErrInvalidWorkflow
}

// UnknownVariantError reports a request for a simulator tier that does not
// exist.
type UnknownVariantError struct {
	Variant string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown workflow variant %q", e.Variant)
}

func (e *UnknownVariantError) Unwrap() error {
	return ErrInvalidWorkflow
}

// StepError is the failure of a single step.
//
// Simulated distinguishes a deliberately configured failure (the
// error-demonstration path) from an unexpected fault such as a cancelled
// context. Callers must never confuse the two: a simulated failure is a
// well-formed result, a fault is a broken run.
type StepError struct {
	Step      string
	Type      OperationType
	Cause     error
	Simulated bool
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Cause)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *StepError) Unwrap() error {
	return e.Cause
}

// IsSimulatedFailure reports whether err is a deliberately configured step
// failure rather than an unexpected fault.
func IsSimulatedFailure(err error) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr) && stepErr.Simulated
}
