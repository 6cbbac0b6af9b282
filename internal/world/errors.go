package world

import (
	"errors"
	"fmt"
)

// Domain errors for world operations.
var (
	// ErrNotInitialized indicates Step or Resize was called before Init.
	ErrNotInitialized = errors.New("world: not initialized")

	// ErrInvalidDimensions indicates a non-positive container width or height.
	ErrInvalidDimensions = errors.New("world: invalid container dimensions")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("world: parameter out of valid bounds")

	// ErrUnknownIntegrator indicates an integrator name with no registered constructor.
	ErrUnknownIntegrator = errors.New("world: unknown integrator")
)

// StepError wraps an error with step context.
type StepError struct {
	Step    uint64
	Bodies  int
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%d bodies): %v", e.Step, e.Bodies, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
