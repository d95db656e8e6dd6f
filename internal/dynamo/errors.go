package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a configuration or forcing value that cannot be simulated.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrIntegration indicates the solver could not reach the end of the horizon
	// within its tolerances and step limits.
	ErrIntegration = errors.New("dynamo: integration failed")

	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrTooManySteps indicates the step budget ran out before the horizon.
	ErrTooManySteps = errors.New("dynamo: step limit exceeded")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with simulation context.
// It matches ErrIntegration unless the run was canceled.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

func (e *SimulationError) Is(target error) bool {
	return target == ErrIntegration && !errors.Is(e.Wrapped, ErrContextCanceled)
}
