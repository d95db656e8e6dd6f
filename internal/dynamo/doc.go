// Package dynamo provides core simulation primitives for ordinary
// differential equations.
//
// The package defines the fundamental interfaces and types shared by the
// integrators and the membrane model:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Jacobian]: optional analytic df/dX
//   - [Integrator]: adaptive solver that records every accepted step
//   - [Config]: tolerances and step limits
//
// # Errors
//
// Configuration problems wrap [ErrInvalidParameter]. Solver failures are
// reported as *[SimulationError], which matches [ErrIntegration] with
// errors.Is and unwraps to the specific cause ([ErrStepTooSmall],
// [ErrTooManySteps], [ErrInvalidState]).
package dynamo
