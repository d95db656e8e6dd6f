package dynamo

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// RMSNorm is the root-mean-square of s divided elementwise by scale.
// Integrators use it to compare errors against mixed abs/rel tolerances.
func (s State) RMSNorm(scale []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for i, v := range s {
		q := v / scale[i]
		sum += q * q
	}
	return math.Sqrt(sum / float64(len(s)))
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a first order ODE dx/dt = f(x, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Jacobian is implemented by systems that can fill df/dx analytically.
// Integrators fall back to finite differences otherwise.
type Jacobian interface {
	Jacobian(dst *mat.Dense, x State, t float64)
}

// Integrator advances a System from t0 to tEnd, recording every accepted step.
type Integrator interface {
	Name() string
	Integrate(ctx context.Context, dyn System, x0 State, t0, tEnd float64, cfg Config) (*Result, error)
}

type Config struct {
	RelTol        float64 `yaml:"rtol" json:"rtol"`
	AbsTol        float64 `yaml:"atol" json:"atol"`
	MaxSteps      int     `yaml:"max_steps" json:"max_steps"`
	MaxStep       float64 `yaml:"max_step,omitempty" json:"max_step,omitempty"`     // 0 means unbounded
	FirstStep     float64 `yaml:"first_step,omitempty" json:"first_step,omitempty"` // 0 means chosen automatically
	ValidateState bool    `yaml:"validate_state" json:"validate_state"`
}

func DefaultConfig() Config {
	return Config{
		RelTol:        1e-5,
		AbsTol:        1e-8,
		MaxSteps:      500000,
		ValidateState: true,
	}
}

func (c Config) Validate() error {
	if !(c.RelTol > 0) || math.IsInf(c.RelTol, 0) {
		return fmt.Errorf("%w: rtol must be positive, got %g", ErrInvalidParameter, c.RelTol)
	}
	if !(c.AbsTol > 0) || math.IsInf(c.AbsTol, 0) {
		return fmt.Errorf("%w: atol must be positive, got %g", ErrInvalidParameter, c.AbsTol)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("%w: max steps must be positive, got %d", ErrInvalidParameter, c.MaxSteps)
	}
	if c.MaxStep < 0 || c.FirstStep < 0 {
		return fmt.Errorf("%w: step bounds must not be negative", ErrInvalidParameter)
	}
	return nil
}

type Stats struct {
	Steps          int `json:"steps"`
	Rejected       int `json:"rejected"`
	Evaluations    int `json:"evaluations"`
	Jacobians      int `json:"jacobians"`
	Factorizations int `json:"factorizations"`
}

type Result struct {
	Times  []float64
	States []State
	Stats  Stats
}

// Append records one accepted sample.
func (r *Result) Append(t float64, x State) {
	r.Times = append(r.Times, t)
	r.States = append(r.States, x.Clone())
}
