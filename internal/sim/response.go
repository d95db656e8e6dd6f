package sim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/tdsim/internal/dynamo"
	"github.com/san-kum/tdsim/internal/integrators"
	"github.com/san-kum/tdsim/internal/physics"
)

type Config struct {
	TMax       float64
	Constants  physics.Constants
	Solver     dynamo.Config
	Integrator dynamo.Integrator // nil selects BDF
}

// DefaultConfig integrates 100000 ms with BDF at rtol 1e-5, atol 1e-8.
func DefaultConfig() Config {
	return Config{
		TMax:       100000,
		Constants:  physics.DefaultConstants(),
		Solver:     dynamo.DefaultConfig(),
		Integrator: integrators.NewBDF(),
	}
}

func (c Config) Validate() error {
	if math.IsNaN(c.TMax) || math.IsInf(c.TMax, 0) || c.TMax <= 0 {
		return fmt.Errorf("%w: t_max must be positive and finite, got %g", dynamo.ErrInvalidParameter, c.TMax)
	}
	if err := c.Constants.Validate(); err != nil {
		return err
	}
	return c.Solver.Validate()
}

// VoltageResponse is the solved trajectory of one simulation. It is built
// once by New and never changes afterwards.
type VoltageResponse struct {
	constants physics.Constants
	forcing   physics.Forcing
	tMax      float64
	method    string

	times []float64
	vj    []float64
	vm    []float64
	stats dynamo.Stats
}

// New integrates the junction model under forcing from (0, VRest) over
// [0, cfg.TMax]. Failures to reach TMax match dynamo.ErrIntegration; bad
// inputs match dynamo.ErrInvalidParameter.
func New(ctx context.Context, forcing physics.Forcing, cfg Config) (*VoltageResponse, error) {
	if forcing == nil {
		return nil, fmt.Errorf("%w: no forcing", dynamo.ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkForcing(forcing); err != nil {
		return nil, err
	}

	integ := cfg.Integrator
	if integ == nil {
		integ = integrators.NewBDF()
	}

	sys := physics.NewJunction(cfg.Constants, forcing)
	r := &VoltageResponse{
		constants: cfg.Constants,
		forcing:   forcing,
		tMax:      cfg.TMax,
		method:    integ.Name(),
	}

	x := cfg.Constants.InitialState()
	bounds := segments(forcing, cfg.TMax)
	for i := 0; i+1 < len(bounds); i++ {
		t0, t1 := bounds[i], bounds[i+1]

		solver := cfg.Solver
		solver.MaxSteps -= r.stats.Steps
		if solver.MaxSteps <= 0 {
			return nil, &dynamo.SimulationError{
				Step:    r.stats.Steps,
				Time:    t0,
				State:   x,
				Wrapped: fmt.Errorf("%w: %d steps", dynamo.ErrTooManySteps, cfg.Solver.MaxSteps),
			}
		}

		res, err := integ.Integrate(ctx, sys, x, t0, t1, solver)
		if err != nil {
			return nil, fmt.Errorf("integrate [%g, %g]: %w", t0, t1, err)
		}
		r.append(res, i > 0)
		x = res.States[len(res.States)-1]
	}

	return r, nil
}

// checkForcing rejects forcing that is not finite at t = 0.
func checkForcing(f physics.Forcing) error {
	values := []struct {
		name string
		v    float64
	}{
		{"Vlg", f.Voltage(0)},
		{"dVlg/dt", f.VoltageRate(0)},
		{"dVsd/dt", f.DrainRate(0)},
	}
	for _, x := range values {
		if math.IsNaN(x.v) || math.IsInf(x.v, 0) {
			return fmt.Errorf("%w: forcing %s(0) = %g", dynamo.ErrInvalidParameter, x.name, x.v)
		}
	}
	return nil
}

// segments splits [0, tMax] at the forcing breakpoints, if it reports any,
// so that no step straddles a corner of the stimulus.
func segments(f physics.Forcing, tMax float64) []float64 {
	bounds := []float64{0}
	if b, ok := f.(interface{ Breakpoints() []float64 }); ok {
		pts := append([]float64(nil), b.Breakpoints()...)
		sort.Float64s(pts)
		for _, p := range pts {
			if p > bounds[len(bounds)-1] && p < tMax {
				bounds = append(bounds, p)
			}
		}
	}
	return append(bounds, tMax)
}

func (r *VoltageResponse) append(res *dynamo.Result, skipFirst bool) {
	start := 0
	if skipFirst {
		start = 1
	}
	for i := start; i < len(res.Times); i++ {
		r.times = append(r.times, res.Times[i])
		r.vj = append(r.vj, res.States[i][0])
		r.vm = append(r.vm, res.States[i][1])
	}

	r.stats.Steps += res.Stats.Steps
	r.stats.Rejected += res.Stats.Rejected
	r.stats.Evaluations += res.Stats.Evaluations
	r.stats.Jacobians += res.Stats.Jacobians
	r.stats.Factorizations += res.Stats.Factorizations
}

func (r *VoltageResponse) Len() int                     { return len(r.times) }
func (r *VoltageResponse) TMax() float64                { return r.tMax }
func (r *VoltageResponse) Method() string               { return r.method }
func (r *VoltageResponse) Stats() dynamo.Stats          { return r.stats }
func (r *VoltageResponse) Constants() physics.Constants { return r.constants }
func (r *VoltageResponse) Forcing() physics.Forcing     { return r.forcing }

// Times returns the solution time grid in ms.
func (r *VoltageResponse) Times() []float64 { return clone(r.times) }

// Seconds returns the time grid rescaled to seconds.
func (r *VoltageResponse) Seconds() []float64 {
	out := make([]float64, len(r.times))
	for i, t := range r.times {
		out[i] = t * 1e-3
	}
	return out
}

func (r *VoltageResponse) Vj() []float64 { return clone(r.vj) }
func (r *VoltageResponse) Vm() []float64 { return clone(r.vm) }

// Final returns the state at t = TMax.
func (r *VoltageResponse) Final() dynamo.State {
	n := len(r.times) - 1
	return dynamo.State{r.vj[n], r.vm[n]}
}

func clone(s []float64) []float64 {
	return append([]float64(nil), s...)
}
