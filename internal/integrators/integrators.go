package integrators

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/tdsim/internal/dynamo"
)

const (
	minFactor = 0.2
	maxFactor = 10.0
	safety    = 0.9
)

// New returns the integrator registered under name. An empty name selects BDF.
func New(name string) (dynamo.Integrator, error) {
	switch strings.ToLower(name) {
	case "", "bdf":
		return NewBDF(), nil
	case "rk45":
		return NewRK45(), nil
	default:
		return nil, fmt.Errorf("%w: unknown integrator %q", dynamo.ErrInvalidParameter, name)
	}
}

func Names() []string {
	return []string{"bdf", "rk45"}
}

// problem counts every right-hand side and Jacobian evaluation of one run.
type problem struct {
	sys   dynamo.System
	cfg   dynamo.Config
	stats *dynamo.Stats
}

func (p *problem) eval(x []float64, t float64) dynamo.State {
	p.stats.Evaluations++
	return p.sys.Derive(x, t)
}

func (p *problem) jacobian(dst *mat.Dense, x []float64, t float64) {
	p.stats.Jacobians++
	if j, ok := p.sys.(dynamo.Jacobian); ok {
		j.Jacobian(dst, x, t)
		return
	}
	fd.Jacobian(dst, func(y, in []float64) {
		copy(y, p.eval(in, t))
	}, x, &fd.JacobianSettings{Formula: fd.Central})
}

func (p *problem) maxStep() float64 {
	if p.cfg.MaxStep > 0 {
		return p.cfg.MaxStep
	}
	return math.Inf(1)
}

func checkProblem(dyn dynamo.System, x0 dynamo.State, t0, tEnd float64, cfg dynamo.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(x0) != dyn.StateDim() {
		return fmt.Errorf("%w: initial state has %d components, system has %d",
			dynamo.ErrInvalidParameter, len(x0), dyn.StateDim())
	}
	if !x0.IsValid() {
		return fmt.Errorf("%w: initial state is not finite", dynamo.ErrInvalidParameter)
	}
	if math.IsNaN(t0) || math.IsInf(t0, 0) || math.IsNaN(tEnd) || math.IsInf(tEnd, 0) {
		return fmt.Errorf("%w: time span must be finite", dynamo.ErrInvalidParameter)
	}
	if tEnd <= t0 {
		return fmt.Errorf("%w: end time %g must exceed start time %g", dynamo.ErrInvalidParameter, tEnd, t0)
	}
	return nil
}

// guard reports cancellation and an exhausted step budget before each step.
func guard(ctx context.Context, res *dynamo.Result, cfg dynamo.Config, t float64, x dynamo.State) error {
	if err := ctx.Err(); err != nil {
		return failure(res, t, x, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err))
	}
	if res.Stats.Steps >= cfg.MaxSteps {
		return failure(res, t, x, fmt.Errorf("%w: %d steps", dynamo.ErrTooManySteps, cfg.MaxSteps))
	}
	return nil
}

func failure(res *dynamo.Result, t float64, x dynamo.State, err error) error {
	return &dynamo.SimulationError{
		Step:    res.Stats.Steps,
		Time:    t,
		State:   x.Clone(),
		Wrapped: err,
	}
}

// minStep is the smallest step that still moves t by a meaningful amount.
func minStep(t float64) float64 {
	return 10 * math.Abs(math.Nextafter(t, math.Inf(1))-t)
}

func errorScale(dst, a, b []float64, cfg dynamo.Config) []float64 {
	for i := range dst {
		dst[i] = cfg.AbsTol + cfg.RelTol*math.Max(math.Abs(a[i]), math.Abs(b[i]))
	}
	return dst
}

// initialStep guesses a first step from the size of the solution, its
// derivative and a second derivative estimate, for a method whose local
// error is of the given order.
func initialStep(p *problem, t0, tEnd float64, y0, f0 []float64, order int) float64 {
	interval := tEnd - t0
	n := len(y0)
	scale := errorScale(make([]float64, n), y0, y0, p.cfg)

	d0 := dynamo.State(y0).RMSNorm(scale)
	d1 := dynamo.State(f0).RMSNorm(scale)
	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, interval)

	y1 := floats.AddScaledTo(make([]float64, n), y0, h0, f0)
	f1 := p.eval(y1, t0+h0)
	d2 := dynamo.State(floats.SubTo(make([]float64, n), f1, f0)).RMSNorm(scale) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1/float64(order+1))
	}
	if math.IsNaN(h1) {
		h1 = h0
	}
	return math.Min(math.Min(100*h0, h1), math.Min(interval, p.maxStep()))
}
