package integrators

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/tdsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the explicit Dormand-Prince 5(4) pair with first-same-as-last
// stage reuse. It is not suited to stiff problems and serves as a
// reference solution for mildly stiff runs.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   safety,
		minScale: minFactor,
		maxScale: maxFactor,
	}
}

func (r *RK45) Name() string { return "rk45" }

func (r *RK45) Integrate(ctx context.Context, dyn dynamo.System, x0 dynamo.State, t0, tEnd float64, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := checkProblem(dyn, x0, t0, tEnd, cfg); err != nil {
		return nil, err
	}

	n := len(x0)
	res := &dynamo.Result{}
	p := &problem{sys: dyn, cfg: cfg, stats: &res.Stats}

	t := t0
	x := x0.Clone()
	res.Append(t, x)

	k1 := p.eval(x, t)
	if !k1.IsValid() {
		return nil, failure(res, t, x, dynamo.ErrInvalidState)
	}

	dt := cfg.FirstStep
	if dt == 0 {
		dt = initialStep(p, t, tEnd, x, k1, 4)
	}
	maxStep := p.maxStep()
	scale := make([]float64, n)
	errEst := make([]float64, n)

	for t < tEnd {
		if err := guard(ctx, res, cfg, t, x); err != nil {
			return nil, err
		}

		hMin := minStep(t)
		dt = math.Max(math.Min(dt, maxStep), hMin)

		rejected := false
		for {
			if dt < hMin {
				return nil, failure(res, t, x, dynamo.ErrStepTooSmall)
			}
			tNew := t + dt
			if tNew > tEnd {
				tNew = tEnd
			}
			h := tNew - t

			xNew, k7, ks := r.step(p, x, k1, t, h)
			errorScale(scale, x, xNew, cfg)
			for i := 0; i < n; i++ {
				errEst[i] = h * (dc1*ks[0][i] + dc3*ks[2][i] + dc4*ks[3][i] + dc5*ks[4][i] + dc6*ks[5][i] + dc7*k7[i])
			}
			errRatio := dynamo.State(errEst).RMSNorm(scale)
			if math.IsNaN(errRatio) {
				errRatio = math.Inf(1)
			}

			if errRatio < 1 {
				factor := r.maxScale
				if errRatio > 0 {
					factor = math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
				}
				if rejected {
					factor = math.Min(1, factor)
				}
				dt = h * factor

				t, x, k1 = tNew, xNew, k7
				break
			}

			dt = h * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.2))
			rejected = true
			res.Stats.Rejected++
		}

		res.Stats.Steps++
		if cfg.ValidateState && !x.IsValid() {
			return nil, failure(res, t, x, dynamo.ErrInvalidState)
		}
		res.Append(t, x)
	}

	return res, nil
}

// step advances x by dt and returns the new state, its derivative (the
// first stage of the next step) and the stages k1..k6.
func (r *RK45) step(p *problem, x, k1 dynamo.State, t, dt float64) (dynamo.State, dynamo.State, [6]dynamo.State) {
	n := len(x)
	stage := func() []float64 {
		return append([]float64(nil), x...)
	}

	x2 := stage()
	floats.AddScaled(x2, dt*b21, k1)
	k2 := p.eval(x2, t+a2*dt)

	x3 := stage()
	for i := 0; i < n; i++ {
		x3[i] += dt * (b31*k1[i] + b32*k2[i])
	}
	k3 := p.eval(x3, t+a3*dt)

	x4 := stage()
	for i := 0; i < n; i++ {
		x4[i] += dt * (b41*k1[i] + b42*k2[i] + b43*k3[i])
	}
	k4 := p.eval(x4, t+a4*dt)

	x5 := stage()
	for i := 0; i < n; i++ {
		x5[i] += dt * (b51*k1[i] + b52*k2[i] + b53*k3[i] + b54*k4[i])
	}
	k5 := p.eval(x5, t+a5*dt)

	x6 := stage()
	for i := 0; i < n; i++ {
		x6[i] += dt * (b61*k1[i] + b62*k2[i] + b63*k3[i] + b64*k4[i] + b65*k5[i])
	}
	k6 := p.eval(x6, t+dt)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}
	k7 := p.eval(xNew, t+dt)

	return xNew, k7, [6]dynamo.State{k1, k2, k3, k4, k5, k6}
}
