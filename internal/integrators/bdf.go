package integrators

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/tdsim/internal/dynamo"
)

const (
	bdfMaxOrder   = 5
	newtonMaxIter = 4
	epsilon       = 2.220446049250313e-16
)

// NDF corrections to the classic BDF formulas (Shampine & Reichelt).
var bdfKappa = [bdfMaxOrder + 1]float64{0, -0.1850, -1.0 / 9.0, -0.0823, -0.0415, 0}

var bdfGamma, bdfAlpha, bdfErrorConst = bdfCoefficients()

func bdfCoefficients() (gamma, alpha, errConst [bdfMaxOrder + 1]float64) {
	for k := 1; k <= bdfMaxOrder; k++ {
		gamma[k] = gamma[k-1] + 1/float64(k)
	}
	for k := 0; k <= bdfMaxOrder; k++ {
		alpha[k] = (1 - bdfKappa[k]) * gamma[k]
		errConst[k] = bdfKappa[k]*gamma[k] + 1/float64(k+1)
	}
	return gamma, alpha, errConst
}

// BDF is a variable order (1-5), variable step backward differentiation
// integrator for stiff systems. History is kept as a table of backward
// differences that is rescaled whenever the step changes; the implicit
// equation of each step is solved by simplified Newton iteration.
type BDF struct{}

func NewBDF() *BDF {
	return &BDF{}
}

func (b *BDF) Name() string { return "bdf" }

func (b *BDF) Integrate(ctx context.Context, dyn dynamo.System, x0 dynamo.State, t0, tEnd float64, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := checkProblem(dyn, x0, t0, tEnd, cfg); err != nil {
		return nil, err
	}

	n := len(x0)
	res := &dynamo.Result{}
	p := &problem{sys: dyn, cfg: cfg, stats: &res.Stats}

	t := t0
	y := x0.Clone()
	res.Append(t, y)

	f := p.eval(y, t)
	if !f.IsValid() {
		return nil, failure(res, t, y, dynamo.ErrInvalidState)
	}

	hAbs := cfg.FirstStep
	if hAbs == 0 {
		hAbs = initialStep(p, t, tEnd, y, f, 1)
	}
	maxStep := p.maxStep()
	newtonTol := math.Max(10*epsilon/cfg.RelTol, math.Min(0.03, math.Sqrt(cfg.RelTol)))

	jac := mat.NewDense(n, n, nil)
	p.jacobian(jac, y, t)

	d := mat.NewDense(bdfMaxOrder+3, n, nil)
	copy(d.RawRowView(0), y)
	floats.ScaleTo(d.RawRowView(1), hAbs, f)

	order := 1
	nEqual := 0
	var lu *mat.LU

	scale := make([]float64, n)
	yPred := make([]float64, n)
	psi := make([]float64, n)

	for t < tEnd {
		if err := guard(ctx, res, cfg, t, y); err != nil {
			return nil, err
		}

		hMin := minStep(t)
		if hAbs > maxStep {
			changeD(d, order, maxStep/hAbs)
			hAbs = maxStep
			nEqual = 0
		} else if hAbs < hMin {
			changeD(d, order, hMin/hAbs)
			hAbs = hMin
			nEqual = 0
		}

		currentJac := false
		var (
			tNew, errNorm, stepSafety float64
			yNew, corr                dynamo.State
		)
		for accepted := false; !accepted; {
			if hAbs < hMin {
				return nil, failure(res, t, y, dynamo.ErrStepTooSmall)
			}

			tNew = t + hAbs
			if tNew > tEnd {
				tNew = tEnd
				changeD(d, order, (tNew-t)/hAbs)
				nEqual = 0
				lu = nil
			}
			h := tNew - t
			hAbs = h

			for i := range yPred {
				yPred[i] = 0
				psi[i] = 0
			}
			for i := 0; i <= order; i++ {
				floats.Add(yPred, d.RawRowView(i))
			}
			for i := 1; i <= order; i++ {
				floats.AddScaled(psi, bdfGamma[i], d.RawRowView(i))
			}
			floats.Scale(1/bdfAlpha[order], psi)
			errorScale(scale, yPred, yPred, cfg)

			c := h / bdfAlpha[order]
			converged := false
			var iters int
			for !converged {
				if lu == nil {
					lu = factorize(jac, c)
					res.Stats.Factorizations++
				}
				converged, iters, yNew, corr = b.newton(p, tNew, yPred, c, psi, lu, scale, newtonTol)
				if !converged {
					if currentJac {
						break
					}
					p.jacobian(jac, yPred, tNew)
					lu = nil
					currentJac = true
				}
			}

			if !converged {
				hAbs *= 0.5
				changeD(d, order, 0.5)
				nEqual = 0
				lu = nil
				res.Stats.Rejected++
				continue
			}

			stepSafety = safety * float64(2*newtonMaxIter+1) / float64(2*newtonMaxIter+iters)
			errorScale(scale, yNew, yNew, cfg)
			errNorm = math.Abs(bdfErrorConst[order]) * corr.RMSNorm(scale)
			if math.IsNaN(errNorm) {
				errNorm = math.Inf(1)
			}

			if errNorm > 1 {
				factor := math.Max(minFactor, stepSafety*math.Pow(errNorm, -1/float64(order+1)))
				hAbs *= factor
				changeD(d, order, factor)
				nEqual = 0
				res.Stats.Rejected++
				continue
			}
			accepted = true
		}

		nEqual++
		t = tNew
		y = yNew
		res.Stats.Steps++
		if cfg.ValidateState && !y.IsValid() {
			return nil, failure(res, t, y, dynamo.ErrInvalidState)
		}
		res.Append(t, y)

		floats.SubTo(d.RawRowView(order+2), corr, d.RawRowView(order+1))
		copy(d.RawRowView(order+1), corr)
		for i := order; i >= 0; i-- {
			floats.Add(d.RawRowView(i), d.RawRowView(i+1))
		}

		if nEqual < order+1 {
			continue
		}

		// Compare the error estimates of orders order-1, order and order+1
		// and move to the one that allows the largest next step.
		errLower, errHigher := math.Inf(1), math.Inf(1)
		if order > 1 {
			errLower = math.Abs(bdfErrorConst[order-1]) * dynamo.State(d.RawRowView(order)).RMSNorm(scale)
		}
		if order < bdfMaxOrder {
			errHigher = math.Abs(bdfErrorConst[order+1]) * dynamo.State(d.RawRowView(order+2)).RMSNorm(scale)
		}

		best, bestFactor := 1, math.Pow(errNorm, -1/float64(order+1))
		for i, e := range [3]float64{errLower, errNorm, errHigher} {
			if fac := math.Pow(e, -1/float64(order+i)); fac > bestFactor {
				best, bestFactor = i, fac
			}
		}
		order += best - 1

		factor := math.Min(maxFactor, stepSafety*bestFactor)
		hAbs *= factor
		changeD(d, order, factor)
		nEqual = 0
		lu = nil
	}

	return res, nil
}

// newton solves the implicit step equation for the correction to the
// predicted state. It gives up as soon as the iteration looks unlikely to
// converge within newtonMaxIter iterations.
func (b *BDF) newton(p *problem, t float64, yPred []float64, c float64, psi []float64, lu *mat.LU, scale []float64, tol float64) (converged bool, iters int, y, corr dynamo.State) {
	n := len(yPred)
	y = dynamo.State(yPred).Clone()
	corr = make(dynamo.State, n)

	rhs := mat.NewVecDense(n, nil)
	dy := mat.NewVecDense(n, nil)
	dyData := dy.RawVector().Data

	dyNormOld := -1.0
	for k := 0; k < newtonMaxIter; k++ {
		iters = k + 1

		f := p.eval(y, t)
		if !f.IsValid() {
			break
		}
		for i := 0; i < n; i++ {
			rhs.SetVec(i, c*f[i]-psi[i]-corr[i])
		}
		if !solveLU(lu, dy, rhs) {
			break
		}

		dyNorm := dynamo.State(dyData).RMSNorm(scale)
		rate := -1.0
		if dyNormOld >= 0 {
			rate = dyNorm / dyNormOld
		}
		if rate >= 0 && (rate >= 1 || math.Pow(rate, float64(newtonMaxIter-k))/(1-rate)*dyNorm > tol) {
			break
		}

		floats.Add(y, dyData)
		floats.Add(corr, dyData)

		if dyNorm == 0 || (rate >= 0 && rate/(1-rate)*dyNorm < tol) {
			converged = true
			break
		}
		dyNormOld = dyNorm
	}
	return converged, iters, y, corr
}

// factorize returns the LU decomposition of I - c*J.
func factorize(jac *mat.Dense, c float64) *mat.LU {
	n, _ := jac.Dims()
	a := mat.NewDense(n, n, nil)
	a.Scale(-c, jac)
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+1)
	}
	var lu mat.LU
	lu.Factorize(a)
	return &lu
}

// solveLU accepts ill-conditioned solves and rejects singular or non-finite ones.
func solveLU(lu *mat.LU, dst *mat.VecDense, b mat.Vector) bool {
	if err := lu.SolveVecTo(dst, false, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return false
		}
	}
	return dynamo.State(dst.RawVector().Data).IsValid()
}

// computeR builds the matrix that maps backward differences taken with step
// h to differences taken with step factor*h.
func computeR(order int, factor float64) *mat.Dense {
	n := order + 1
	m := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		m.Set(0, j, 1)
	}
	for i := 1; i < n; i++ {
		for j := 1; j < n; j++ {
			m.Set(i, j, (float64(i-1)-factor*float64(j))/float64(i))
		}
	}
	for i := 1; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, m.At(i, j)*m.At(i-1, j))
		}
	}
	return m
}

// changeD rescales the first order+1 rows of the difference table in place
// for a step change by factor.
func changeD(d *mat.Dense, order int, factor float64) {
	var ru mat.Dense
	ru.Mul(computeR(order, factor), computeR(order, 1))

	_, cols := d.Dims()
	top := d.Slice(0, order+1, 0, cols).(*mat.Dense)
	var scaled mat.Dense
	scaled.Mul(ru.T(), top)
	top.Copy(&scaled)
}

