package physics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/tdsim/internal/dynamo"
	"github.com/san-kum/tdsim/internal/gating"
)

// Forcing supplies the externally applied voltages of one simulation.
type Forcing interface {
	Voltage(t float64) float64     // liquid-gate voltage Vlg
	VoltageRate(t float64) float64 // dVlg/dt
	DrainRate(t float64) float64   // dVsd/dt
}

// ForcingFuncs adapts three plain functions to Forcing.
type ForcingFuncs struct {
	V   func(t float64) float64
	DV  func(t float64) float64
	DSD func(t float64) float64
}

func (f ForcingFuncs) Voltage(t float64) float64     { return f.V(t) }
func (f ForcingFuncs) VoltageRate(t float64) float64 { return f.DV(t) }
func (f ForcingFuncs) DrainRate(t float64) float64   { return f.DSD(t) }

// JunctionCurrent is the specific K current through the attached membrane
// for a driving voltage vjm = Vm - Vj.
func (c Constants) JunctionCurrent(vjm float64) float64 {
	return c.GKJ * gating.OpenProbability(vjm, c.Vh, c.Km) * (vjm - c.VK)
}

// FreeCurrent is the specific K current through the free membrane for a
// driving voltage vfm = Vm - Vlg.
func (c Constants) FreeCurrent(vfm float64) float64 {
	return c.GKF * gating.OpenProbability(vfm, c.Vh, c.Km) * (vfm - c.VK)
}

// currentSlope is d/dv of g * P(v) * (v - VK).
func (c Constants) currentSlope(g, v float64) float64 {
	return g * (gating.Slope(v, c.Vh, c.Km)*(v-c.VK) + gating.OpenProbability(v, c.Vh, c.Km))
}

// Derivative evaluates (dVj/dt, dVm/dt) at time t. dVj/dt is computed
// first and feeds dVm/dt.
func Derivative(t, vj, vm float64, c Constants, f Forcing) (dvj, dvm float64) {
	return derivative(t, vj, vm, c, c.Coupling(), f)
}

func derivative(t, vj, vm float64, c Constants, k Coupling, f Forcing) (dvj, dvm float64) {
	vlg := f.Voltage(t)
	dvlg := f.VoltageRate(t)
	r := c.AttachedFraction

	jj := c.JunctionCurrent(vm - vj)
	jf := c.FreeCurrent(vm - vlg)

	dvj = k.Gate*dvlg - k.Leak*vj + k.Current*(jj-jf) + k.Drain*f.DrainRate(t)
	dvm = r*dvj + (1-r)*dvlg - 1/c.Cm*((1-r)*jf+r*jj)
	return dvj, dvm
}

// Junction is the two-state membrane model as a dynamo.System.
// State: [Vj, Vm]
type Junction struct {
	constants Constants
	coupling  Coupling
	forcing   Forcing
}

func NewJunction(c Constants, f Forcing) *Junction {
	return &Junction{
		constants: c,
		coupling:  c.Coupling(),
		forcing:   f,
	}
}

func (j *Junction) StateDim() int { return 2 }

func (j *Junction) Derive(x dynamo.State, t float64) dynamo.State {
	dvj, dvm := derivative(t, x[0], x[1], j.constants, j.coupling, j.forcing)
	return dynamo.State{dvj, dvm}
}

// Jacobian implements dynamo.Jacobian.
func (j *Junction) Jacobian(dst *mat.Dense, x dynamo.State, t float64) {
	c, k := j.constants, j.coupling
	r := c.AttachedFraction
	vj, vm := x[0], x[1]

	djj := c.currentSlope(c.GKJ, vm-vj)
	djf := c.currentSlope(c.GKF, vm-j.forcing.Voltage(t))

	// Jj depends on Vm - Vj, Jf on Vm only.
	jvjvj := -k.Leak - k.Current*djj
	jvjvm := k.Current * (djj - djf)

	dst.Set(0, 0, jvjvj)
	dst.Set(0, 1, jvjvm)
	dst.Set(1, 0, r*jvjvj+r/c.Cm*djj)
	dst.Set(1, 1, r*jvjvm-1/c.Cm*((1-r)*djf+r*djj))
}

func (j *Junction) Constants() Constants { return j.constants }
