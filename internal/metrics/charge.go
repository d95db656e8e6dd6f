package metrics

import "github.com/san-kum/tdsim/internal/sim"

// Charge integrates a current over time with the trapezoid rule.
// uA x ms gives nC.
type Charge struct {
	name    string
	current func(sim.Sample) float64

	started bool
	lastT   float64
	lastI   float64
	total   float64
}

func NewCharge(name string, current func(sim.Sample) float64) *Charge {
	return &Charge{name: name, current: current}
}

func (c *Charge) Name() string { return c.name }

func (c *Charge) Observe(s sim.Sample) {
	i := c.current(s)
	if c.started {
		c.total += 0.5 * (i + c.lastI) * (s.T - c.lastT)
	}
	c.started = true
	c.lastT, c.lastI = s.T, i
}

func (c *Charge) Value() float64 { return c.total }

func (c *Charge) Reset() {
	c.started = false
	c.total = 0
}

// Dissipation integrates the power IJ*VJ lost in the junction seal.
// uA x mV x ms gives pJ.
type Dissipation struct {
	Charge
}

func NewDissipation() *Dissipation {
	return &Dissipation{Charge{
		name:    "seal_dissipation",
		current: func(s sim.Sample) float64 { return s.IJ * s.VJ },
	}}
}
