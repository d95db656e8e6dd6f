package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tdsim/internal/dynamo"
	"github.com/san-kum/tdsim/internal/gating"
	"github.com/san-kum/tdsim/internal/integrators"
	"github.com/san-kum/tdsim/internal/physics"
	"github.com/san-kum/tdsim/internal/sim"
	"github.com/san-kum/tdsim/internal/stimulus"
)

func run(f physics.Forcing, tMax float64) (*sim.VoltageResponse, error) {
	cfg := sim.DefaultConfig()
	cfg.TMax = tMax
	return sim.New(context.Background(), f, cfg)
}

var _ = Describe("VoltageResponse", func() {
	Describe("step scenario", Ordered, func() {
		var (
			r      *sim.VoltageResponse
			times  []float64
			vj, vm []float64
		)

		BeforeAll(func() {
			var err error
			r, err = sim.New(context.Background(), stimulus.DefaultStep(), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			times, vj, vm = r.Times(), r.Vj(), r.Vm()
		})

		It("starts exactly at the initial condition", func() {
			Expect(times[0]).To(Equal(0.0))
			Expect(vj[0]).To(Equal(0.0))
			Expect(vm[0]).To(Equal(physics.DefaultConstants().VRest))
		})

		It("covers the horizon on an increasing grid", func() {
			Expect(times[len(times)-1]).To(Equal(100000.0))
			for i := 1; i < len(times); i++ {
				Expect(times[i]).To(BeNumerically(">", times[i-1]))
			}
			Expect(r.Stats().Steps).To(Equal(r.Len() - 1))
			Expect(r.Method()).To(Equal("bdf"))
		})

		It("rests at the potassium reversal potential before the ramp", func() {
			for i, t := range times {
				if t < 1000 || t > 49000 {
					continue
				}
				Expect(math.Abs(vj[i])).To(BeNumerically("<", 1e-3), "Vj at t=%v", t)
				Expect(math.Abs(vm[i]+48)).To(BeNumerically("<", 1e-3), "Vm at t=%v", t)
			}
		})

		It("departs during the polarization ramp", func() {
			first := -1.0
			for i, t := range times {
				if t >= 1000 && math.Abs(vm[i]+48) > 0.01 {
					first = t
					break
				}
			}
			Expect(first).To(BeNumerically(">=", 49000))
			Expect(first).To(BeNumerically("<=", 50000))
		})

		It("falls monotonically while the gate ramps down", func() {
			n := 0
			for i := 1; i < len(times); i++ {
				if times[i-1] < 49000 || times[i] > 50000 {
					continue
				}
				n++
				Expect(vm[i]).To(BeNumerically("<=", vm[i-1]+1e-4), "Vm at t=%v", times[i])
				Expect(vj[i]).To(BeNumerically("<=", vj[i-1]+1e-4), "Vj at t=%v", times[i])
			}
			Expect(n).To(BeNumerically(">", 5))
		})

		It("settles well before the end of the run", func() {
			final := r.Final()
			Expect(final[0]).To(BeNumerically("~", -58.377, 0.05))
			Expect(final[1]).To(BeNumerically("~", -107.195, 0.05))
			for i, t := range times {
				if t < 90000 {
					continue
				}
				Expect(vj[i]).To(BeNumerically("~", final[0], 1e-3))
				Expect(vm[i]).To(BeNumerically("~", final[1], 1e-3))
			}
		})

		It("reconstructs the driving voltages exactly", func() {
			d := r.Derived()
			step := stimulus.DefaultStep()
			for i, t := range times {
				Expect(d.VLG[i]).To(Equal(step.Voltage(t)))
				Expect(d.VJM[i]).To(Equal(vm[i] - vj[i]))
				Expect(d.VFM[i]).To(Equal(vm[i] - d.VLG[i]))
			}
		})

		DescribeTable("derives probabilities and currents from the membrane voltages",
			func(at float64) {
				i := 0
				for i+1 < len(times) && times[i] < at {
					i++
				}
				c := physics.DefaultConstants()
				d := r.Derived()

				vlg := stimulus.DefaultStep().Voltage(times[i])
				pjm := gating.OpenProbability(vm[i]-vj[i], c.Vh, c.Km)
				pfm := gating.OpenProbability(vm[i]-vlg, c.Vh, c.Km)
				attached := c.MembraneArea * c.AttachedFraction
				free := c.MembraneArea * (1 - c.AttachedFraction)

				Expect(d.PJM[i]).To(Equal(pjm))
				Expect(d.PFM[i]).To(Equal(pfm))
				Expect(d.IKJ[i]).To(Equal(attached * c.GKJ * pjm * (vm[i] - vj[i] - c.VK)))
				Expect(d.IKF[i]).To(Equal(free * c.GKF * pfm * (vm[i] - vlg - c.VK)))
				Expect(d.IJ[i]).To(Equal(attached * c.GJ * vj[i]))
			},
			Entry("at rest", 0.0),
			Entry("on the ramp", 49500.0),
			Entry("at the end of the ramp", 50000.0),
			Entry("while settling", 52000.0),
			Entry("at t_max", 100000.0),
		)

		It("scales the initial currents by the attached and free areas", func() {
			d := r.Derived()
			// Vjm = Vfm = -36 mV, P = 1/(1+exp(-3.2))
			Expect(d.PJM[0]).To(BeNumerically("~", 0.9608342772, 1e-9))
			Expect(d.IKJ[0]).To(BeNumerically("~", 2.8753498990e-8, 1e-16))
			Expect(d.IKF[0]).To(BeNumerically("~", 2.0127449293e-8, 1e-16))
			Expect(d.IJ[0]).To(Equal(0.0))
		})

		It("derives identical quantities on every call", func() {
			Expect(r.Derived()).To(Equal(r.Derived()))
			Expect(r.Samples()).To(Equal(r.Samples()))
		})

		It("keeps open probabilities inside (0, 1] and currents finite", func() {
			d := r.Derived()
			for i := range times {
				Expect(d.PJM[i]).To(BeNumerically(">", 0))
				Expect(d.PJM[i]).To(BeNumerically("<=", 1))
				Expect(d.PFM[i]).To(BeNumerically(">", 0))
				Expect(d.PFM[i]).To(BeNumerically("<=", 1))
				Expect(dynamo.State{d.IKJ[i], d.IKF[i], d.IJ[i]}.IsValid()).To(BeTrue())
			}
		})

		It("returns copies of the trajectory", func() {
			v := r.Vm()
			v[0] = 42
			Expect(r.Vm()[0]).To(Equal(physics.DefaultConstants().VRest))
		})

		It("tabulates samples in column order", func() {
			samples := r.Samples()
			Expect(samples).To(HaveLen(r.Len()))
			Expect(sim.Columns()).To(HaveLen(len(samples[0].Row())))
			Expect(sim.Columns()[0]).To(Equal("t(s)"))

			last := samples[len(samples)-1]
			Expect(last.Seconds).To(Equal(100.0))
			Expect(last.Row()[0]).To(Equal(last.Seconds))
			Expect(last.Row()[3]).To(Equal(last.VM))
			Expect(r.Seconds()[len(samples)-1]).To(Equal(last.Seconds))
		})
	})

	Describe("constant stimulus", func() {
		It("converges to a balanced fixed point", func() {
			r, err := run(stimulus.Constant{V: 0}, 5000)
			Expect(err).NotTo(HaveOccurred())

			c := r.Constants()
			x := r.Final()
			Expect(x[0]).To(BeNumerically("~", 0, 1e-4))
			Expect(x[1]).To(BeNumerically("~", c.VK, 1e-4))

			dvj, dvm := physics.Derivative(r.TMax(), x[0], x[1], c, stimulus.Constant{V: 0})
			Expect(math.Abs(dvj)).To(BeNumerically("<", 1e-4))
			Expect(math.Abs(dvm)).To(BeNumerically("<", 1e-4))

			r0 := c.AttachedFraction
			jj := c.JunctionCurrent(x[1] - x[0])
			jf := c.FreeCurrent(x[1])
			Expect(math.Abs((1-r0)*jf + r0*jj)).To(BeNumerically("<", 1e-4))
		})

		It("agrees between BDF and RK45", func() {
			cfg := sim.DefaultConfig()
			cfg.TMax = 200
			bdf, err := sim.New(context.Background(), stimulus.Constant{V: -10}, cfg)
			Expect(err).NotTo(HaveOccurred())

			cfg.Integrator = integrators.NewRK45()
			rk, err := sim.New(context.Background(), stimulus.Constant{V: -10}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(rk.Method()).To(Equal("rk45"))

			Expect(rk.Final()[0]).To(BeNumerically("~", bdf.Final()[0], 1e-3))
			Expect(rk.Final()[1]).To(BeNumerically("~", bdf.Final()[1], 1e-3))
		})
	})

	Describe("flat sweep", func() {
		It("reproduces the step response at v_low", func() {
			sweep := stimulus.Sweep{VLow: -60, VHigh: -60, TPolarization: 50000, PolarizationDelay: 1000, Slope: 0.005}
			step := stimulus.Step{VStep: -60, TPolarization: 50000, PolarizationDelay: 1000}

			a, err := run(sweep, 60000)
			Expect(err).NotTo(HaveOccurred())
			b, err := run(step, 60000)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Times()).To(Equal(b.Times()))
			Expect(a.Vm()).To(Equal(b.Vm()))
			Expect(a.Derived().VLG).To(Equal(b.Derived().VLG))
		})
	})

	Describe("sweep", func() {
		It("follows the excursion towards v_high and returns", func() {
			r, err := run(stimulus.DefaultSweep(), 100000)
			Expect(err).NotTo(HaveOccurred())

			final := r.Final()
			Expect(final[1]).To(BeNumerically("~", -107.195, 0.05))

			d := r.Derived()
			peak := math.Inf(-1)
			for _, v := range d.VLG {
				peak = math.Max(peak, v)
			}
			Expect(peak).To(BeNumerically("~", 0, 1e-9))
		})
	})

	Describe("short horizon", func() {
		It("integrates up to t_max before the polarization", func() {
			r, err := run(stimulus.DefaultStep(), 20000)
			Expect(err).NotTo(HaveOccurred())
			times := r.Times()
			Expect(times[len(times)-1]).To(Equal(20000.0))
			Expect(r.Final()[1]).To(BeNumerically("~", -48, 1e-3))
		})
	})

	Describe("invalid input", func() {
		DescribeTable("is rejected before integrating",
			func(f physics.Forcing, mod func(*sim.Config)) {
				cfg := sim.DefaultConfig()
				mod(&cfg)
				r, err := sim.New(context.Background(), f, cfg)
				Expect(r).To(BeNil())
				Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
				Expect(err).NotTo(MatchError(dynamo.ErrIntegration))
			},
			Entry("zero horizon", stimulus.DefaultStep(), func(c *sim.Config) { c.TMax = 0 }),
			Entry("negative horizon", stimulus.DefaultStep(), func(c *sim.Config) { c.TMax = -5 }),
			Entry("NaN horizon", stimulus.DefaultStep(), func(c *sim.Config) { c.TMax = math.NaN() }),
			Entry("infinite horizon", stimulus.DefaultStep(), func(c *sim.Config) { c.TMax = math.Inf(1) }),
			Entry("zero delay", stimulus.Step{VStep: -60, TPolarization: 50000}, func(*sim.Config) {}),
			Entry("no forcing", nil, func(*sim.Config) {}),
			Entry("bad constants", stimulus.DefaultStep(), func(c *sim.Config) { c.Constants.Km = 0 }),
			Entry("bad tolerance", stimulus.DefaultStep(), func(c *sim.Config) { c.Solver.AbsTol = -1 }),
		)
	})

	Describe("non-finite forcing", func() {
		It("names the first non-finite input", func() {
			nan := func(float64) float64 { return math.NaN() }
			f := physics.ForcingFuncs{V: nan, DV: nan, DSD: nan}
			for i := 0; i < 20; i++ {
				_, err := sim.New(context.Background(), f, sim.DefaultConfig())
				Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
				Expect(err.Error()).To(ContainSubstring("forcing Vlg(0)"))
			}
		})
	})

	Describe("solver failure", func() {
		It("reports an exhausted step budget as an integration failure", func() {
			cfg := sim.DefaultConfig()
			cfg.Solver.MaxSteps = 3
			r, err := sim.New(context.Background(), stimulus.DefaultStep(), cfg)
			Expect(r).To(BeNil())
			Expect(err).To(MatchError(dynamo.ErrIntegration))
			Expect(err).To(MatchError(dynamo.ErrTooManySteps))
		})

		It("reports cancellation separately", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := sim.New(ctx, stimulus.DefaultStep(), sim.DefaultConfig())
			Expect(err).To(MatchError(dynamo.ErrContextCanceled))
			Expect(err).NotTo(MatchError(dynamo.ErrIntegration))
		})
	})
})
