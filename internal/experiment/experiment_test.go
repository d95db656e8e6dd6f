package experiment_test

import (
	"context"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tdsim/internal/config"
	"github.com/san-kum/tdsim/internal/dynamo"
	"github.com/san-kum/tdsim/internal/experiment"
)

func quickStep() *config.Config {
	cfg := config.GetPreset("quick-step")
	cfg.TMax = 3000
	return cfg
}

var _ = Describe("Run", func() {
	It("simulates and summarizes a preset", func() {
		out, err := experiment.Run(context.Background(), quickStep())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Response.TMax()).To(Equal(3000.0))
		Expect(out.Summary.Samples).To(Equal(out.Response.Len()))
		Expect(math.Abs(out.Summary.FinalVm + 107.195)).To(BeNumerically("<", 0.05))
	})

	It("is unaffected by later changes to the config", func() {
		cfg := quickStep()
		exp := experiment.New(cfg)
		cfg.TMax = -1

		out, err := exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Config.TMax).To(Equal(3000.0))
	})

	It("rejects an invalid config", func() {
		cfg := quickStep()
		cfg.Method = "euler"
		_, err := experiment.Run(context.Background(), cfg)
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})
})

var _ = Describe("RunSweep", func() {
	var sweep *experiment.ParameterSweep

	BeforeEach(func() {
		sweep = &experiment.ParameterSweep{
			Base:    quickStep(),
			Param:   "v_step",
			Min:     -60,
			Max:     -20,
			Steps:   3,
			Workers: 2,
		}
	})

	It("spaces the values evenly and ends at Max", func() {
		Expect(sweep.Values()).To(Equal([]float64{-60, -40, -20}))

		sweep.Steps = 1
		Expect(sweep.Values()).To(Equal([]float64{-60}))
	})

	It("returns results in sweep order", func() {
		results, err := experiment.RunSweep(context.Background(), sweep)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))

		for i, want := range []float64{-60, -40, -20} {
			Expect(results[i].Value).To(Equal(want))
			Expect(results[i].Config.Protocol.Step.VStep).To(Equal(want))
			Expect(results[i].Config.Name).To(Equal(
				map[float64]string{-60: "quick-step_v_step=-60", -40: "quick-step_v_step=-40", -20: "quick-step_v_step=-20"}[want]))
		}

		single, err := experiment.Run(context.Background(), quickStep())
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Summary.FinalVm).To(Equal(single.Summary.FinalVm))
		Expect(results[0].Summary.Stats).To(Equal(single.Summary.Stats))
	})

	It("rejects unknown parameters before running anything", func() {
		sweep.Param = "slope"
		_, err := experiment.RunSweep(context.Background(), sweep)
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})

	It("rejects empty sweeps", func() {
		sweep.Steps = 0
		_, err := experiment.RunSweep(context.Background(), sweep)
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})

	It("rejects values that make the config invalid", func() {
		sweep.Param = "t_max"
		sweep.Min, sweep.Max = -1, 1000
		_, err := experiment.RunSweep(context.Background(), sweep)
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})

	It("stops on cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := experiment.RunSweep(ctx, sweep)
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(err).NotTo(MatchError(dynamo.ErrIntegration))
	})
})

var _ = Describe("Scenario", func() {
	const doc = `
name: batch
description: two quick runs
workers: 2
runs:
  - preset: quick-step
    name: first
    t_max: 2500
  - name: second
    protocol:
      kind: constant
    t_max: 1000
    method: rk45
    params:
      gj: 0.2
`

	It("resolves each run over its preset", func() {
		sc, err := experiment.ParseScenario([]byte(doc))
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.Name).To(Equal("batch"))
		Expect(sc.Runs).To(HaveLen(2))

		first, err := sc.Runs[0].Config()
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Name).To(Equal("first"))
		Expect(first.TMax).To(Equal(2500.0))
		Expect(first.Protocol.Step.TPolarization).To(Equal(2000.0))

		second, err := sc.Runs[1].Config()
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Protocol.Kind).To(Equal("constant"))
		Expect(second.Method).To(Equal("rk45"))
		Expect(second.Constants.GJ).To(Equal(0.2))
	})

	It("runs in scenario order", func() {
		path := filepath.Join(GinkgoT().TempDir(), "batch.yaml")
		Expect(os.WriteFile(path, []byte(doc), 0644)).To(Succeed())

		sc, err := experiment.LoadScenario(path)
		Expect(err).NotTo(HaveOccurred())

		outs, err := experiment.RunScenario(context.Background(), sc)
		Expect(err).NotTo(HaveOccurred())
		Expect(outs).To(HaveLen(2))
		Expect(outs[0].Config.Name).To(Equal("first"))
		Expect(outs[0].Response.TMax()).To(Equal(2500.0))
		Expect(outs[1].Response.Method()).To(Equal("rk45"))
		Expect(math.Abs(outs[1].Summary.FinalVm + 48)).To(BeNumerically("<", 1e-3))
	})

	It("rejects unknown presets and empty scenarios", func() {
		_, err := experiment.ParseScenario([]byte("name: empty\n"))
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))

		_, err = experiment.ScenarioRun{Preset: "nope"}.Config()
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})
})
