package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/tdsim/internal/analysis"
	"github.com/san-kum/tdsim/internal/config"
	"github.com/san-kum/tdsim/internal/metrics"
	"github.com/san-kum/tdsim/internal/sim"
)

// Outcome is one finished simulation with its measurements.
type Outcome struct {
	Config   *config.Config
	Response *sim.VoltageResponse
	Summary  analysis.Summary
	Metrics  map[string]float64
	Elapsed  time.Duration
}

type Experiment struct {
	cfg *config.Config
	log *slog.Logger
}

// New copies cfg; later changes to it do not affect the experiment.
func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg.Clone(), log: slog.Default()}
}

func (e *Experiment) WithLogger(l *slog.Logger) *Experiment {
	e.log = l
	return e
}

func (e *Experiment) Config() *config.Config { return e.cfg.Clone() }

func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	forcing, err := e.cfg.Forcing()
	if err != nil {
		return nil, err
	}
	sc, err := e.cfg.SimConfig()
	if err != nil {
		return nil, err
	}

	e.log.Debug("simulating",
		"name", e.cfg.Name,
		"protocol", e.cfg.Protocol.Kind,
		"method", sc.Integrator.Name(),
		"t_max", sc.TMax)

	start := time.Now()
	r, err := sim.New(ctx, forcing, sc)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", e.name(), err)
	}
	out := &Outcome{
		Config:   e.cfg.Clone(),
		Response: r,
		Summary:  analysis.Summarize(r),
		Metrics:  metrics.Of(r),
		Elapsed:  time.Since(start),
	}

	e.log.Debug("simulated",
		"name", e.cfg.Name,
		"samples", out.Summary.Samples,
		"steps", out.Summary.Stats.Steps,
		"rejected", out.Summary.Stats.Rejected,
		"elapsed", out.Elapsed)
	return out, nil
}

func (e *Experiment) name() string {
	if e.cfg.Name != "" {
		return e.cfg.Name
	}
	return e.cfg.Protocol.Kind
}

// Run simulates a single configuration.
func Run(ctx context.Context, cfg *config.Config) (*Outcome, error) {
	return New(cfg).Run(ctx)
}
