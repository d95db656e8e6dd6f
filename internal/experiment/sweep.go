package experiment

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/tdsim/internal/config"
	"github.com/san-kum/tdsim/internal/dynamo"
)

// ParameterSweep varies one named parameter of Base over an evenly
// spaced range.
type ParameterSweep struct {
	Base    *config.Config
	Param   string
	Min     float64
	Max     float64
	Steps   int
	Workers int // 0 means GOMAXPROCS
}

type SweepResult struct {
	Value float64
	*Outcome
}

// Values lists the parameter values in sweep order. A single step uses Min.
func (s *ParameterSweep) Values() []float64 {
	if s.Steps < 1 {
		return nil
	}
	values := make([]float64, s.Steps)
	if s.Steps == 1 {
		values[0] = s.Min
		return values
	}
	return floats.Span(values, s.Min, s.Max)
}

// Configs builds one configuration per value, rejecting the whole sweep
// if any of them is invalid.
func (s *ParameterSweep) Configs() ([]*config.Config, error) {
	if s.Base == nil {
		return nil, fmt.Errorf("%w: sweep has no base config", dynamo.ErrInvalidParameter)
	}
	if s.Steps < 1 {
		return nil, fmt.Errorf("%w: sweep needs at least one step, got %d", dynamo.ErrInvalidParameter, s.Steps)
	}

	values := s.Values()
	cfgs := make([]*config.Config, len(values))
	for i, v := range values {
		cfg := s.Base.Clone()
		if err := cfg.SetParam(s.Param, v); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
		}
		if cfg.Name == "" {
			cfg.Name = cfg.Protocol.Kind
		}
		cfg.Name = fmt.Sprintf("%s_%s=%g", cfg.Name, s.Param, v)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", s.Param, v, err)
		}
		cfgs[i] = cfg
	}
	return cfgs, nil
}

// RunSweep runs every point of the sweep concurrently and returns the
// results in sweep order. The first failure cancels the remaining runs.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	cfgs, err := sweep.Configs()
	if err != nil {
		return nil, err
	}
	outcomes, err := RunAll(ctx, cfgs, sweep.Workers)
	if err != nil {
		return nil, err
	}

	values := sweep.Values()
	results := make([]SweepResult, len(outcomes))
	for i, out := range outcomes {
		results[i] = SweepResult{Value: values[i], Outcome: out}
	}
	return results, nil
}

// RunAll runs cfgs with at most workers simulations at a time and returns
// the outcomes in input order.
func RunAll(ctx context.Context, cfgs []*config.Config, workers int) ([]*Outcome, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]*Outcome, len(cfgs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, cfg := range cfgs {
		i, cfg := i, cfg
		g.Go(func() error {
			out, err := Run(ctx, cfg)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
