package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/tdsim/internal/config"
	"github.com/san-kum/tdsim/internal/dynamo"
	"github.com/san-kum/tdsim/internal/experiment"
)

// Objective scores an outcome; lower is better.
type Objective func(out *experiment.Outcome) float64

// Value looks a named quantity up in the summary scalars, then in the
// run metrics. NaN means the outcome has no such quantity.
func Value(out *experiment.Outcome, name string) float64 {
	if v, ok := out.Summary.Scalars()[name]; ok {
		return v
	}
	if v, ok := out.Metrics[name]; ok {
		return v
	}
	return math.NaN()
}

// Target scores outcomes by the distance of a named quantity from target.
func Target(name string, target float64) Objective {
	return func(out *experiment.Outcome) float64 {
		return math.Abs(Value(out, name) - target)
	}
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

func (g *GridSearch) WithWorkers(n int) *GridSearch {
	g.workers = n
	return g
}

type Candidate struct {
	Params  map[string]float64
	Score   float64
	Outcome *experiment.Outcome
}

// Points enumerates the grid, last parameter varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(points)*len(g.ranges[depth]))
		for _, p := range points {
			for _, v := range g.ranges[depth] {
				q := make(map[string]float64, len(p)+1)
				for k, pv := range p {
					q[k] = pv
				}
				q[name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points
}

// Search simulates every grid point over base and returns all candidates
// ranked by objective, best first. Candidates scoring NaN rank last.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, objective Objective) ([]Candidate, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("%w: grid needs one range per parameter", dynamo.ErrInvalidParameter)
	}
	for i, r := range g.ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: empty range for %s", dynamo.ErrInvalidParameter, g.paramNames[i])
		}
	}

	points := g.Points()
	cfgs := make([]*config.Config, len(points))
	for i, p := range points {
		cfg := base.Clone()
		for _, name := range g.paramNames {
			if err := cfg.SetParam(name, p[name]); err != nil {
				return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
			}
		}
		cfg.Name = label(base.Name, g.paramNames, p)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Name, err)
		}
		cfgs[i] = cfg
	}

	outs, err := experiment.RunAll(ctx, cfgs, g.workers)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(outs))
	for i, out := range outs {
		candidates[i] = Candidate{Params: points[i], Score: objective(out), Outcome: out}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Score, candidates[j].Score
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a < b
	})
	return candidates, nil
}

func label(base string, names []string, p map[string]float64) string {
	parts := make([]string, 0, len(names)+1)
	if base != "" {
		parts = append(parts, base)
	}
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%g", name, p[name]))
	}
	return strings.Join(parts, "_")
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
