package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

var ErrShortSeries = errors.New("analysis: series needs at least two samples")

// Departure returns the first time at or after from where values leave
// baseline by more than threshold.
func Departure(times, values []float64, from, baseline, threshold float64) (float64, bool) {
	for i, t := range times {
		if t < from {
			continue
		}
		if math.Abs(values[i]-baseline) > threshold {
			return t, true
		}
	}
	return 0, false
}

// SettlingTime returns the earliest sample time after which values stay
// within tol of their final value.
func SettlingTime(times, values []float64, tol float64) float64 {
	if len(times) == 0 {
		return math.NaN()
	}
	final := values[len(values)-1]
	for i := len(values) - 1; i >= 0; i-- {
		if math.Abs(values[i]-final) > tol {
			if i+1 < len(times) {
				return times[i+1]
			}
			return times[i]
		}
	}
	return times[0]
}

type Extremum struct {
	T float64 `json:"t"`
	V float64 `json:"v"`
}

func Extrema(times, values []float64) (lo, hi Extremum) {
	if len(values) == 0 {
		return Extremum{math.NaN(), math.NaN()}, Extremum{math.NaN(), math.NaN()}
	}
	i, j := floats.MinIdx(values), floats.MaxIdx(values)
	return Extremum{times[i], values[i]}, Extremum{times[j], values[j]}
}

// Resample interpolates a non-uniformly sampled series linearly onto n
// evenly spaced times spanning the same interval.
func Resample(times, values []float64, n int) ([]float64, []float64, error) {
	if len(times) < 2 || n < 2 {
		return nil, nil, ErrShortSeries
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(times, values); err != nil {
		return nil, nil, err
	}

	grid := floats.Span(make([]float64, n), times[0], times[len(times)-1])
	out := make([]float64, n)
	for i, t := range grid {
		out[i] = pl.Predict(t)
	}
	return grid, out, nil
}
