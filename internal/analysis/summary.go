package analysis

import (
	"math"

	"github.com/san-kum/tdsim/internal/dynamo"
	"github.com/san-kum/tdsim/internal/sim"
)

const (
	DepartureThreshold = 0.01 // mV
	SettlingTolerance  = 1e-3 // mV
)

// Summary condenses one run into the figures printed after a simulation
// and stored with it.
type Summary struct {
	Samples   int          `json:"samples"`
	Stats     dynamo.Stats `json:"stats"`
	FinalVj   float64      `json:"final_vj"`
	FinalVm   float64      `json:"final_vm"`
	VmMin     Extremum     `json:"vm_min"`
	VmMax     Extremum     `json:"vm_max"`
	PeakIKJ   float64      `json:"peak_ikj"`
	PeakIKF   float64      `json:"peak_ikf"`
	Departure *float64     `json:"departure,omitempty"`
	Settling  float64      `json:"settling"`
}

// Summarize measures departure from the state at the first stimulus
// breakpoint, when the forcing reports breakpoints.
func Summarize(r *sim.VoltageResponse) Summary {
	times, vm := r.Times(), r.Vm()
	d := r.Derived()
	final := r.Final()

	s := Summary{
		Samples:  r.Len(),
		Stats:    r.Stats(),
		FinalVj:  final[0],
		FinalVm:  final[1],
		PeakIKJ:  peakAbs(d.IKJ),
		PeakIKF:  peakAbs(d.IKF),
		Settling: SettlingTime(times, vm, SettlingTolerance),
	}
	s.VmMin, s.VmMax = Extrema(times, vm)

	if b, ok := r.Forcing().(interface{ Breakpoints() []float64 }); ok {
		if bps := b.Breakpoints(); len(bps) > 0 {
			from := bps[0]
			baseline := valueAt(times, vm, from)
			if t, ok := Departure(times, vm, from, baseline, DepartureThreshold); ok {
				s.Departure = &t
			}
		}
	}
	return s
}

// valueAt returns the last sample at or before t.
func valueAt(times, values []float64, t float64) float64 {
	v := values[0]
	for i, ti := range times {
		if ti > t {
			break
		}
		v = values[i]
	}
	return v
}

func peakAbs(values []float64) float64 {
	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// Scalars flattens the summary into named values. departure is present
// only when the run left its baseline.
func (s Summary) Scalars() map[string]float64 {
	out := map[string]float64{
		"final_vj": s.FinalVj,
		"final_vm": s.FinalVm,
		"vm_min":   s.VmMin.V,
		"vm_max":   s.VmMax.V,
		"peak_ikj": s.PeakIKJ,
		"peak_ikf": s.PeakIKF,
		"settling": s.Settling,
		"steps":    float64(s.Stats.Steps),
	}
	if s.Departure != nil {
		out["departure"] = *s.Departure
	}
	return out
}
