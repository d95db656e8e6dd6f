package metrics

import (
	"sort"

	"github.com/san-kum/tdsim/internal/sim"
)

// Metric accumulates one scalar over the samples of a run, observed in
// time order.
type Metric interface {
	Name() string
	Observe(s sim.Sample)
	Value() float64
	Reset()
}

// Defaults returns a fresh set of the metrics stored with every run.
func Defaults() []Metric {
	return []Metric{
		NewCharge("junction_charge", func(s sim.Sample) float64 { return s.IJ }),
		NewCharge("attached_k_charge", func(s sim.Sample) float64 { return s.IKJ }),
		NewCharge("free_k_charge", func(s sim.Sample) float64 { return s.IKF }),
		NewDissipation(),
		NewTimeBelow("hyperpolarized_time", -60),
	}
}

func Names() []string {
	ms := Defaults()
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name()
	}
	sort.Strings(names)
	return names
}

// Evaluate resets ms, feeds them every sample and collects their values.
func Evaluate(samples []sim.Sample, ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for _, s := range samples {
			m.Observe(s)
		}
		out[m.Name()] = m.Value()
	}
	return out
}

// Of evaluates the default metrics on r.
func Of(r *sim.VoltageResponse) map[string]float64 {
	return Evaluate(r.Samples(), Defaults())
}
