package metrics

import "github.com/san-kum/tdsim/internal/sim"

// TimeBelow measures how long VM stays below a threshold, interpolating
// linearly where it crosses within a step.
type TimeBelow struct {
	name      string
	threshold float64

	started bool
	lastT   float64
	lastV   float64
	total   float64
}

func NewTimeBelow(name string, threshold float64) *TimeBelow {
	return &TimeBelow{name: name, threshold: threshold}
}

func (m *TimeBelow) Name() string { return m.name }

func (m *TimeBelow) Observe(s sim.Sample) {
	if m.started {
		m.total += m.below(m.lastT, m.lastV, s.T, s.VM)
	}
	m.started = true
	m.lastT, m.lastV = s.T, s.VM
}

func (m *TimeBelow) below(t0, v0, t1, v1 float64) float64 {
	dt := t1 - t0
	a, b := v0 < m.threshold, v1 < m.threshold
	switch {
	case a && b:
		return dt
	case !a && !b:
		return 0
	}
	frac := (m.threshold - v0) / (v1 - v0)
	if a {
		return frac * dt
	}
	return (1 - frac) * dt
}

func (m *TimeBelow) Value() float64 { return m.total }

func (m *TimeBelow) Reset() {
	m.started = false
	m.total = 0
}
