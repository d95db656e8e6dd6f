package analysis

import "github.com/san-kum/tdsim/internal/sim"

type Point struct{ X, Y float64 }

// PhasePortrait2D holds the trajectory in the (Vj, Vm) plane.
type PhasePortrait2D struct {
	Points []Point
	XLabel string
	YLabel string
}

func PhasePortrait(r *sim.VoltageResponse) *PhasePortrait2D {
	vj, vm := r.Vj(), r.Vm()
	portrait := &PhasePortrait2D{
		Points: make([]Point, len(vj)),
		XLabel: "VJ (mV)",
		YLabel: "VM (mV)",
	}
	for i := range vj {
		portrait.Points[i] = Point{X: vj[i], Y: vm[i]}
	}
	return portrait
}

// Crossings returns the linearly interpolated times at which values pass
// through level, in either direction.
func Crossings(times, values []float64, level float64) []float64 {
	var out []float64
	for i := 1; i < len(values); i++ {
		a, b := values[i-1]-level, values[i]-level
		if a == 0 && i == 1 {
			out = append(out, times[0])
		}
		if b == 0 {
			out = append(out, times[i])
			continue
		}
		if a*b < 0 {
			frac := a / (a - b)
			out = append(out, times[i-1]+frac*(times[i]-times[i-1]))
		}
	}
	return out
}
