package sim

import "github.com/san-kum/tdsim/internal/gating"

// Derived holds the secondary electrical quantities at every sample.
// Voltages in mV, currents in uA.
type Derived struct {
	VLG []float64 // liquid-gate voltage
	VJM []float64 // Vm - Vj, across the attached membrane
	VFM []float64 // Vm - Vlg, across the free membrane
	PJM []float64
	PFM []float64
	IKJ []float64 // K current through the attached membrane
	IKF []float64 // K current through the free membrane
	IJ  []float64 // junction leak current
}

// Derived recomputes the secondary quantities from the stored trajectory.
func (r *VoltageResponse) Derived() Derived {
	n := len(r.times)
	d := Derived{
		VLG: make([]float64, n),
		VJM: make([]float64, n),
		VFM: make([]float64, n),
		PJM: make([]float64, n),
		PFM: make([]float64, n),
		IKJ: make([]float64, n),
		IKF: make([]float64, n),
		IJ:  make([]float64, n),
	}

	c := r.constants
	attached := c.MembraneArea * c.AttachedFraction
	free := c.MembraneArea * (1 - c.AttachedFraction)

	for i, t := range r.times {
		vlg := r.forcing.Voltage(t)
		vjm := r.vm[i] - r.vj[i]
		vfm := r.vm[i] - vlg
		pjm := gating.OpenProbability(vjm, c.Vh, c.Km)
		pfm := gating.OpenProbability(vfm, c.Vh, c.Km)

		d.VLG[i] = vlg
		d.VJM[i] = vjm
		d.VFM[i] = vfm
		d.PJM[i] = pjm
		d.PFM[i] = pfm
		d.IKJ[i] = attached * c.GKJ * pjm * (vjm - c.VK)
		d.IKF[i] = free * c.GKF * pfm * (vfm - c.VK)
		d.IJ[i] = attached * c.GJ * r.vj[i]
	}
	return d
}

// Sample is one row of the tabular view.
type Sample struct {
	T       float64 `json:"t_ms"`
	Seconds float64 `json:"t_s"`
	VLG     float64 `json:"vlg"`
	VJ      float64 `json:"vj"`
	VM      float64 `json:"vm"`
	VFM     float64 `json:"vfm"`
	VJM     float64 `json:"vjm"`
	PFM     float64 `json:"pfm"`
	PJM     float64 `json:"pjm"`
	IKJ     float64 `json:"ikj"`
	IKF     float64 `json:"ikf"`
	IJ      float64 `json:"ij"`
}

var columns = []string{
	"t(s)", "VLG(mV)", "VJ(mV)", "VM(mV)", "VFM(mV)", "VJM(mV)",
	"PFM", "PJM", "IKJ(uA)", "IKF(uA)", "IJ(uA)",
}

// Columns names the fields of Sample.Row, in order.
func Columns() []string {
	return append([]string(nil), columns...)
}

func (s Sample) Row() []float64 {
	return []float64{s.Seconds, s.VLG, s.VJ, s.VM, s.VFM, s.VJM, s.PFM, s.PJM, s.IKJ, s.IKF, s.IJ}
}

func (r *VoltageResponse) Samples() []Sample {
	d := r.Derived()
	out := make([]Sample, len(r.times))
	for i, t := range r.times {
		out[i] = Sample{
			T:       t,
			Seconds: t * 1e-3,
			VLG:     d.VLG[i],
			VJ:      r.vj[i],
			VM:      r.vm[i],
			VFM:     d.VFM[i],
			VJM:     d.VJM[i],
			PFM:     d.PFM[i],
			PJM:     d.PJM[i],
			IKJ:     d.IKJ[i],
			IKF:     d.IKF[i],
			IJ:      d.IJ[i],
		}
	}
	return out
}
