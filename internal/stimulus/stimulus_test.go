package stimulus

import (
	"math"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRamp(t *testing.T) {
	const w = 1000.0
	tests := []struct {
		x, want, rate float64
	}{
		{-500, 0, 0},
		{0, 0, 0.5 / w},
		{250, 0.25, 1 / w},
		{500, 0.5, 1 / w},
		{w, 1, 0.5 / w},
		{5000, 1, 0},
	}

	for _, tt := range tests {
		if got := Ramp(w, tt.x); math.Abs(got-tt.want) > 1e-15 {
			t.Errorf("Ramp(%v, %v) = %v, want %v", w, tt.x, got, tt.want)
		}
		if got := RampRate(w, tt.x); math.Abs(got-tt.rate) > 1e-18 {
			t.Errorf("RampRate(%v, %v) = %v, want %v", w, tt.x, got, tt.rate)
		}
	}
}

func TestTriangle(t *testing.T) {
	const w = 4.0
	tests := []struct {
		x, want, rate float64
	}{
		{-10, 0, 0},
		{-4, 0, 0.5 / w},
		{-2, 0.5, 1 / w},
		{0, 1, 0},
		{1, 0.75, -1 / w},
		{4, 0, -0.5 / w},
		{9, 0, 0},
	}

	for _, tt := range tests {
		if got := Triangle(w, tt.x); math.Abs(got-tt.want) > 1e-15 {
			t.Errorf("Triangle(%v, %v) = %v, want %v", w, tt.x, got, tt.want)
		}
		if got := TriangleRate(w, tt.x); math.Abs(got-tt.rate) > 1e-15 {
			t.Errorf("TriangleRate(%v, %v) = %v, want %v", w, tt.x, got, tt.rate)
		}
	}
}

func TestRatesMatchVoltage(t *testing.T) {
	protocols := []Protocol{
		DefaultStep(),
		DefaultSweep(),
		Sweep{VLow: -20, VHigh: -70, VSD: 5, TPolarization: 3000, PolarizationDelay: 200, Slope: 0.1},
	}
	const h = 1e-3

	for _, p := range protocols {
		bps := p.Breakpoints()
		for tm := 0.0; tm < 80000; tm += 37.3 {
			near := false
			for _, bp := range bps {
				if math.Abs(tm-bp) < 1 {
					near = true
				}
			}
			if near {
				continue
			}
			fd := (p.Voltage(tm+h) - p.Voltage(tm-h)) / (2 * h)
			if got := p.VoltageRate(tm); math.Abs(got-fd) > 1e-6 {
				t.Fatalf("%s: VoltageRate(%v) = %v, finite difference %v", p.Kind(), tm, got, fd)
			}
		}
	}
}

func TestStep(t *testing.T) {
	s := Step{VStep: -60, VSD: 10, TPolarization: 50000, PolarizationDelay: 1000}

	if v := s.Voltage(0); v != 0 {
		t.Errorf("Voltage(0) = %v, want 0", v)
	}
	if v := s.Voltage(49000); v != 0 {
		t.Errorf("Voltage at onset = %v, want 0", v)
	}
	if v := s.Voltage(49500); math.Abs(v+30) > 1e-12 {
		t.Errorf("Voltage mid ramp = %v, want -30", v)
	}
	if v := s.Voltage(50000); v != -60 {
		t.Errorf("Voltage at t_pol = %v, want -60", v)
	}
	if v := s.Voltage(99999); v != -60 {
		t.Errorf("Voltage after ramp = %v, want -60", v)
	}
	if r := s.VoltageRate(49500); math.Abs(r+0.06) > 1e-15 {
		t.Errorf("VoltageRate mid ramp = %v, want -0.06", r)
	}
	if r := s.DrainRate(49500); math.Abs(r-0.01) > 1e-15 {
		t.Errorf("DrainRate mid ramp = %v, want 0.01", r)
	}
	if r := s.DrainRate(60000); r != 0 {
		t.Errorf("DrainRate after ramp = %v, want 0", r)
	}
}

func TestSweep_Excursion(t *testing.T) {
	s := Sweep{VLow: -60, VHigh: 0, TPolarization: 50000, PolarizationDelay: 1000, Slope: 0.005}

	w := s.HalfWidth()
	if w != 12000 {
		t.Fatalf("HalfWidth = %v, want 12000", w)
	}
	if v := s.Voltage(50000 + w); math.Abs(v) > 1e-9 {
		t.Errorf("peak voltage = %v, want 0", v)
	}
	if v := s.Voltage(50000 + 2*w + 1); math.Abs(v+60) > 1e-9 {
		t.Errorf("voltage after sweep = %v, want -60", v)
	}
	if r := s.VoltageRate(50000 + w/2); math.Abs(r-0.005) > 1e-15 {
		t.Errorf("rising rate = %v, want 0.005", r)
	}
	if r := s.VoltageRate(50000 + 1.5*w); math.Abs(r+0.005) > 1e-15 {
		t.Errorf("falling rate = %v, want -0.005", r)
	}

	bps := s.Breakpoints()
	want := []float64{49000, 50000, 62000, 74000}
	if len(bps) != len(want) {
		t.Fatalf("Breakpoints = %v, want %v", bps, want)
	}
	for i := range want {
		if bps[i] != want[i] {
			t.Errorf("Breakpoints[%d] = %v, want %v", i, bps[i], want[i])
		}
	}
}

func TestSweep_FlatReducesToStep(t *testing.T) {
	sweep := Sweep{VLow: -45, VHigh: -45, VSD: 3, TPolarization: 50000, PolarizationDelay: 1000, Slope: 0.01}
	step := Step{VStep: -45, VSD: 3, TPolarization: 50000, PolarizationDelay: 1000}

	for tm := 0.0; tm <= 100000; tm += 13.7 {
		if a, b := sweep.Voltage(tm), step.Voltage(tm); a != b {
			t.Fatalf("Voltage(%v): sweep %v, step %v", tm, a, b)
		}
		if a, b := sweep.VoltageRate(tm), step.VoltageRate(tm); a != b {
			t.Fatalf("VoltageRate(%v): sweep %v, step %v", tm, a, b)
		}
		if a, b := sweep.DrainRate(tm), step.DrainRate(tm); a != b {
			t.Fatalf("DrainRate(%v): sweep %v, step %v", tm, a, b)
		}
	}
	if len(sweep.Breakpoints()) != 2 {
		t.Errorf("flat sweep breakpoints = %v", sweep.Breakpoints())
	}
}

func TestDegenerateDelay(t *testing.T) {
	s := Step{VStep: -60, TPolarization: 100, PolarizationDelay: 0}
	for _, tm := range []float64{0, 100, 500} {
		if v := s.Voltage(tm); !math.IsNaN(v) {
			t.Errorf("zero delay Voltage(%v) = %v, want NaN", tm, v)
		}
		if r := s.VoltageRate(tm); !math.IsNaN(r) && !math.IsInf(r, 0) && r != 0 {
			t.Errorf("zero delay VoltageRate(%v) = %v", tm, r)
		}
	}
}

func TestSpec_Protocol(t *testing.T) {
	tests := []struct {
		spec Spec
		kind string
	}{
		{Spec{Kind: KindConstant, Constant: Constant{V: -10}}, KindConstant},
		{Spec{Kind: KindStep, Step: DefaultStep()}, KindStep},
		{Spec{Kind: KindSweep, Sweep: DefaultSweep()}, KindSweep},
	}

	for _, tt := range tests {
		p, err := tt.spec.Protocol()
		if err != nil {
			t.Fatalf("Protocol(%s): %v", tt.kind, err)
		}
		if p.Kind() != tt.kind {
			t.Errorf("Kind() = %s, want %s", p.Kind(), tt.kind)
		}
		if back := SpecOf(p); back != tt.spec {
			t.Errorf("SpecOf round trip = %+v, want %+v", back, tt.spec)
		}
	}

	if _, err := (Spec{Kind: "pulse"}).Protocol(); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSpec_YAML(t *testing.T) {
	in := Spec{Kind: KindSweep, Sweep: DefaultSweep()}
	data, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Spec
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}

	doc := "kind: step\nstep:\n  v_step: -40\n  t_polarization: 2000\n  polarization_delay: 100\n"
	var parsed Spec
	if err := yaml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("unmarshal doc: %v", err)
	}
	if parsed.Step.VStep != -40 || parsed.Step.TPolarization != 2000 || parsed.Step.PolarizationDelay != 100 {
		t.Errorf("parsed = %+v", parsed.Step)
	}

	var partial Spec
	if err := yaml.Unmarshal([]byte("kind: sweep\nsweep:\n  v_high: 20\n"), &partial); err != nil {
		t.Fatalf("unmarshal partial: %v", err)
	}
	want := DefaultSweep()
	want.VHigh = 20
	if partial.Sweep != want {
		t.Errorf("partial sweep = %+v, want %+v", partial.Sweep, want)
	}
}

func TestSpec_SetParam(t *testing.T) {
	s := Spec{Kind: KindSweep, Sweep: DefaultSweep()}
	if err := s.SetParam("v_high", 20); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if s.Sweep.VHigh != 20 || s.Params()["v_high"] != 20 {
		t.Errorf("v_high not applied: %+v", s.Sweep)
	}
	if err := s.SetParam("v_step", 1); err == nil {
		t.Error("expected error for param of another kind")
	}

	st := Spec{Kind: KindStep, Step: DefaultStep()}
	if err := st.SetParam("polarization_delay", 250); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if st.Step.PolarizationDelay != 250 {
		t.Errorf("delay = %v, want 250", st.Step.PolarizationDelay)
	}
}
