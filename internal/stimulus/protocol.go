package stimulus

import (
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	KindConstant = "constant"
	KindStep     = "step"
	KindSweep    = "sweep"
)

// Protocol supplies the three forcing functions of the membrane model:
// liquid-gate voltage, its time derivative and the source-drain voltage
// derivative. Implementations are immutable values.
type Protocol interface {
	Kind() string
	Voltage(t float64) float64
	VoltageRate(t float64) float64
	DrainRate(t float64) float64
	// Breakpoints lists the times where the forcing is not smooth.
	Breakpoints() []float64
}

// Constant holds the liquid gate at a fixed voltage.
type Constant struct {
	V float64 `yaml:"v" json:"v"`
}

func (c Constant) Kind() string                { return KindConstant }
func (c Constant) Voltage(float64) float64     { return c.V }
func (c Constant) VoltageRate(float64) float64 { return 0 }
func (c Constant) DrainRate(float64) float64   { return 0 }
func (c Constant) Breakpoints() []float64      { return nil }

// Step ramps the liquid gate from 0 to VStep over PolarizationDelay, arriving
// at TPolarization, and holds it there. The source-drain voltage follows the
// same ramp towards VSD.
type Step struct {
	VStep             float64 `yaml:"v_step" json:"v_step"`
	VSD               float64 `yaml:"v_sd" json:"v_sd"`
	TPolarization     float64 `yaml:"t_polarization" json:"t_polarization"`
	PolarizationDelay float64 `yaml:"polarization_delay" json:"polarization_delay"`
}

func DefaultStep() Step {
	return Step{
		VStep:             -60,
		VSD:               0,
		TPolarization:     50000,
		PolarizationDelay: 1000,
	}
}

func (s Step) Kind() string { return KindStep }

func (s Step) onset() float64 { return s.TPolarization - s.PolarizationDelay }

func (s Step) Voltage(t float64) float64 {
	return s.VStep * Ramp(s.PolarizationDelay, t-s.onset())
}

func (s Step) VoltageRate(t float64) float64 {
	return s.VStep * RampRate(s.PolarizationDelay, t-s.onset())
}

func (s Step) DrainRate(t float64) float64 {
	return s.VSD * RampRate(s.PolarizationDelay, t-s.onset())
}

func (s Step) Breakpoints() []float64 {
	return []float64{s.onset(), s.TPolarization}
}

// Sweep polarizes to VLow like Step, then runs a triangular excursion to
// VHigh and back at the given Slope (mV per time unit) starting at
// TPolarization.
type Sweep struct {
	VLow              float64 `yaml:"v_low" json:"v_low"`
	VHigh             float64 `yaml:"v_high" json:"v_high"`
	VSD               float64 `yaml:"v_sd" json:"v_sd"`
	TPolarization     float64 `yaml:"t_polarization" json:"t_polarization"`
	PolarizationDelay float64 `yaml:"polarization_delay" json:"polarization_delay"`
	Slope             float64 `yaml:"slope" json:"slope"`
}

func DefaultSweep() Sweep {
	return Sweep{
		VLow:              -60,
		VHigh:             0,
		VSD:               0,
		TPolarization:     50000,
		PolarizationDelay: 1000,
		Slope:             0.005,
	}
}

func (s Sweep) Kind() string { return KindSweep }

func (s Sweep) base() Step {
	return Step{
		VStep:             s.VLow,
		VSD:               s.VSD,
		TPolarization:     s.TPolarization,
		PolarizationDelay: s.PolarizationDelay,
	}
}

func (s Sweep) height() float64 { return s.VHigh - s.VLow }

// HalfWidth is the duration of one leg of the triangular excursion.
func (s Sweep) HalfWidth() float64 {
	return math.Abs(s.height()) / s.Slope
}

func (s Sweep) Voltage(t float64) float64 {
	v := s.base().Voltage(t)
	if h := s.height(); h != 0 {
		w := s.HalfWidth()
		v += h * Triangle(w, t-s.TPolarization-w)
	}
	return v
}

func (s Sweep) VoltageRate(t float64) float64 {
	dv := s.base().VoltageRate(t)
	if h := s.height(); h != 0 {
		w := s.HalfWidth()
		dv += h * TriangleRate(w, t-s.TPolarization-w)
	}
	return dv
}

func (s Sweep) DrainRate(t float64) float64 {
	return s.base().DrainRate(t)
}

func (s Sweep) Breakpoints() []float64 {
	bp := s.base().Breakpoints()
	if s.height() != 0 {
		w := s.HalfWidth()
		bp = append(bp, s.TPolarization+w, s.TPolarization+2*w)
	}
	sort.Float64s(bp)
	return bp
}

// Spec is the serialisable form of a Protocol: Kind selects which of the
// embedded parameter sets is active.
type Spec struct {
	Kind     string   `yaml:"kind" json:"kind"`
	Constant Constant `yaml:"constant,omitempty" json:"constant,omitempty"`
	Step     Step     `yaml:"step,omitempty" json:"step,omitempty"`
	Sweep    Sweep    `yaml:"sweep,omitempty" json:"sweep,omitempty"`
}

// DefaultSpec returns the default parameters for kind.
func DefaultSpec(kind string) Spec {
	switch kind {
	case KindStep:
		return Spec{Kind: kind, Step: DefaultStep()}
	case KindSweep:
		return Spec{Kind: kind, Sweep: DefaultSweep()}
	default:
		return Spec{Kind: kind}
	}
}

// UnmarshalYAML fills parameters missing from the document with the
// defaults of the selected kind.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Kind string `yaml:"kind"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	*s = DefaultSpec(head.Kind)

	type plain Spec
	return node.Decode((*plain)(s))
}

func SpecOf(p Protocol) Spec {
	switch v := p.(type) {
	case Constant:
		return Spec{Kind: KindConstant, Constant: v}
	case Step:
		return Spec{Kind: KindStep, Step: v}
	case Sweep:
		return Spec{Kind: KindSweep, Sweep: v}
	default:
		return Spec{Kind: p.Kind()}
	}
}

func (s Spec) Protocol() (Protocol, error) {
	switch s.Kind {
	case KindConstant:
		return s.Constant, nil
	case KindStep:
		return s.Step, nil
	case KindSweep:
		return s.Sweep, nil
	default:
		return nil, fmt.Errorf("unknown protocol: %q", s.Kind)
	}
}

func (s Spec) Params() map[string]float64 {
	switch s.Kind {
	case KindConstant:
		return map[string]float64{"v": s.Constant.V}
	case KindStep:
		return map[string]float64{
			"v_step":             s.Step.VStep,
			"v_sd":               s.Step.VSD,
			"t_polarization":     s.Step.TPolarization,
			"polarization_delay": s.Step.PolarizationDelay,
		}
	case KindSweep:
		return map[string]float64{
			"v_low":              s.Sweep.VLow,
			"v_high":             s.Sweep.VHigh,
			"v_sd":               s.Sweep.VSD,
			"t_polarization":     s.Sweep.TPolarization,
			"polarization_delay": s.Sweep.PolarizationDelay,
			"slope":              s.Sweep.Slope,
		}
	}
	return nil
}

func (s *Spec) SetParam(name string, value float64) error {
	var target *float64
	switch s.Kind {
	case KindConstant:
		if name == "v" {
			target = &s.Constant.V
		}
	case KindStep:
		switch name {
		case "v_step":
			target = &s.Step.VStep
		case "v_sd":
			target = &s.Step.VSD
		case "t_polarization":
			target = &s.Step.TPolarization
		case "polarization_delay":
			target = &s.Step.PolarizationDelay
		}
	case KindSweep:
		switch name {
		case "v_low":
			target = &s.Sweep.VLow
		case "v_high":
			target = &s.Sweep.VHigh
		case "v_sd":
			target = &s.Sweep.VSD
		case "t_polarization":
			target = &s.Sweep.TPolarization
		case "polarization_delay":
			target = &s.Sweep.PolarizationDelay
		case "slope":
			target = &s.Sweep.Slope
		}
	}
	if target == nil {
		return fmt.Errorf("unknown %s param: %s", s.Kind, name)
	}
	*target = value
	return nil
}
