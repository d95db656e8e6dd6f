package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/tdsim/internal/dynamo"
)

// Constants is the physical parameter set of the junction model.
//
//	Area                   cm^2
//	Electric potential     mV
//	Time                   ms
//	Specific conductance   mS/cm^2
//	Specific capacitance   uF/cm^2
type Constants struct {
	MembraneArea     float64 `yaml:"membrane_area" json:"membrane_area"`         // AM, total membrane area
	AttachedFraction float64 `yaml:"attached_fraction" json:"attached_fraction"` // r, attached / total area
	Cm               float64 `yaml:"cm" json:"cm"`                               // free membrane capacitance
	CJ               float64 `yaml:"cj" json:"cj"`                               // junction capacitance
	GJ               float64 `yaml:"gj" json:"gj"`                               // junction seal conductance
	GKJ              float64 `yaml:"gkj" json:"gkj"`                             // K conductance, attached membrane
	GKF              float64 `yaml:"gkf" json:"gkf"`                             // K conductance, free membrane
	Vh               float64 `yaml:"vh" json:"vh"`                               // half-activation voltage
	Km               float64 `yaml:"km" json:"km"`                               // activation slope
	VRest            float64 `yaml:"v_rest" json:"v_rest"`
	VK               float64 `yaml:"v_k" json:"v_k"` // potassium reversal potential
}

func DefaultConstants() Constants {
	return Constants{
		MembraneArea:     (math.Pi*30*300 + 2*math.Pi*225) * 1e-14,
		AttachedFraction: 0.3,
		Cm:               1.0,
		CJ:               2.4,
		GJ:               0.1,
		GKJ:              28.0,
		GKF:              8.4,
		Vh:               -45.6,
		Km:               3.0,
		VRest:            -36,
		VK:               -48,
	}
}

func (c Constants) AttachedArea() float64 {
	return c.AttachedFraction * c.MembraneArea
}

// InitialState is (Vj, Vm) = (0, VRest).
func (c Constants) InitialState() dynamo.State {
	return dynamo.State{0, c.VRest}
}

func (c Constants) Validate() error {
	params := c.Params()
	for _, name := range ParamNames {
		if v := params[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", dynamo.ErrInvalidParameter, name)
		}
	}
	if c.AttachedFraction < 0 || c.AttachedFraction > 1 {
		return fmt.Errorf("%w: attached fraction %g outside [0, 1]", dynamo.ErrInvalidParameter, c.AttachedFraction)
	}
	if c.MembraneArea <= 0 {
		return fmt.Errorf("%w: membrane area must be positive", dynamo.ErrInvalidParameter)
	}
	if c.Cm <= 0 || c.CJ <= 0 {
		return fmt.Errorf("%w: capacitances must be positive", dynamo.ErrInvalidParameter)
	}
	if c.Km == 0 {
		return fmt.Errorf("%w: activation slope km must be non-zero", dynamo.ErrInvalidParameter)
	}
	return nil
}

// ParamNames lists the keys of Params in declaration order.
var ParamNames = []string{
	"membrane_area", "attached_fraction", "cm", "cj", "gj", "gkj", "gkf",
	"vh", "km", "v_rest", "v_k",
}

func (c Constants) Params() map[string]float64 {
	return map[string]float64{
		"membrane_area":     c.MembraneArea,
		"attached_fraction": c.AttachedFraction,
		"cm":                c.Cm,
		"cj":                c.CJ,
		"gj":                c.GJ,
		"gkj":               c.GKJ,
		"gkf":               c.GKF,
		"vh":                c.Vh,
		"km":                c.Km,
		"v_rest":            c.VRest,
		"v_k":               c.VK,
	}
}

func (c *Constants) SetParam(name string, value float64) error {
	switch name {
	case "membrane_area":
		c.MembraneArea = value
	case "attached_fraction":
		c.AttachedFraction = value
	case "cm":
		c.Cm = value
	case "cj":
		c.CJ = value
	case "gj":
		c.GJ = value
	case "gkj":
		c.GKJ = value
	case "gkf":
		c.GKF = value
	case "vh":
		c.Vh = value
	case "km":
		c.Km = value
	case "v_rest":
		c.VRest = value
	case "v_k":
		c.VK = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// Coupling holds the linear-combination coefficients of dVj/dt that come
// from mixing the free membrane capacitance of the attached patch with the
// junction capacitance.
type Coupling struct {
	Gate    float64 // cm(1-r)/D, multiplies dVlg/dt
	Leak    float64 // gJ/D, multiplies Vj
	Current float64 // (1-r)/D, multiplies Jj - Jf
	Drain   float64 // cJ/D, multiplies dVsd/dt
}

func (c Constants) Coupling() Coupling {
	free := 1 - c.AttachedFraction
	d := c.Cm*free + c.CJ
	return Coupling{
		Gate:    c.Cm * free / d,
		Leak:    c.GJ / d,
		Current: free / d,
		Drain:   c.CJ / d,
	}
}
