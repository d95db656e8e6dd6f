package config

import (
	"sort"

	"github.com/san-kum/tdsim/internal/dynamo"
	"github.com/san-kum/tdsim/internal/physics"
	"github.com/san-kum/tdsim/internal/stimulus"
)

func preset(name string, spec stimulus.Spec, tMax float64) *Config {
	return &Config{
		Name:      name,
		Protocol:  spec,
		TMax:      tMax,
		Method:    DefaultMethod,
		Solver:    dynamo.DefaultConfig(),
		Constants: physics.DefaultConstants(),
	}
}

var Presets = map[string]*Config{
	"step": preset("step",
		stimulus.Spec{Kind: stimulus.KindStep, Step: stimulus.DefaultStep()}, DefaultTMax),
	"sweep": preset("sweep",
		stimulus.Spec{Kind: stimulus.KindSweep, Sweep: stimulus.DefaultSweep()}, DefaultTMax),
	"flat-sweep": preset("flat-sweep",
		stimulus.Spec{Kind: stimulus.KindSweep, Sweep: stimulus.Sweep{
			VLow: -60, VHigh: -60, TPolarization: 50000, PolarizationDelay: 1000, Slope: 0.005,
		}}, DefaultTMax),
	"rest": preset("rest",
		stimulus.Spec{Kind: stimulus.KindConstant}, 10000),
	"quick-step": preset("quick-step",
		stimulus.Spec{Kind: stimulus.KindStep, Step: stimulus.Step{
			VStep: -60, TPolarization: 2000, PolarizationDelay: 100,
		}}, 5000),
	"depolarize": preset("depolarize",
		stimulus.Spec{Kind: stimulus.KindStep, Step: stimulus.Step{
			VStep: 20, TPolarization: 5000, PolarizationDelay: 500,
		}}, 20000),
	"drain-step": preset("drain-step",
		stimulus.Spec{Kind: stimulus.KindStep, Step: stimulus.Step{
			VStep: -60, VSD: 50, TPolarization: 50000, PolarizationDelay: 1000,
		}}, DefaultTMax),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
