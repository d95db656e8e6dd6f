package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tdsim/internal/dynamo"
	"github.com/san-kum/tdsim/internal/integrators"
	"github.com/san-kum/tdsim/internal/physics"
	"github.com/san-kum/tdsim/internal/sim"
	"github.com/san-kum/tdsim/internal/stimulus"
)

const (
	DefaultTMax   = 100000.0
	DefaultMethod = "bdf"
)

// Config describes one simulation: stimulus, horizon, solver and the
// physical constants.
type Config struct {
	Name      string            `yaml:"name,omitempty" json:"name,omitempty"`
	Protocol  stimulus.Spec     `yaml:"protocol" json:"protocol"`
	TMax      float64           `yaml:"t_max" json:"t_max"`
	Method    string            `yaml:"method" json:"method"`
	Solver    dynamo.Config     `yaml:"solver" json:"solver"`
	Constants physics.Constants `yaml:"constants" json:"constants"`
}

func DefaultConfig() *Config {
	return &Config{
		Protocol:  stimulus.Spec{Kind: stimulus.KindStep, Step: stimulus.DefaultStep()},
		TMax:      DefaultTMax,
		Method:    DefaultMethod,
		Solver:    dynamo.DefaultConfig(),
		Constants: physics.DefaultConstants(),
	}
}

// Load reads a YAML file over the defaults, so omitted keys keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Forcing resolves the protocol section.
func (c *Config) Forcing() (stimulus.Protocol, error) {
	p, err := c.Protocol.Protocol()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
	}
	return p, nil
}

// SimConfig converts the file form into the simulator configuration.
func (c *Config) SimConfig() (sim.Config, error) {
	integ, err := integrators.New(c.Method)
	if err != nil {
		return sim.Config{}, err
	}
	sc := sim.Config{
		TMax:       c.TMax,
		Constants:  c.Constants,
		Solver:     c.Solver,
		Integrator: integ,
	}
	return sc, sc.Validate()
}

func (c *Config) Validate() error {
	if _, err := c.Forcing(); err != nil {
		return err
	}
	_, err := c.SimConfig()
	return err
}

// Params lists every numeric setting that SetParam accepts.
func (c *Config) Params() map[string]float64 {
	params := map[string]float64{
		"t_max": c.TMax,
		"rtol":  c.Solver.RelTol,
		"atol":  c.Solver.AbsTol,
	}
	for k, v := range c.Constants.Params() {
		params[k] = v
	}
	for k, v := range c.Protocol.Params() {
		params[k] = v
	}
	return params
}

// SetParam sets a horizon, tolerance, protocol or physical parameter by
// its YAML key.
func (c *Config) SetParam(name string, value float64) error {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "t_max":
		c.TMax = value
		return nil
	case "rtol":
		c.Solver.RelTol = value
		return nil
	case "atol":
		c.Solver.AbsTol = value
		return nil
	}
	if err := c.Protocol.SetParam(name, value); err == nil {
		return nil
	}
	if err := c.Constants.SetParam(name, value); err == nil {
		return nil
	}
	return fmt.Errorf("unknown param: %s", name)
}
