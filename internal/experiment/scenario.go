package experiment

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tdsim/internal/config"
	"github.com/san-kum/tdsim/internal/dynamo"
	"github.com/san-kum/tdsim/internal/stimulus"
)

// Scenario is a scripted batch of simulations.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Workers     int           `yaml:"workers"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun starts from a preset (or the defaults) and overrides the
// fields it sets.
type ScenarioRun struct {
	Name     string             `yaml:"name"`
	Preset   string             `yaml:"preset"`
	Protocol *stimulus.Spec     `yaml:"protocol"`
	TMax     float64            `yaml:"t_max"`
	Method   string             `yaml:"method"`
	Params   map[string]float64 `yaml:"params"`
	SaveAs   string             `yaml:"save_as"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no runs", dynamo.ErrInvalidParameter, scenario.Name)
	}
	return &scenario, nil
}

// Config resolves the run into a full configuration.
func (r ScenarioRun) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if r.Preset != "" {
		cfg = config.GetPreset(r.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", dynamo.ErrInvalidParameter, r.Preset)
		}
	}
	if r.Name != "" {
		cfg.Name = r.Name
	}
	if r.Protocol != nil {
		cfg.Protocol = *r.Protocol
	}
	if r.TMax != 0 {
		cfg.TMax = r.TMax
	}
	if r.Method != "" {
		cfg.Method = r.Method
	}
	for k, v := range r.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
		}
	}
	return cfg, cfg.Validate()
}

// RunScenario runs every entry concurrently and returns the outcomes in
// scenario order.
func RunScenario(ctx context.Context, scenario *Scenario) ([]*Outcome, error) {
	cfgs := make([]*config.Config, len(scenario.Runs))
	for i, run := range scenario.Runs {
		cfg, err := run.Config()
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		cfgs[i] = cfg
	}
	return RunAll(ctx, cfgs, scenario.Workers)
}
