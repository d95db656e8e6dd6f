package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/tdsim/internal/config"
	"github.com/san-kum/tdsim/internal/experiment"
	"github.com/san-kum/tdsim/internal/export"
	"github.com/san-kum/tdsim/internal/stimulus"
	"github.com/san-kum/tdsim/internal/storage"
	"github.com/san-kum/tdsim/internal/viz"
)

// protocolFlags maps run flags onto protocol parameter names.
var protocolFlags = map[string]string{
	"v-const": "v",
	"v-step":  "v_step",
	"v-low":   "v_low",
	"v-high":  "v_high",
	"v-sd":    "v_sd",
	"t-pol":   "t_polarization",
	"delay":   "polarization_delay",
	"slope":   "slope",
}

// baseConfig resolves the preset argument and --config file; the file
// wins over the preset.
func baseConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		slog.Debug("loaded preset", "name", args[0])
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if loaded.Name == "" && cfg.Name != "" {
			loaded.Name = cfg.Name
		}
		cfg = loaded
		slog.Debug("loaded config", "path", configFile)
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("protocol") && protocol != cfg.Protocol.Kind {
		cfg.Protocol = stimulus.DefaultSpec(protocol)
		if _, err := cfg.Protocol.Protocol(); err != nil {
			return err
		}
	}
	for flag, param := range protocolFlags {
		if !flags.Changed(flag) {
			continue
		}
		v, err := flags.GetFloat64(flag)
		if err != nil {
			return err
		}
		if err := cfg.Protocol.SetParam(param, v); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
	}

	if flags.Changed("t-max") {
		cfg.TMax = tMax
	}
	if flags.Changed("method") {
		cfg.Method = method
	}
	if flags.Changed("rtol") {
		cfg.Solver.RelTol = rtol
	}
	if flags.Changed("atol") {
		cfg.Solver.AbsTol = atol
	}

	for _, kv := range setParams {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("--set %q: want key=value", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("--set %q: %w", kv, err)
		}
		if err := cfg.SetParam(strings.TrimSpace(key), v); err != nil {
			return fmt.Errorf("--set %q: %w", kv, err)
		}
	}
	return nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(args)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("running simulation",
		"protocol", cfg.Protocol.Kind,
		"method", cfg.Method,
		"t_max", cfg.TMax)

	out, err := experiment.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	view := viz.RunView{
		Name:     cfg.Name,
		Protocol: cfg.Protocol.Kind,
		Method:   out.Response.Method(),
		TMax:     cfg.TMax,
		Elapsed:  out.Elapsed,
		Summary:  out.Summary,
		Metrics:  out.Metrics,
	}
	if _, vm, err := resampled(out.Response.Times(), out.Response.Vm(), 60); err == nil {
		view.Vm = vm
	}

	var runID string
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err = st.Save(cfg, out.Response)
		if err != nil {
			return err
		}
		view.ID = runID
		slog.Debug("saved run", "id", runID, "dir", dataDir)
	}

	fmt.Println(viz.RenderSummary(view, styles()))

	if showPlot {
		opts := viz.DefaultPlotOptions()
		opts.Caption = "t (ms)"
		graph, err := viz.PlotVoltages(out.Response.Times(), out.Response.Vj(), out.Response.Vm(), opts)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(graph)
	}

	if renderOut != "" {
		if runID == "" {
			return fmt.Errorf("--render needs a stored run; drop --no-save")
		}
		tr, err := storage.New(dataDir).LoadTrajectory(runID)
		if err != nil {
			return err
		}
		if err := export.Render(renderOut, tr, export.FigureVoltages, runID); err != nil {
			return err
		}
		fmt.Printf("rendered %s\n", renderOut)
	}
	return nil
}
