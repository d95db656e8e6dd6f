package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/tdsim/internal/config"
	"github.com/san-kum/tdsim/internal/export"
	"github.com/san-kum/tdsim/internal/integrators"
	"github.com/san-kum/tdsim/internal/storage"
	"github.com/san-kum/tdsim/internal/viz"
)

var (
	dataDir   string
	verbose   bool
	themeName string

	// run
	configFile string
	protocol   string
	vConst     float64
	vStep      float64
	vLow       float64
	vHigh      float64
	vSD        float64
	tPol       float64
	delay      float64
	slope      float64
	tMax       float64
	method     string
	rtol       float64
	atol       float64
	setParams  []string
	showPlot   bool
	noSave     bool
	renderOut  string

	// show / plot / render / export
	showJSON   bool
	plotPhase  bool
	plotColumn string
	plotWidth  int
	plotHeight int
	figure     string
	outFile    string

	// sweep / scenario
	sweepParam   string
	sweepMin     float64
	sweepMax     float64
	sweepSteps   int
	workers      int
	saveBatch    bool
	scenarioSave bool

	// search
	gridSpecs    []string
	searchMetric string
	searchTarget float64
	searchTop    int
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tdsim",
		Short:         "junction and membrane transient voltage simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tdsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "cyberpunk",
		"color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&protocol, "protocol", "step", "stimulus protocol (constant, step, sweep)")
	runCmd.Flags().Float64Var(&vConst, "v-const", 0, "liquid-gate voltage of the constant protocol (mV)")
	runCmd.Flags().Float64Var(&vStep, "v-step", -60, "step target voltage (mV)")
	runCmd.Flags().Float64Var(&vLow, "v-low", -60, "sweep base voltage (mV)")
	runCmd.Flags().Float64Var(&vHigh, "v-high", 0, "sweep peak voltage (mV)")
	runCmd.Flags().Float64Var(&vSD, "v-sd", 0, "source-drain voltage (mV)")
	runCmd.Flags().Float64Var(&tPol, "t-pol", 50000, "time the polarization ramp ends (ms)")
	runCmd.Flags().Float64Var(&delay, "delay", 1000, "polarization ramp duration (ms)")
	runCmd.Flags().Float64Var(&slope, "slope", 0.005, "sweep slope (mV/ms)")
	runCmd.Flags().Float64Var(&tMax, "t-max", config.DefaultTMax, "simulation horizon (ms)")
	runCmd.Flags().StringVar(&method, "method", config.DefaultMethod,
		"integrator ("+strings.Join(integrators.Names(), ", ")+")")
	runCmd.Flags().Float64Var(&rtol, "rtol", 1e-5, "relative tolerance")
	runCmd.Flags().Float64Var(&atol, "atol", 1e-8, "absolute tolerance")
	runCmd.Flags().StringArrayVar(&setParams, "set", nil, "override any parameter, key=value (repeatable)")
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "print an ascii plot of VJ and VM")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&renderOut, "render", "", "also render the voltages figure to this image file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the raw metadata")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&plotPhase, "phase", false, "plot the (VJ, VM) phase portrait")
	plotCmd.Flags().StringVar(&plotColumn, "column", "", "plot a single trajectory column, e.g. IKJ(uA)")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render a figure to an image file",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVar(&figure, "figure", string(export.FigureVoltages),
		"figure ("+strings.Join(export.Figures(), ", ")+")")
	renderCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (.png, .svg, .pdf, ...)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectory to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and trajectory to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.New(dataDir).Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run one parameter over a range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "base config file path (yaml)")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "v_step", "parameter to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", -80, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent simulations (0 = all cores)")
	sweepCmd.Flags().BoolVar(&saveBatch, "save", false, "store every run")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file.yaml]",
		Short: "run a scripted batch of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&scenarioSave, "save", false, "store every run, not only those with save_as")

	searchCmd := &cobra.Command{
		Use:   "search [preset]",
		Short: "grid search parameters toward a target value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().StringVar(&configFile, "config", "", "base config file path (yaml)")
	searchCmd.Flags().StringArrayVar(&gridSpecs, "grid", nil, "parameter range name=lo:hi:n (repeatable)")
	searchCmd.Flags().StringVar(&searchMetric, "metric", "final_vm", "summary value or metric to match")
	searchCmd.Flags().Float64Var(&searchTarget, "target", -100, "target value of --metric")
	searchCmd.Flags().IntVar(&searchTop, "top", 10, "candidates to print (0 = all)")
	searchCmd.Flags().IntVar(&workers, "workers", 0, "concurrent simulations (0 = all cores)")

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, renderCmd, exportCSVCmd, exportJSONCmd,
		deleteCmd, presetsCmd, sweepCmd, scenarioCmd, searchCmd)

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func styles() viz.Styles {
	return viz.NewStyles(viz.GetTheme(themeName))
}
