package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/tdsim/internal/analysis"
	"github.com/san-kum/tdsim/internal/experiment"
	"github.com/san-kum/tdsim/internal/optim"
	"github.com/san-kum/tdsim/internal/storage"
)

func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, params[k])
	}
	return strings.Join(parts, " ")
}

func formatDeparture(s analysis.Summary) string {
	if s.Departure == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *s.Departure)
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := baseConfig(args)
	if err != nil {
		return err
	}

	sweep := &experiment.ParameterSweep{
		Base:    base,
		Param:   sweepParam,
		Min:     sweepMin,
		Max:     sweepMax,
		Steps:   sweepSteps,
		Workers: workers,
	}
	slog.Info("running sweep", "param", sweepParam, "min", sweepMin, "max", sweepMax, "steps", sweepSteps)

	results, err := experiment.RunSweep(cmd.Context(), sweep)
	if err != nil {
		return err
	}

	var st *storage.Store
	if saveBatch {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL_VJ\tFINAL_VM\tVM_MIN\tDEPARTURE\tSETTLED\tSTEPS\tRUN\n", strings.ToUpper(sweepParam))
	for _, res := range results {
		runID := "-"
		if st != nil {
			if runID, err = st.Save(res.Config, res.Response); err != nil {
				return err
			}
		}
		s := res.Summary
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%.4f\t%s\t%.1f\t%d\t%s\n",
			res.Value, s.FinalVj, s.FinalVm, s.VmMin.V, formatDeparture(s), s.Settling, s.Stats.Steps, runID)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := experiment.LoadScenario(args[0])
	if err != nil {
		return err
	}
	slog.Info("running scenario", "name", sc.Name, "runs", len(sc.Runs))

	outs, err := experiment.RunScenario(cmd.Context(), sc)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	if sc.Description != "" {
		fmt.Println(sc.Description)
		fmt.Println()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tPROTOCOL\tMETHOD\tFINAL_VJ\tFINAL_VM\tDEPARTURE\tELAPSED\tRUN")
	for i, out := range outs {
		run := sc.Runs[i]
		runID := "-"
		if run.SaveAs != "" || scenarioSave {
			cfg := out.Config.Clone()
			if run.SaveAs != "" {
				cfg.Name = run.SaveAs
			}
			if runID, err = st.Save(cfg, out.Response); err != nil {
				return err
			}
		}
		s := out.Summary
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.4f\t%.4f\t%s\t%s\t%s\n",
			i+1, out.Config.Name, out.Config.Protocol.Kind, out.Response.Method(),
			s.FinalVj, s.FinalVm, formatDeparture(s), out.Elapsed.Round(time.Millisecond), runID)
	}
	return w.Flush()
}

// parseGrid reads name=lo:hi:n.
func parseGrid(spec string) (string, []float64, error) {
	name, rng, ok := strings.Cut(spec, "=")
	if !ok {
		return "", nil, fmt.Errorf("--grid %q: want name=lo:hi:n", spec)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("--grid %q: want name=lo:hi:n", spec)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("--grid %q: %w", spec, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("--grid %q: %w", spec, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("--grid %q: bad count %q", spec, parts[2])
	}
	return strings.TrimSpace(name), optim.Linspace(lo, hi, n), nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	base, err := baseConfig(args)
	if err != nil {
		return err
	}
	if len(gridSpecs) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}

	names := make([]string, len(gridSpecs))
	ranges := make([][]float64, len(gridSpecs))
	for i, spec := range gridSpecs {
		if names[i], ranges[i], err = parseGrid(spec); err != nil {
			return err
		}
	}

	g := optim.NewGridSearch(names, ranges).WithWorkers(workers)
	slog.Info("running grid search", "points", len(g.Points()), "metric", searchMetric, "target", searchTarget)

	candidates, err := g.Search(cmd.Context(), base, optim.Target(searchMetric, searchTarget))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tPARAMS\t%s\tSCORE\n", strings.ToUpper(searchMetric))
	for i, c := range candidates {
		if searchTop > 0 && i >= searchTop {
			break
		}
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4g\n", i+1, formatParams(c.Params), optim.Value(c.Outcome, searchMetric), c.Score)
	}
	return w.Flush()
}
