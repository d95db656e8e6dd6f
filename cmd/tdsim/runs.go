package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/tdsim/internal/analysis"
	"github.com/san-kum/tdsim/internal/config"
	"github.com/san-kum/tdsim/internal/export"
	"github.com/san-kum/tdsim/internal/storage"
	"github.com/san-kum/tdsim/internal/viz"
)

func resampled(times, values []float64, n int) ([]float64, []float64, error) {
	return analysis.Resample(times, values, n)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROTOCOL\tMETHOD\tT_MAX\tSAMPLES\tFINAL_VM\tTIME")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%gms\t%d\t%.3f\t%s\n",
			run.ID,
			run.Protocol,
			run.Method,
			run.TMax,
			run.Summary.Samples,
			run.Summary.FinalVm,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}

	view := viz.RunView{
		ID:       meta.ID,
		Name:     meta.Name,
		Protocol: meta.Protocol,
		Method:   meta.Method,
		TMax:     meta.TMax,
		Summary:  meta.Summary,
		Metrics:  meta.Metrics,
	}
	if tr, err := st.LoadTrajectory(meta.ID); err == nil {
		if _, vm, err := resampled(tr.Times(), tr.Column("VM(mV)"), 60); err == nil {
			view.Vm = vm
		}
	}
	fmt.Println(viz.RenderSummary(view, styles()))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadTrajectory(meta.ID)
	if err != nil {
		return err
	}
	if len(tr.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("protocol: %s\n", meta.Protocol)
	fmt.Printf("samples: %d\n\n", len(tr.Rows))

	if plotPhase {
		portrait := &analysis.PhasePortrait2D{XLabel: "VJ (mV)", YLabel: "VM (mV)"}
		vj, vm := tr.Column("VJ(mV)"), tr.Column("VM(mV)")
		for i := range vj {
			portrait.Points = append(portrait.Points, analysis.Point{X: vj[i], Y: vm[i]})
		}
		fmt.Print(viz.PhaseCanvas(portrait, plotWidth, plotHeight))
		return nil
	}

	opts := viz.PlotOptions{Width: plotWidth, Height: plotHeight, Color: true}
	times := tr.Times()

	if plotColumn != "" {
		values := tr.Column(plotColumn)
		if values == nil {
			return fmt.Errorf("unknown column %q (available: %v)", plotColumn, tr.Columns)
		}
		opts.Caption = plotColumn + " vs t (ms)"
		graph, err := viz.PlotSeries(times, values, opts)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		return nil
	}

	opts.Caption = "t (ms)"
	graph, err := viz.PlotVoltages(times, tr.Column("VJ(mV)"), tr.Column("VM(mV)"), opts)
	if err != nil {
		return err
	}
	fmt.Println(graph)
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	path := outFile
	if path == "" {
		path = runID + "_" + figure + ".png"
	}

	tr, err := storage.New(dataDir).LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if err := export.Render(path, tr, export.Figure(figure), runID); err != nil {
		return err
	}
	fmt.Printf("rendered %s\n", path)
	return nil
}

// output returns stdout or the --out file.
func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	tr, err := storage.New(dataDir).LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteTrajectoryCSV(w, tr); err != nil {
		done()
		return err
	}
	return done()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportRun(w, args[0]); err != nil {
		done()
		return err
	}
	return done()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPROTOCOL\tT_MAX\tPARAMETERS")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%gms\t%s\n", name, cfg.Protocol.Kind, cfg.TMax, formatParams(cfg.Protocol.Params()))
	}
	return w.Flush()
}
