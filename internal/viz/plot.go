package viz

import (
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/tdsim/internal/analysis"
)

type PlotOptions struct {
	Width   int
	Height  int
	Caption string
	Color   bool
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 80, Height: 12}
}

// PlotSeries draws one series against time. The series is resampled onto
// a uniform time grid first since the integrator's grid is not uniform.
func PlotSeries(times, values []float64, opts PlotOptions) (string, error) {
	_, ys, err := analysis.Resample(times, values, opts.Width)
	if err != nil {
		return "", err
	}

	options := []asciigraph.Option{
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Precision(2),
	}
	if opts.Caption != "" {
		options = append(options, asciigraph.Caption(opts.Caption))
	}
	if opts.Color {
		options = append(options, asciigraph.SeriesColors(asciigraph.Blue))
	}
	return asciigraph.Plot(ys, options...), nil
}

// PlotVoltages draws Vj and Vm on shared axes.
func PlotVoltages(times, vj, vm []float64, opts PlotOptions) (string, error) {
	_, rj, err := analysis.Resample(times, vj, opts.Width)
	if err != nil {
		return "", err
	}
	_, rm, err := analysis.Resample(times, vm, opts.Width)
	if err != nil {
		return "", err
	}

	options := []asciigraph.Option{
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Precision(1),
		asciigraph.SeriesLegends("VJ (mV)", "VM (mV)"),
	}
	if opts.Caption != "" {
		options = append(options, asciigraph.Caption(opts.Caption))
	}
	// one color per legend
	colors := []asciigraph.AnsiColor{asciigraph.Default, asciigraph.Default}
	if opts.Color {
		colors = []asciigraph.AnsiColor{asciigraph.Green, asciigraph.Red}
	}
	options = append(options, asciigraph.SeriesColors(colors...))
	return asciigraph.PlotMany([][]float64{rj, rm}, options...), nil
}
