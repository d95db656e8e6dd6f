package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/tdsim/internal/storage"
)

type Figure string

const (
	FigureVoltages      Figure = "voltages"
	FigureMembrane      Figure = "membrane"
	FigureCurrents      Figure = "currents"
	FigureProbabilities Figure = "probabilities"
	FigurePhase         Figure = "phase"
)

type figureSpec struct {
	title  string
	x      string
	xLabel string
	yLabel string
	series []string
}

var figures = map[Figure]figureSpec{
	FigureVoltages: {
		title: "Junction and membrane voltages", x: "t(s)",
		xLabel: "time (s)", yLabel: "voltage (mV)",
		series: []string{"VLG(mV)", "VJ(mV)", "VM(mV)"},
	},
	FigureMembrane: {
		title: "Transmembrane voltages", x: "t(s)",
		xLabel: "time (s)", yLabel: "voltage (mV)",
		series: []string{"VJM(mV)", "VFM(mV)"},
	},
	FigureCurrents: {
		title: "Currents", x: "t(s)",
		xLabel: "time (s)", yLabel: "current (uA)",
		series: []string{"IKJ(uA)", "IKF(uA)", "IJ(uA)"},
	},
	FigureProbabilities: {
		title: "Open probabilities", x: "t(s)",
		xLabel: "time (s)", yLabel: "P(open)",
		series: []string{"PJM", "PFM"},
	},
	FigurePhase: {
		title: "Phase portrait", x: "VJ(mV)",
		xLabel: "VJ (mV)", yLabel: "VM (mV)",
		series: []string{"VM(mV)"},
	},
}

// Figures lists the figure names NewPlot accepts.
func Figures() []string {
	return []string{
		string(FigureVoltages),
		string(FigureMembrane),
		string(FigureCurrents),
		string(FigureProbabilities),
		string(FigurePhase),
	}
}

// Formats lists the file extensions Save can write.
var Formats = []string{".png", ".svg", ".pdf", ".eps", ".jpg", ".tif"}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Title.Padding = vg.Points(8)
	p.X.Label.Padding = vg.Points(6)
	p.Y.Label.Padding = vg.Points(6)
	p.X.Tick.Marker = limitedTicker(8, "%.4g")
	p.Y.Tick.Marker = limitedTicker(8, "%.4g")
	p.Legend.Top = true
}

// NewPlot builds a figure from the columns of a stored trajectory.
func NewPlot(tr *storage.Trajectory, fig Figure, title string) (*plot.Plot, error) {
	spec, ok := figures[fig]
	if !ok {
		return nil, fmt.Errorf("unknown figure %q (available: %s)", fig, strings.Join(Figures(), ", "))
	}
	if len(tr.Rows) == 0 {
		return nil, fmt.Errorf("figure %s: empty trajectory", fig)
	}

	xs := tr.Column(spec.x)
	if xs == nil {
		return nil, fmt.Errorf("figure %s: missing column %s", fig, spec.x)
	}

	p := plot.New()
	p.Title.Text = spec.title
	if title != "" {
		p.Title.Text = title + ": " + spec.title
	}
	p.X.Label.Text = spec.xLabel
	p.Y.Label.Text = spec.yLabel
	stylePlot(p)
	p.Add(plotter.NewGrid())

	var lines []any
	for _, name := range spec.series {
		ys := tr.Column(name)
		if ys == nil {
			return nil, fmt.Errorf("figure %s: missing column %s", fig, name)
		}
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i].X = xs[i]
			pts[i].Y = ys[i]
		}
		lines = append(lines, name, pts)
	}

	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes p to path; the extension picks the format.
func Save(p *plot.Plot, path string, width, height vg.Length) error {
	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, f := range Formats {
		if ext == f {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported image format %q (available: %s)", ext, strings.Join(Formats, ", "))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return p.Save(width, height, path)
}

// Render draws one figure of tr and writes it to path at 8x5 inches.
func Render(path string, tr *storage.Trajectory, fig Figure, title string) error {
	p, err := NewPlot(tr, fig, title)
	if err != nil {
		return err
	}
	return Save(p, path, 8*vg.Inch, 5*vg.Inch)
}
