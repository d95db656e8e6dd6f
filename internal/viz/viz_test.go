package viz

import (
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/tdsim/internal/analysis"
)

func TestPlotSeries(t *testing.T) {
	times := []float64{0, 10, 1000, 5000}
	values := []float64{-36, -48, -48, -107}

	opts := DefaultPlotOptions()
	opts.Caption = "VM (mV)"
	out, err := PlotSeries(times, values, opts)
	if err != nil {
		t.Fatalf("PlotSeries: %v", err)
	}
	if !strings.Contains(out, "VM (mV)") {
		t.Errorf("caption missing:\n%s", out)
	}
	if n := strings.Count(out, "\n") + 1; n < opts.Height {
		t.Errorf("plot has %d lines, want at least %d", n, opts.Height)
	}

	if _, err := PlotSeries([]float64{0}, []float64{1}, opts); !errors.Is(err, analysis.ErrShortSeries) {
		t.Errorf("short series err = %v", err)
	}
}

func TestPlotVoltages(t *testing.T) {
	times := []float64{0, 1, 2}
	vj := []float64{0, -10, -58}
	vm := []float64{-36, -60, -107}

	tests := []struct {
		name  string
		color bool
	}{
		{"plain", false},
		{"colored", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultPlotOptions()
			opts.Color = tt.color
			out, err := PlotVoltages(times, vj, vm, opts)
			if err != nil {
				t.Fatalf("PlotVoltages: %v", err)
			}
			if !strings.Contains(out, "VJ (mV)") || !strings.Contains(out, "VM (mV)") {
				t.Errorf("legend missing:\n%s", out)
			}
		})
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(2, 1)
	c.DrawLine(0, 0, 3, 3)
	for i := 0; i < 4; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("dot (%d, %d) not set", i, i)
		}
	}
	if c.IsSet(3, 0) || c.IsSet(10, 10) {
		t.Error("unexpected dot set")
	}
	if got := c.String(); got != "⠑⢄\n" {
		t.Errorf("canvas = %q", got)
	}
}

func TestCanvasTrace(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Trace([]analysis.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if !c.IsSet(0, 3) || !c.IsSet(3, 0) {
		t.Errorf("trace endpoints missing:\n%s", c)
	}
}

func TestPhaseCanvas(t *testing.T) {
	p := &analysis.PhasePortrait2D{
		Points: []analysis.Point{{X: 0, Y: -36}, {X: 0, Y: -48}, {X: -58, Y: -107}},
		XLabel: "VJ (mV)",
		YLabel: "VM (mV)",
	}
	out := PhaseCanvas(p, 20, 5)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 5+4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "-36.00") || !strings.Contains(lines[5], "-107.00") {
		t.Errorf("axis labels missing:\n%s", out)
	}
	if PhaseCanvas(nil, 20, 5) != "" {
		t.Error("nil portrait rendered")
	}
}

func TestSparkline(t *testing.T) {
	s := NewStyles(ThemeMinimal)
	out := s.Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7})
	for _, c := range sparkChars {
		if !strings.ContainsRune(out, c) {
			t.Errorf("sparkline %q missing %q", out, c)
		}
	}
	if s.Sparkline(nil) != "" {
		t.Error("empty sparkline not empty")
	}
}

func TestRenderSummary(t *testing.T) {
	dep := 1950.0
	v := RunView{
		ID:       "step_abcd1234",
		Protocol: "step",
		Method:   "bdf",
		TMax:     100000,
		Summary: analysis.Summary{
			Samples:   120,
			FinalVj:   -58.377326,
			FinalVm:   -107.195254,
			Departure: &dep,
		},
		Metrics: map[string]float64{"junction_charge": 1.5},
		Vm:      []float64{-48, -60, -107},
	}
	out := RenderSummary(v, NewStyles(GetTheme("ocean")))
	for _, want := range []string{"step_abcd1234", "bdf", "-107.1953 mV", "-58.3773 mV", "1950.0 ms", "junction charge", "1.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestGetTheme(t *testing.T) {
	if GetTheme("ocean").Name != "ocean" {
		t.Error("ocean theme not found")
	}
	if GetTheme("nope").Name != Themes[0].Name {
		t.Error("unknown theme should fall back to the first")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("ThemeNames length mismatch")
	}
}
