package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tdsim/internal/analysis"
)

// RunView is what RenderSummary shows about one run.
type RunView struct {
	ID       string
	Name     string
	Protocol string
	Method   string
	TMax     float64
	Elapsed  time.Duration
	Summary  analysis.Summary
	Metrics  map[string]float64
	Vm       []float64 // uniformly resampled, optional
}

func (s Styles) row(label, value string) string {
	return s.Label.Render(fmt.Sprintf("%-20s", label)) + " " + s.Value.Render(value)
}

// RenderSummary draws the post-run panel: solver statistics, the final
// state and the transient measurements.
func RenderSummary(v RunView, s Styles) string {
	title := v.Name
	if title == "" {
		title = v.Protocol
	}

	lines := []string{
		s.Title.Render(title),
		"",
	}
	if v.ID != "" {
		lines = append(lines, s.row("run id", v.ID))
	}
	lines = append(lines,
		s.row("protocol", v.Protocol),
		s.row("method", v.Method),
		s.row("horizon", fmt.Sprintf("%g ms", v.TMax)),
	)
	if v.Elapsed > 0 {
		lines = append(lines, s.row("elapsed", v.Elapsed.Round(time.Millisecond).String()))
	}

	sum := v.Summary
	stats := sum.Stats
	lines = append(lines,
		"",
		s.row("samples", fmt.Sprintf("%d", sum.Samples)),
		s.row("steps", fmt.Sprintf("%d (%d rejected)", stats.Steps, stats.Rejected)),
		s.row("evaluations", fmt.Sprintf("%d", stats.Evaluations)),
	)
	if stats.Jacobians > 0 {
		lines = append(lines, s.row("jacobians", fmt.Sprintf("%d / %d LU", stats.Jacobians, stats.Factorizations)))
	}

	lines = append(lines,
		"",
		s.row("final VJ", fmt.Sprintf("%.4f mV", sum.FinalVj)),
		s.row("final VM", fmt.Sprintf("%.4f mV", sum.FinalVm)),
		s.row("VM range", fmt.Sprintf("%.3f .. %.3f mV", sum.VmMin.V, sum.VmMax.V)),
		s.row("peak IKJ", fmt.Sprintf("%.4g uA", sum.PeakIKJ)),
		s.row("peak IKF", fmt.Sprintf("%.4g uA", sum.PeakIKF)),
	)
	if sum.Departure != nil {
		lines = append(lines, s.row("departure", fmt.Sprintf("%.1f ms", *sum.Departure)))
	} else {
		lines = append(lines, s.row("departure", s.Subtle.Render("none")))
	}
	lines = append(lines, s.row("settled at", fmt.Sprintf("%.1f ms", sum.Settling)))

	if len(v.Metrics) > 0 {
		lines = append(lines, "")
		names := make([]string, 0, len(v.Metrics))
		for name := range v.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, s.row(strings.ReplaceAll(name, "_", " "), fmt.Sprintf("%.4g", v.Metrics[name])))
		}
	}

	if len(v.Vm) > 0 {
		lines = append(lines, "", s.Label.Render("VM ")+s.Sparkline(v.Vm))
	}

	return s.Panel.Render(strings.Join(lines, "\n"))
}

// RenderError draws a failed run in the error color.
func RenderError(name string, err error, s Styles) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.Bad.Render("✗ "+name),
		s.Subtle.Render(err.Error()),
	)
}
