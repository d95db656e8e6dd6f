package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles is the set of lipgloss styles derived from a Theme.
type Styles struct {
	Panel   lipgloss.Style
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Subtle  lipgloss.Style
	Good    lipgloss.Style
	Warn    lipgloss.Style
	Bad     lipgloss.Style
	sparkHi lipgloss.Style
	sparkMd lipgloss.Style
	sparkLo lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Secondary),
		Label:   lipgloss.NewStyle().Foreground(t.Muted),
		Value:   lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Subtle:  lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Good:    lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		Warn:    lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		Bad:     lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		sparkHi: lipgloss.NewStyle().Foreground(t.Success),
		sparkMd: lipgloss.NewStyle().Foreground(t.Warning),
		sparkLo: lipgloss.NewStyle().Foreground(t.Error),
	}
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as one row of block characters, one per
// value. Callers resample first when the series is longer than the row.
func (s Styles) Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var b strings.Builder
	for _, v := range values {
		norm := (v - lo) / span
		idx := int(norm * float64(len(sparkChars)-1))
		idx = max(0, min(idx, len(sparkChars)-1))

		c := string(sparkChars[idx])
		switch {
		case norm > 0.7:
			b.WriteString(s.sparkHi.Render(c))
		case norm > 0.3:
			b.WriteString(s.sparkMd.Render(c))
		default:
			b.WriteString(s.sparkLo.Render(c))
		}
	}
	return b.String()
}

func (s Styles) Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(0, mid-3))
	right := strings.Repeat("─", max(0, width-mid-3))
	return s.Label.Render(left + " ◆ " + right)
}
