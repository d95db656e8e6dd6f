// Package viz renders simulation output for the terminal.
//
//   - [PlotSeries] and [PlotVoltages]: asciigraph line plots of a trajectory
//   - [PhaseCanvas]: a braille trace of the (VJ, VM) phase portrait
//   - [RenderSummary]: a lipgloss panel with the run statistics
//
// Colors come from a [Theme]; see [ThemeNames].
package viz
