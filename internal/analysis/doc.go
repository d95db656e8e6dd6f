// Package analysis measures solved voltage trajectories.
//
//   - [Departure]: first time a series leaves its baseline
//   - [SettlingTime]: time after which a series stays near its final value
//   - [Extrema] and [Crossings]: extreme samples and level crossings
//   - [Resample]: linear interpolation onto a uniform grid for display
//   - [Summarize]: all of the above for one [sim.VoltageResponse]
//   - [PhasePortrait]: the trajectory in the (Vj, Vm) plane
//
// Series are the non-uniform time grids chosen by the integrator; none of
// the functions assume equal spacing.
package analysis
