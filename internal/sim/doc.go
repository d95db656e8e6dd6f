// Package sim solves the junction/membrane model for one stimulus and
// exposes the trajectory together with the derived open probabilities and
// potassium currents.
//
// A VoltageResponse integrates eagerly in New and is read-only afterwards,
// so it may be shared between goroutines.
package sim
