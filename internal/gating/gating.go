// Package gating converts transmembrane voltages into steady-state channel
// open probabilities using a logistic activation curve.
package gating

import "math"

// Sigmoid is the logistic function 1/(1+e^-z). Each branch only
// exponentiates a non-positive number so large |z| cannot overflow.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// OpenProbability returns the open fraction of a channel population at
// voltage v for half-activation voltage vh and slope factor k (k != 0).
func OpenProbability(v, vh, k float64) float64 {
	return Sigmoid((v - vh) / k)
}

// Slope is dP/dv of OpenProbability.
func Slope(v, vh, k float64) float64 {
	p := OpenProbability(v, vh, k)
	return p * (1 - p) / k
}
