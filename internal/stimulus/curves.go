package stimulus

import "math"

// Heaviside is the unit step with H(0) = 1/2.
func Heaviside(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 0:
		return 1
	default:
		return 0.5
	}
}

// Ramp rises linearly from 0 at x=0 to 1 at x=w and is clipped outside.
func Ramp(w, x float64) float64 {
	return (math.Abs(x) - math.Abs(x-w) + w) / (2 * w)
}

// RampRate is d/dx Ramp: 1/w on (0, w), zero outside.
func RampRate(w, x float64) float64 {
	return (Heaviside(x) - Heaviside(x-w)) / w
}

// Triangle is a unit-height pulse centred on 0 with support [-w, w].
func Triangle(w, x float64) float64 {
	return (0.5*(math.Abs(x-w)+math.Abs(x+w)) - math.Abs(x)) / w
}

// TriangleRate is d/dx Triangle.
func TriangleRate(w, x float64) float64 {
	return (Heaviside(x-w) + Heaviside(x+w) - 2*Heaviside(x)) / w
}
