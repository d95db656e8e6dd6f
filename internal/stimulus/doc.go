// Package stimulus defines the voltage protocols applied to the membrane:
// a constant hold, a polarizing step and a triangular sweep.
//
// Protocols are small immutable values built from clipped ramps and
// triangular pulses ([Ramp], [Triangle]) and their derivatives. A [Spec]
// carries one protocol in YAML or JSON form.
//
// Generators never fail. A zero or negative PolarizationDelay or Slope
// yields NaN or infinite values at the affected times; the simulator
// reports those as invalid parameters when they show up at t = 0, and the
// integrator reports them otherwise.
package stimulus
