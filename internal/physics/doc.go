// Package physics holds the junction/membrane model: the physical
// [Constants] and the two-state ODE for the junction voltage Vj and the
// membrane voltage Vm.
//
// [Junction] implements [dynamo.System] and [dynamo.Jacobian]:
//
//	sys := physics.NewJunction(physics.DefaultConstants(), forcing)
//	dx := sys.Derive(dynamo.State{vj, vm}, t)
//
// The stimulus enters through [Forcing], which supplies the liquid-gate
// voltage and the rates of both applied voltages. Voltages are in mV,
// time in ms.
package physics
