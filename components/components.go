// Package components defines ECS components for the particle harness.
package components

import "gonum.org/v1/gonum/spatial/r3"

// Particle holds identity and per-step bookkeeping for a driven particle.
type Particle struct {
	ID uint32

	// Force applied on the most recent step (field + attraction)
	LastForce r3.Vec
}

// Diagnostics holds the most recent differential samples of the field at a
// particle. Valid is false until the first sample is taken.
type Diagnostics struct {
	Divergence float64
	Curl       r3.Vec
	Step       int32
	Valid      bool
}
