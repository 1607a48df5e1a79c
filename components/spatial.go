package components

import "gonum.org/v1/gonum/spatial/r3"

// Position represents a particle's world position.
type Position struct {
	r3.Vec
}

// Velocity represents a particle's velocity in world units per second.
type Velocity struct {
	r3.Vec
}
