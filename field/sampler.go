package field

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/swirl/noise"
)

// Sampler builds a vector field from the scalar noise by evaluating it three
// times with cyclically permuted coordinates. The permutation decorrelates
// the components without needing three independent generators.
type Sampler struct {
	Scale float64 // spatial frequency applied to positions before lookup
}

// Sample returns the raw noise vector at p.
func (s Sampler) Sample(p r3.Vec) r3.Vec {
	x := p.X * s.Scale
	y := p.Y * s.Scale
	z := p.Z * s.Scale
	return r3.Vec{
		X: noise.Evaluate(y, z, x),
		Y: noise.Evaluate(z, x, y),
		Z: noise.Evaluate(x, y, z),
	}
}

// Field returns Sample as a VectorField.
func (s Sampler) Field() VectorField {
	return s.Sample
}
