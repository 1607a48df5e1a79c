// Package field turns scalar gradient noise into a force field and provides
// the finite-difference operators (curl, divergence) used to shape it.
//
// Everything in this package is a pure function of its inputs. A ForceField
// and the noise tables behind it may be shared by any number of goroutines.
package field

import "gonum.org/v1/gonum/spatial/r3"

// VectorField is a vector-valued function of position.
type VectorField func(p r3.Vec) r3.Vec

// Stencil holds the six axis-offset samples of a field around a point,
// at distance H along +x, -x, +y, -y, +z and -z.
// Curl and Divergence computed from one Stencil are bit-identical to the
// standalone operators, so a caller needing both pays for six samples once.
type Stencil struct {
	XP, XM r3.Vec
	YP, YM r3.Vec
	ZP, ZM r3.Vec
	H      float64
}

// NewStencil samples f at p ± h along each axis. h must be positive.
func NewStencil(f VectorField, p r3.Vec, h float64) Stencil {
	return Stencil{
		XP: f(r3.Vec{X: p.X + h, Y: p.Y, Z: p.Z}),
		XM: f(r3.Vec{X: p.X - h, Y: p.Y, Z: p.Z}),
		YP: f(r3.Vec{X: p.X, Y: p.Y + h, Z: p.Z}),
		YM: f(r3.Vec{X: p.X, Y: p.Y - h, Z: p.Z}),
		ZP: f(r3.Vec{X: p.X, Y: p.Y, Z: p.Z + h}),
		ZM: f(r3.Vec{X: p.X, Y: p.Y, Z: p.Z - h}),
		H:  h,
	}
}

// Curl returns the central-difference estimate of ∇ × f.
func (s Stencil) Curl() r3.Vec {
	d := 2 * s.H
	dFzdy := (s.YP.Z - s.YM.Z) / d
	dFydz := (s.ZP.Y - s.ZM.Y) / d
	dFxdz := (s.ZP.X - s.ZM.X) / d
	dFzdx := (s.XP.Z - s.XM.Z) / d
	dFydx := (s.XP.Y - s.XM.Y) / d
	dFxdy := (s.YP.X - s.YM.X) / d

	return r3.Vec{
		X: dFzdy - dFydz,
		Y: dFxdz - dFzdx,
		Z: dFydx - dFxdy,
	}
}

// Divergence returns the central-difference estimate of ∇ · f.
func (s Stencil) Divergence() float64 {
	d := 2 * s.H
	return (s.XP.X-s.XM.X)/d +
		(s.YP.Y-s.YM.Y)/d +
		(s.ZP.Z-s.ZM.Z)/d
}

// Curl estimates the curl of f at p with step h (six evaluations).
func Curl(f VectorField, p r3.Vec, h float64) r3.Vec {
	return NewStencil(f, p, h).Curl()
}

// Divergence estimates the divergence of f at p with step h (six evaluations).
func Divergence(f VectorField, p r3.Vec, h float64) float64 {
	return NewStencil(f, p, h).Divergence()
}

// Differentials returns curl and divergence of f at p from a single
// stencil.
func Differentials(f VectorField, p r3.Vec, h float64) (curl r3.Vec, div float64) {
	s := NewStencil(f, p, h)
	return s.Curl(), s.Divergence()
}
