package field

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/swirl/noise"
)

var (
	// ErrInvalidEpsilon is returned for a finite-difference step that is not
	// a positive finite number.
	ErrInvalidEpsilon = errors.New("curl epsilon must be positive and finite")
	// ErrInvalidScale is returned for a negative or non-finite noise scale.
	ErrInvalidScale = errors.New("noise scale must be non-negative and finite")
	// ErrInvalidStrength is returned for a non-finite force multiplier.
	ErrInvalidStrength = errors.New("strength must be finite")
)

// FallbackDirection is the radial direction used when a position coincides
// with the reference center.
var FallbackDirection = r3.Vec{X: 0, Y: 1, Z: 0}

// Params configures a ForceField. Values are fixed once the field is built.
type Params struct {
	NoiseScale           float64 // spatial frequency of the base noise
	CurlStrength         float64 // rotational force multiplier
	CurlEpsilon          float64 // finite-difference step, > 0
	DivergenceNoiseScale float64 // spatial frequency of the divergence noise
	DivergenceStrength   float64 // radial force multiplier
	Center               r3.Vec  // reference center for SampleCurl/SampleDivergence
}

// DefaultParams returns the tuning the field was designed around.
func DefaultParams() Params {
	return Params{
		NoiseScale:           0.03,
		CurlStrength:         2,
		CurlEpsilon:          0.1,
		DivergenceNoiseScale: 0.5,
		DivergenceStrength:   1,
		Center:               r3.Vec{X: 0, Y: 1.5, Z: 0},
	}
}

// Validate reports the first invalid parameter.
func (p Params) Validate() error {
	if !(p.CurlEpsilon > 0) || math.IsInf(p.CurlEpsilon, 0) {
		return fmt.Errorf("field: curl_epsilon %v: %w", p.CurlEpsilon, ErrInvalidEpsilon)
	}
	if !validScale(p.NoiseScale) {
		return fmt.Errorf("field: noise_scale %v: %w", p.NoiseScale, ErrInvalidScale)
	}
	if !validScale(p.DivergenceNoiseScale) {
		return fmt.Errorf("field: divergence_noise_scale %v: %w", p.DivergenceNoiseScale, ErrInvalidScale)
	}
	if !finite(p.CurlStrength) {
		return fmt.Errorf("field: curl_strength %v: %w", p.CurlStrength, ErrInvalidStrength)
	}
	if !finite(p.DivergenceStrength) {
		return fmt.Errorf("field: divergence_strength %v: %w", p.DivergenceStrength, ErrInvalidStrength)
	}
	if !finite(p.Center.X) || !finite(p.Center.Y) || !finite(p.Center.Z) {
		return fmt.Errorf("field: center %v is not finite", p.Center)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validScale(v float64) bool {
	return finite(v) && v >= 0
}

// ForceField combines curl noise (rotational term) with a radial term scaled
// by scalar noise (divergence term).
type ForceField struct {
	params     Params
	sampler    Sampler
	divergence noise.Source2D
}

// Option customizes a ForceField at construction.
type Option func(*ForceField)

// WithDivergenceSource replaces the scalar noise driving the radial term.
func WithDivergenceSource(src noise.Source2D) Option {
	return func(f *ForceField) {
		if src != nil {
			f.divergence = src
		}
	}
}

// New validates params and builds a ForceField.
func New(params Params, opts ...Option) (*ForceField, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	f := &ForceField{
		params:     params,
		sampler:    Sampler{Scale: params.NoiseScale},
		divergence: noise.Lattice{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// MustNew is like New but panics on invalid params.
func MustNew(params Params, opts ...Option) *ForceField {
	f, err := New(params, opts...)
	if err != nil {
		panic(fmt.Sprintf("field: %v", err))
	}
	return f
}

// Params returns the field's configuration.
func (f *ForceField) Params() Params {
	return f.params
}

// Sampler returns the raw noise sampler behind the rotational term.
func (f *ForceField) Sampler() Sampler {
	return f.sampler
}

// CurlForce returns the rotational term at p.
func (f *ForceField) CurlForce(p r3.Vec) r3.Vec {
	c := Curl(f.sampler.Sample, p, f.params.CurlEpsilon)
	return r3.Scale(f.params.CurlStrength, c)
}

// DivergenceForce returns the radial term at p for the given center.
func (f *ForceField) DivergenceForce(p, center r3.Vec) r3.Vec {
	s := f.params.DivergenceNoiseScale
	n := f.divergence.Noise2D(p.X*s, p.Y*s)
	return r3.Scale(n*f.params.DivergenceStrength, Radial(p, center))
}

// Force returns the total force at p, pushing along the direction away from
// center by the divergence term.
func (f *ForceField) Force(p, center r3.Vec) r3.Vec {
	return r3.Add(f.CurlForce(p), f.DivergenceForce(p, center))
}

// SampleForce is the per-step entry point for a simulation loop.
func (f *ForceField) SampleForce(position, centerReference r3.Vec) r3.Vec {
	return f.Force(position, centerReference)
}

// At fixes the center and returns the force as a VectorField.
func (f *ForceField) At(center r3.Vec) VectorField {
	return func(p r3.Vec) r3.Vec {
		return f.Force(p, center)
	}
}

// SampleCurl returns the curl of the composed force around the configured
// center.
func (f *ForceField) SampleCurl(position r3.Vec) r3.Vec {
	return Curl(f.At(f.params.Center), position, f.params.CurlEpsilon)
}

// SampleDivergence returns the divergence of the composed force around the
// configured center.
func (f *ForceField) SampleDivergence(position r3.Vec) float64 {
	return Divergence(f.At(f.params.Center), position, f.params.CurlEpsilon)
}

// Diagnostics returns curl and divergence of the composed force for an
// explicit center from one stencil.
func (f *ForceField) Diagnostics(position, center r3.Vec) (curl r3.Vec, div float64) {
	return Differentials(f.At(center), position, f.params.CurlEpsilon)
}

// Radial returns the unit vector from center to p, or FallbackDirection when
// the two coincide.
func Radial(p, center r3.Vec) r3.Vec {
	d := r3.Sub(p, center)
	n := r3.Norm(d)
	if n == 0 || !finite(n) {
		return FallbackDirection
	}
	// Divide per component; 1/n overflows for subnormal n.
	return r3.Vec{X: d.X / n, Y: d.Y / n, Z: d.Z / n}
}
