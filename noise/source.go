package noise

import (
	"fmt"

	"github.com/aquilax/go-perlin"
)

// Source2D yields scalar noise in [-1, 1] for a planar coordinate.
// Implementations must be safe for concurrent use.
type Source2D interface {
	Noise2D(x, y float64) float64
}

// Lattice is the fixed-table gradient noise as a Source2D.
type Lattice struct{}

// Noise2D implements Source2D.
func (Lattice) Noise2D(x, y float64) float64 {
	return Evaluate2D(x, y)
}

// Octave is seeded multi-octave gradient noise. Unlike Lattice it can be
// reseeded, which gives each run a different divergence pattern while the
// rotational term stays fixed.
type Octave struct {
	p *perlin.Perlin
}

// Octave defaults: alpha is the per-octave amplitude divisor, beta the
// frequency multiplier.
const (
	DefaultOctaveAlpha = 2.0
	DefaultOctaveBeta  = 2.0
	DefaultOctaves     = 3
)

// NewOctave creates an octave source. octaves must be at least 1.
func NewOctave(alpha, beta float64, octaves int, seed int64) (*Octave, error) {
	if octaves < 1 {
		return nil, fmt.Errorf("noise: octaves must be >= 1, got %d", octaves)
	}
	if alpha <= 0 || beta <= 0 {
		return nil, fmt.Errorf("noise: alpha and beta must be positive, got %v, %v", alpha, beta)
	}
	return &Octave{p: perlin.NewPerlin(alpha, beta, int32(octaves), seed)}, nil
}

// Noise2D implements Source2D. Summed octaves can overshoot, so the result
// is clamped to [-1, 1].
func (o *Octave) Noise2D(x, y float64) float64 {
	v := o.p.Noise2D(x, y)
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Source kinds accepted by NewSource.
const (
	KindLattice = "lattice"
	KindOctave  = "octave"
)

// NewSource builds a named Source2D. An empty kind selects the lattice.
func NewSource(kind string, seed int64) (Source2D, error) {
	switch kind {
	case "", KindLattice:
		return Lattice{}, nil
	case KindOctave:
		return NewOctave(DefaultOctaveAlpha, DefaultOctaveBeta, DefaultOctaves, seed)
	default:
		return nil, fmt.Errorf("noise: unknown source %q", kind)
	}
}
