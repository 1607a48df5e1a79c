package field

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/spatial/r3"
)

func identity(p r3.Vec) r3.Vec { return p }

// rotation is v = (-y, x, 0): divergence 0, curl (0, 0, 2).
func rotation(p r3.Vec) r3.Vec { return r3.Vec{X: -p.Y, Y: p.X} }

func TestDivergenceIdentity(t *testing.T) {
	points := []r3.Vec{{}, {X: 1, Y: 2, Z: 3}, {X: -40, Y: 0.5, Z: 900}}
	for _, h := range []float64{0.1, 0.01, 1e-4} {
		for _, p := range points {
			assert.InDelta(t, 3.0, Divergence(identity, p, h), 1e-6, "p=%v h=%v", p, h)
		}
	}
}

func TestCurlIdentityIsZero(t *testing.T) {
	c := Curl(identity, r3.Vec{X: 3, Y: -2, Z: 7}, 0.1)
	assert.InDelta(t, 0, r3.Norm(c), 1e-12)
}

func TestCurlRotation(t *testing.T) {
	p := r3.Vec{X: 0.3, Y: -1.2, Z: 4}
	c := Curl(rotation, p, 0.05)
	assert.InDelta(t, 0, c.X, 1e-9)
	assert.InDelta(t, 0, c.Y, 1e-9)
	assert.InDelta(t, 2, c.Z, 1e-9)
	assert.InDelta(t, 0, Divergence(rotation, p, 0.05), 1e-9)
}

func TestCurlAxisOrientation(t *testing.T) {
	// Each field has a single nonzero curl component; a swapped axis or
	// sign in the stencil shows up here.
	tests := []struct {
		name string
		f    VectorField
		want r3.Vec
	}{
		{"z depends on y", func(p r3.Vec) r3.Vec { return r3.Vec{Z: p.Y} }, r3.Vec{X: 1}},
		{"y depends on z", func(p r3.Vec) r3.Vec { return r3.Vec{Y: p.Z} }, r3.Vec{X: -1}},
		{"x depends on z", func(p r3.Vec) r3.Vec { return r3.Vec{X: p.Z} }, r3.Vec{Y: 1}},
		{"z depends on x", func(p r3.Vec) r3.Vec { return r3.Vec{Z: p.X} }, r3.Vec{Y: -1}},
		{"y depends on x", func(p r3.Vec) r3.Vec { return r3.Vec{Y: p.X} }, r3.Vec{Z: 1}},
		{"x depends on y", func(p r3.Vec) r3.Vec { return r3.Vec{X: p.Y} }, r3.Vec{Z: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Curl(tt.f, r3.Vec{X: 1, Y: 2, Z: 3}, 0.1)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-9)
		})
	}
}

func TestStencilMatchesStandaloneOperators(t *testing.T) {
	s := Sampler{Scale: 0.7}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		p := r3.Vec{X: rng.Float64() * 50, Y: rng.Float64() * 50, Z: rng.Float64() * 50}
		curl, div := Differentials(s.Sample, p, 0.1)
		require.Equal(t, Curl(s.Sample, p, 0.1), curl)
		require.Equal(t, Divergence(s.Sample, p, 0.1), div)
	}
}

func TestStencilAgainstFiniteDifferenceOracle(t *testing.T) {
	s := Sampler{Scale: 0.4}
	p := r3.Vec{X: 2.3, Y: -1.7, Z: 5.1}
	const h = 0.05
	settings := &fd.Settings{Formula: fd.Central, Step: h}

	// d(component)/d(axis) via gonum
	partial := func(component, axis int) float64 {
		return fd.Derivative(func(v float64) float64 {
			q := p
			setAxis(&q, axis, v)
			return getAxis(s.Sample(q), component)
		}, getAxis(p, axis), settings)
	}

	curl, div := Differentials(s.Sample, p, h)
	want := r3.Vec{
		X: partial(2, 1) - partial(1, 2),
		Y: partial(0, 2) - partial(2, 0),
		Z: partial(1, 0) - partial(0, 1),
	}
	assert.InDelta(t, want.X, curl.X, 1e-9)
	assert.InDelta(t, want.Y, curl.Y, 1e-9)
	assert.InDelta(t, want.Z, curl.Z, 1e-9)
	assert.InDelta(t, partial(0, 0)+partial(1, 1)+partial(2, 2), div, 1e-9)
}

func TestCurlOfNoiseIsDivergenceFree(t *testing.T) {
	const h = 0.1
	for _, scale := range []float64{0.03, 0.3, 1} {
		s := Sampler{Scale: scale}
		curlField := func(q r3.Vec) r3.Vec { return Curl(s.Sample, q, h) }

		rng := rand.New(rand.NewSource(11))
		for i := 0; i < 100; i++ {
			p := r3.Vec{
				X: rng.Float64()*100 - 50,
				Y: rng.Float64()*100 - 50,
				Z: rng.Float64()*100 - 50,
			}
			div := Divergence(curlField, p, h)
			require.Less(t, math.Abs(div), 1e-3, "scale=%v p=%v", scale, p)
		}
	}
}

func TestSamplerComponentsPermuted(t *testing.T) {
	s := Sampler{Scale: 1}
	p := r3.Vec{X: 0.3, Y: 1.7, Z: -2.2}
	v := s.Sample(p)
	// The x component reads (y, z, x); evaluating at the rotated point
	// must move it into the z slot.
	rotated := s.Sample(r3.Vec{X: p.Y, Y: p.Z, Z: p.X})
	assert.Equal(t, v.X, rotated.Z)
	assert.NotEqual(t, v.X, v.Y)
	assert.NotEqual(t, v.Y, v.Z)
}

func getAxis(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func setAxis(v *r3.Vec, axis int, x float64) {
	switch axis {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
}

func BenchmarkCurlAndDivergenceSeparate(b *testing.B) {
	s := Sampler{Scale: 0.03}
	p := r3.Vec{X: 1, Y: 1.5, Z: -2}
	var sink float64
	for n := 0; n < b.N; n++ {
		c := Curl(s.Sample, p, 0.1)
		sink += c.X + Divergence(s.Sample, p, 0.1)
	}
	_ = sink
}

func BenchmarkDifferentials(b *testing.B) {
	s := Sampler{Scale: 0.03}
	p := r3.Vec{X: 1, Y: 1.5, Z: -2}
	var sink float64
	for n := 0; n < b.N; n++ {
		c, d := Differentials(s.Sample, p, 0.1)
		sink += c.X + d
	}
	_ = sink
}
