package main

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/swirl/config"
	"github.com/pthm-cable/swirl/field"
	"github.com/pthm-cable/swirl/noise"
)

// Row is one grid sample.
type Row struct {
	I          int     `csv:"i"`
	J          int     `csv:"j"`
	X          float64 `csv:"x"`
	Y          float64 `csv:"y"`
	Z          float64 `csv:"z"`
	Noise      float64 `csv:"noise"`
	ForceX     float64 `csv:"force_x"`
	ForceY     float64 `csv:"force_y"`
	ForceZ     float64 `csv:"force_z"`
	ForceMag   float64 `csv:"force_mag"`
	CurlX      float64 `csv:"curl_x"`
	CurlY      float64 `csv:"curl_y"`
	CurlZ      float64 `csv:"curl_z"`
	CurlMag    float64 `csv:"curl_mag"`
	Divergence float64 `csv:"divergence"`
}

// planeAxes returns the two unit axes spanning a probe plane.
func planeAxes(plane string) (u, v r3.Vec) {
	switch plane {
	case "xz":
		return r3.Vec{X: 1}, r3.Vec{Z: 1}
	case "yz":
		return r3.Vec{Y: 1}, r3.Vec{Z: 1}
	default:
		return r3.Vec{X: 1}, r3.Vec{Y: 1}
	}
}

// Probe samples ff on a Resolution x Resolution grid spanning Extent along
// both plane axes from Origin. Force and differentials are taken about
// center. Rows are ordered with i (first axis) varying slowest.
func Probe(ff *field.ForceField, pc config.ProbeConfig, center r3.Vec) []Row {
	u, v := planeAxes(pc.Plane)
	origin := pc.Origin.R3()
	n := pc.Resolution

	spacing := 0.0
	if n > 1 {
		spacing = pc.Extent / float64(n-1)
	}
	scale := ff.Params().NoiseScale

	rows := make([]Row, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p := r3.Add(origin, r3.Add(r3.Scale(float64(i)*spacing, u), r3.Scale(float64(j)*spacing, v)))
			q := r3.Scale(scale, p)

			force := ff.Force(p, center)
			curl, div := ff.Diagnostics(p, center)

			rows = append(rows, Row{
				I:          i,
				J:          j,
				X:          p.X,
				Y:          p.Y,
				Z:          p.Z,
				Noise:      noise.Evaluate(q.X, q.Y, q.Z),
				ForceX:     force.X,
				ForceY:     force.Y,
				ForceZ:     force.Z,
				ForceMag:   r3.Norm(force),
				CurlX:      curl.X,
				CurlY:      curl.Y,
				CurlZ:      curl.Z,
				CurlMag:    r3.Norm(curl),
				Divergence: div,
			})
		}
	}
	return rows
}
