// Package telemetry provides field diagnostics aggregation, performance
// tracking, CSV output, snapshots and Prometheus metrics for the harness.
package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sample is one particle's diagnostic reading at a step.
type Sample struct {
	Step       int32   `csv:"step"`
	ParticleID uint32  `csv:"id"`
	X          float64 `csv:"x"`
	Y          float64 `csv:"y"`
	Z          float64 `csv:"z"`
	Divergence float64 `csv:"divergence"`
	CurlX      float64 `csv:"curl_x"`
	CurlY      float64 `csv:"curl_y"`
	CurlZ      float64 `csv:"curl_z"`
	CurlMag    float64 `csv:"curl_mag"`
}

// NewSample builds a Sample from a position and its differentials.
func NewSample(step int32, id uint32, pos r3.Vec, div float64, curl r3.Vec) Sample {
	return Sample{
		Step:       step,
		ParticleID: id,
		X:          pos.X,
		Y:          pos.Y,
		Z:          pos.Z,
		Divergence: div,
		CurlX:      curl.X,
		CurlY:      curl.Y,
		CurlZ:      curl.Z,
		CurlMag:    r3.Norm(curl),
	}
}

// LogValue implements slog.LogValuer.
func (s Sample) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", int(s.Step)),
		slog.Int("id", int(s.ParticleID)),
		slog.Float64("div", s.Divergence),
		slog.Float64("curl_x", s.CurlX),
		slog.Float64("curl_y", s.CurlY),
		slog.Float64("curl_z", s.CurlZ),
		slog.Float64("curl_mag", s.CurlMag),
	)
}
