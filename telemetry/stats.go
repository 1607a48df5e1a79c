package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated field diagnostics for a time window.
type WindowStats struct {
	WindowStartStep int32   `csv:"-"`
	WindowEndStep   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Particles int `csv:"particles"`
	Samples   int `csv:"samples"` // Diagnostic samples taken during the window

	// Divergence of the composed force at particle positions
	DivMean   float64 `csv:"div_mean"`
	DivStd    float64 `csv:"div_std"`
	DivP10    float64 `csv:"div_p10"`
	DivP50    float64 `csv:"div_p50"`
	DivP90    float64 `csv:"div_p90"`
	DivAbsMax float64 `csv:"div_abs_max"`

	// |curl| at particle positions
	CurlMean float64 `csv:"curl_mean"`
	CurlP50  float64 `csv:"curl_p50"`
	CurlP90  float64 `csv:"curl_p90"`
	CurlMax  float64 `csv:"curl_max"`

	// Motion, sampled at window end
	SpeedMean  float64 `csv:"speed_mean"`
	SpeedMax   float64 `csv:"speed_max"`
	HeightMean float64 `csv:"height_mean"`
	HeightMin  float64 `csv:"height_min"`
	HeightMax  float64 `csv:"height_max"`
	ForceMean  float64 `csv:"force_mean"`
}

// SeriesStats summarizes one sampled series.
type SeriesStats struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Min, Max      float64
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSeriesStats calculates population mean/std, percentiles and range.
// Returns the zero value for an empty series.
func ComputeSeriesStats(values []float64) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}

	mean, std := stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return SeriesStats{
		Mean: mean,
		Std:  std,
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
	}
}

// absMax returns max |v|, or 0 for an empty slice.
func absMax(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Norm(values, math.Inf(1))
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartStep)),
		slog.Int("window_end", int(s.WindowEndStep)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("samples", s.Samples),
		slog.Float64("div_mean", s.DivMean),
		slog.Float64("div_std", s.DivStd),
		slog.Float64("div_p10", s.DivP10),
		slog.Float64("div_p50", s.DivP50),
		slog.Float64("div_p90", s.DivP90),
		slog.Float64("div_abs_max", s.DivAbsMax),
		slog.Float64("curl_mean", s.CurlMean),
		slog.Float64("curl_p50", s.CurlP50),
		slog.Float64("curl_p90", s.CurlP90),
		slog.Float64("curl_max", s.CurlMax),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("height_mean", s.HeightMean),
		slog.Float64("height_min", s.HeightMin),
		slog.Float64("height_max", s.HeightMax),
		slog.Float64("force_mean", s.ForceMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
