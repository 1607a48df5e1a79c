// Package main provides CMA-ES tuning of field and harness parameters.
package main

import (
	"github.com/pthm-cable/swirl/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Field
			{Name: "noise_scale", Path: "field.noise_scale", Min: 0.005, Max: 0.2, Default: 0.03},
			{Name: "curl_strength", Path: "field.curl_strength", Min: 0.2, Max: 6.0, Default: 2.0},
			{Name: "divergence_noise_scale", Path: "field.divergence_noise_scale", Min: 0.05, Max: 2.0, Default: 0.5},
			{Name: "divergence_strength", Path: "field.divergence_strength", Min: 0.0, Max: 4.0, Default: 1.0},
			// Harness
			{Name: "attraction", Path: "simulation.attraction", Min: 0.1, Max: 4.0, Default: 1.0},
			{Name: "damping", Path: "simulation.damping", Min: 0.9, Max: 0.999, Default: 0.99},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct and refreshes
// its derived values. Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	clamped := pv.Clamp(values)

	cfg.Field.NoiseScale = clamped[0]
	cfg.Field.CurlStrength = clamped[1]
	cfg.Field.DivergenceNoiseScale = clamped[2]
	cfg.Field.DivergenceStrength = clamped[3]
	cfg.Simulation.Attraction = clamped[4]
	cfg.Simulation.Damping = clamped[5]

	return cfg.Refresh()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Field.NoiseScale,
		cfg.Field.CurlStrength,
		cfg.Field.DivergenceNoiseScale,
		cfg.Field.DivergenceStrength,
		cfg.Simulation.Attraction,
		cfg.Simulation.Damping,
	}
}
