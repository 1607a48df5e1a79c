// Package config provides configuration loading and access for the field
// and its simulation harness.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/swirl/field"
	"github.com/pthm-cable/swirl/noise"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Vec3 is a YAML-friendly [x, y, z] triple.
type Vec3 [3]float64

// R3 converts to a gonum vector.
func (v Vec3) R3() r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// Config holds all configuration parameters.
type Config struct {
	Field      FieldConfig      `yaml:"field"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Probe      ProbeConfig      `yaml:"probe"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// FieldConfig holds the force field parameters.
type FieldConfig struct {
	NoiseScale           float64 `yaml:"noise_scale"`            // Spatial frequency of the base noise
	CurlStrength         float64 `yaml:"curl_strength"`          // Rotational force multiplier
	CurlEpsilon          float64 `yaml:"curl_epsilon"`           // Finite-difference step (> 0)
	DivergenceNoiseScale float64 `yaml:"divergence_noise_scale"` // Spatial frequency of the divergence noise
	DivergenceStrength   float64 `yaml:"divergence_strength"`    // Radial force multiplier
	Center               Vec3    `yaml:"center"`                 // Reference center for diagnostics
	DivergenceSource     string  `yaml:"divergence_source"`      // lattice | octave
}

// SimulationConfig holds particle harness parameters.
type SimulationConfig struct {
	Count              int             `yaml:"count"`
	SpawnRadius        float64         `yaml:"spawn_radius"` // Radius of the spawn sphere
	SpawnCenter        Vec3            `yaml:"spawn_center"`
	DT                 float64         `yaml:"dt"`
	Attraction         float64         `yaml:"attraction"`          // Pull toward the viewpoint
	Damping            float64         `yaml:"damping"`             // Velocity multiplier per step, in [0, 1]
	DiagnosticInterval int             `yaml:"diagnostic_interval"` // Steps between curl/divergence samples (0 = off)
	ParallelThreshold  int             `yaml:"parallel_threshold"`  // Below this, forces are computed on one goroutine
	Viewpoint          ViewpointConfig `yaml:"viewpoint"`
}

// ViewpointConfig describes the tracked point the radial term pushes away
// from. A positive orbit radius moves it in a horizontal circle around the
// spawn center.
type ViewpointConfig struct {
	Position    Vec3    `yaml:"position"`
	OrbitRadius float64 `yaml:"orbit_radius"`
	OrbitSpeed  float64 `yaml:"orbit_speed"` // Radians per second
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Seconds of simulated time per window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	TraceParticles      bool    `yaml:"trace_particles"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// ProbeConfig describes the grid sampled by cmd/fieldprobe.
type ProbeConfig struct {
	Plane      string  `yaml:"plane"` // xy | xz | yz
	Origin     Vec3    `yaml:"origin"`
	Extent     float64 `yaml:"extent"`
	Resolution int     `yaml:"resolution"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	FieldParams      field.Params
	StatsWindowSteps int32
	Viewpoint        r3.Vec
	SpawnCenter      r3.Vec
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse is like Load but reads overrides from memory.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Refresh recomputes derived values and validates after fields were changed
// in place.
func (c *Config) Refresh() error {
	c.computeDerived()
	return c.Validate()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	f := c.Field
	c.Derived.FieldParams = field.Params{
		NoiseScale:           f.NoiseScale,
		CurlStrength:         f.CurlStrength,
		CurlEpsilon:          f.CurlEpsilon,
		DivergenceNoiseScale: f.DivergenceNoiseScale,
		DivergenceStrength:   f.DivergenceStrength,
		Center:               f.Center.R3(),
	}

	c.Derived.StatsWindowSteps = WindowSteps(c.Telemetry.StatsWindow, c.Simulation.DT)
	c.Derived.Viewpoint = c.Simulation.Viewpoint.Position.R3()
	c.Derived.SpawnCenter = c.Simulation.SpawnCenter.R3()
}

// WindowSteps converts a window length in simulation seconds to a whole
// number of steps, at least one.
func WindowSteps(windowSec, dt float64) int32 {
	if dt <= 0 {
		return 1
	}
	return max(int32(math.Round(windowSec/dt)), 1)
}

// Validate checks the configuration for values the field or harness cannot
// run with.
func (c *Config) Validate() error {
	if err := c.Derived.FieldParams.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Field.DivergenceSource {
	case "", noise.KindLattice, noise.KindOctave:
	default:
		return fmt.Errorf("%w: field.divergence_source %q", ErrInvalid, c.Field.DivergenceSource)
	}

	s := c.Simulation
	if s.Count < 0 {
		return fmt.Errorf("%w: simulation.count %d", ErrInvalid, s.Count)
	}
	if !(s.DT > 0) {
		return fmt.Errorf("%w: simulation.dt %v must be positive", ErrInvalid, s.DT)
	}
	if s.SpawnRadius < 0 {
		return fmt.Errorf("%w: simulation.spawn_radius %v", ErrInvalid, s.SpawnRadius)
	}
	if s.Damping < 0 || s.Damping > 1 {
		return fmt.Errorf("%w: simulation.damping %v outside [0, 1]", ErrInvalid, s.Damping)
	}
	if s.DiagnosticInterval < 0 {
		return fmt.Errorf("%w: simulation.diagnostic_interval %d", ErrInvalid, s.DiagnosticInterval)
	}

	switch c.Probe.Plane {
	case "xy", "xz", "yz":
	default:
		return fmt.Errorf("%w: probe.plane %q", ErrInvalid, c.Probe.Plane)
	}
	if c.Probe.Resolution < 1 {
		return fmt.Errorf("%w: probe.resolution %d", ErrInvalid, c.Probe.Resolution)
	}
	return nil
}

// NewField builds the force field described by the configuration.
func (c *Config) NewField(seed int64) (*field.ForceField, error) {
	src, err := noise.NewSource(c.Field.DivergenceSource, seed)
	if err != nil {
		return nil, err
	}
	return field.New(c.Derived.FieldParams, field.WithDivergenceSource(src))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
