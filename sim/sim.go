// Package sim drives a population of particles through the force field.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/swirl/components"
	"github.com/pthm-cable/swirl/config"
	"github.com/pthm-cable/swirl/field"
	"github.com/pthm-cable/swirl/telemetry"
)

// Options configures a Sim beyond the loaded config.
type Options struct {
	Seed           int64
	LogStats       bool    // Output window stats via slog
	StatsWindowSec float64 // 0 = use config
	OutputDir      string  // CSV + config output, empty = disabled
	SnapshotDir    string  // Snapshot written on Close, empty = disabled
	Metrics        *telemetry.Metrics

	// Resume restores particles, step and seed from a snapshot instead of
	// spawning a fresh population.
	Resume *telemetry.Snapshot

	// StatsCallback is called with each flushed window.
	StatsCallback func(telemetry.WindowStats)
}

// Sim holds the complete harness state.
type Sim struct {
	cfg   *config.Config
	field *field.ForceField

	world *ecs.World
	rng   *rand.Rand
	seed  int64

	particleMapper *ecs.Map4[
		components.Position,
		components.Velocity,
		components.Particle,
		components.Diagnostics,
	]
	particleFilter *ecs.Filter4[
		components.Position,
		components.Velocity,
		components.Particle,
		components.Diagnostics,
	]
	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	partMap *ecs.Map1[components.Particle]
	diagMap *ecs.Map1[components.Diagnostics]

	parallel *parallelState

	viewpoint r3.Vec
	step      int32
	nextID    uint32
	count     int

	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	metrics       *telemetry.Metrics
	samples       []telemetry.Sample

	logStats       bool
	traceParticles bool
	snapshotDir    string
	statsCallback  func(telemetry.WindowStats)
}

// New builds a harness from cfg. The field is created from the config with
// the run seed so the octave divergence source is reproducible.
func New(cfg *config.Config, opts Options) (*Sim, error) {
	seed := opts.Seed
	if opts.Resume != nil {
		seed = opts.Resume.RNGSeed
	}

	ff, err := cfg.NewField(seed)
	if err != nil {
		return nil, fmt.Errorf("building field: %w", err)
	}

	windowSteps := cfg.Derived.StatsWindowSteps
	if opts.StatsWindowSec > 0 {
		windowSteps = config.WindowSteps(opts.StatsWindowSec, cfg.Simulation.DT)
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir, cfg.Telemetry.TraceParticles)
	if err != nil {
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	world := ecs.NewWorld()
	s := &Sim{
		cfg:   cfg,
		field: ff,
		world: world,
		rng:   rand.New(rand.NewSource(seed)),
		seed:  seed,
		particleMapper: ecs.NewMap4[
			components.Position,
			components.Velocity,
			components.Particle,
			components.Diagnostics,
		](world),
		particleFilter: ecs.NewFilter4[
			components.Position,
			components.Velocity,
			components.Particle,
			components.Diagnostics,
		](world),
		posMap:  ecs.NewMap1[components.Position](world),
		velMap:  ecs.NewMap1[components.Velocity](world),
		partMap: ecs.NewMap1[components.Particle](world),
		diagMap: ecs.NewMap1[components.Diagnostics](world),

		parallel:  newParallelState(cfg.Simulation.ParallelThreshold),
		viewpoint: cfg.Derived.Viewpoint,

		collector:     telemetry.NewCollector(windowSteps, cfg.Simulation.DT),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		outputManager: output,
		metrics:       opts.Metrics,

		logStats:       opts.LogStats,
		traceParticles: cfg.Telemetry.TraceParticles,
		snapshotDir:    opts.SnapshotDir,
		statsCallback:  opts.StatsCallback,
	}

	if opts.Resume != nil {
		s.restore(opts.Resume)
	} else {
		s.spawnInitialPopulation()
	}
	s.updateViewpoint()

	return s, nil
}

// spawnInitialPopulation places particles uniformly inside the spawn sphere.
func (s *Sim) spawnInitialPopulation() {
	center := s.cfg.Derived.SpawnCenter
	radius := s.cfg.Simulation.SpawnRadius
	for i := 0; i < s.cfg.Simulation.Count; i++ {
		s.spawnParticle(r3.Add(center, r3.Scale(radius, s.insideUnitSphere())), r3.Vec{})
	}
}

// insideUnitSphere samples a point uniformly in the unit ball by rejection.
func (s *Sim) insideUnitSphere() r3.Vec {
	for {
		v := r3.Vec{
			X: 2*s.rng.Float64() - 1,
			Y: 2*s.rng.Float64() - 1,
			Z: 2*s.rng.Float64() - 1,
		}
		if r3.Norm2(v) <= 1 {
			return v
		}
	}
}

// spawnParticle creates a particle entity with a fresh ID.
func (s *Sim) spawnParticle(p, v r3.Vec) ecs.Entity {
	id := s.nextID
	s.nextID++
	return s.spawnWithID(id, p, v)
}

func (s *Sim) spawnWithID(id uint32, p, v r3.Vec) ecs.Entity {
	pos := components.Position{Vec: p}
	vel := components.Velocity{Vec: v}
	part := components.Particle{ID: id}
	diag := components.Diagnostics{}

	entity := s.particleMapper.NewEntity(&pos, &vel, &part, &diag)
	s.count++
	return entity
}

// updateViewpoint moves the viewpoint along its orbit, if it has one.
func (s *Sim) updateViewpoint() {
	vc := s.cfg.Simulation.Viewpoint
	if vc.OrbitRadius <= 0 {
		s.viewpoint = s.cfg.Derived.Viewpoint
		return
	}
	theta := vc.OrbitSpeed * s.SimTime()
	c := s.cfg.Derived.SpawnCenter
	s.viewpoint = r3.Vec{
		X: c.X + vc.OrbitRadius*math.Cos(theta),
		Y: vc.Position[1],
		Z: c.Z + vc.OrbitRadius*math.Sin(theta),
	}
}

// Step advances the simulation by one fixed step.
func (s *Sim) Step() {
	start := time.Now()
	s.perfCollector.StartStep()

	s.perfCollector.StartPhase(telemetry.PhaseViewpoint)
	s.updateViewpoint()

	s.perfCollector.StartPhase(telemetry.PhaseSnapshot)
	n := s.buildSnapshots()

	s.perfCollector.StartPhase(telemetry.PhaseForce)
	s.dispatch(n, taskForce)

	sampled := 0
	if s.diagnosticStep() {
		s.perfCollector.StartPhase(telemetry.PhaseDiagnostics)
		s.dispatch(n, taskDiagnostics)
		sampled = n
	}

	s.perfCollector.StartPhase(telemetry.PhaseIntegrate)
	s.applyIntents(sampled > 0)
	s.step++

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	if sampled > 0 {
		s.recordSamples()
	}
	s.flushTelemetry()

	s.perfCollector.EndStep()
	s.metrics.ObserveStep(time.Since(start), n, sampled)
}

// diagnosticStep reports whether curl and divergence are sampled this step.
func (s *Sim) diagnosticStep() bool {
	interval := int32(s.cfg.Simulation.DiagnosticInterval)
	return interval > 0 && s.step%interval == 0
}

// Run steps until ctx is done or maxSteps steps have run (0 = unlimited).
// It returns ctx.Err() when cancelled.
func (s *Sim) Run(ctx context.Context, maxSteps int) error {
	for i := 0; maxSteps <= 0 || i < maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Step()
	}
	slog.Info("max steps reached", "step", s.step)
	return nil
}

// Close stops workers, saves a final snapshot if configured and closes
// output files.
func (s *Sim) Close() error {
	s.parallel.stopWorkers()

	if s.snapshotDir != "" {
		path, err := telemetry.SaveSnapshot(s.Snapshot(), s.snapshotDir)
		if err != nil {
			slog.Error("failed to save snapshot", "error", err)
		} else {
			slog.Info("snapshot saved", "path", path, "step", s.step)
		}
	}

	return s.outputManager.Close()
}

// StepCount returns the number of steps taken.
func (s *Sim) StepCount() int32 {
	return s.step
}

// SimTime returns elapsed simulated seconds.
func (s *Sim) SimTime() float64 {
	return float64(s.step) * s.cfg.Simulation.DT
}

// Viewpoint returns the current viewpoint position.
func (s *Sim) Viewpoint() r3.Vec {
	return s.viewpoint
}

// Count returns the number of particles.
func (s *Sim) Count() int {
	return s.count
}

// Field returns the force field driving the particles.
func (s *Sim) Field() *field.ForceField {
	return s.field
}

// ParticleView is a read-only copy of one particle's state.
type ParticleView struct {
	ID          uint32
	Position    r3.Vec
	Velocity    r3.Vec
	LastForce   r3.Vec
	Diagnostics components.Diagnostics
}

// Particles returns copies of all particle states, ordered by ID.
func (s *Sim) Particles() []ParticleView {
	out := make([]ParticleView, 0, s.count)
	query := s.particleFilter.Query()
	for query.Next() {
		pos, vel, part, diag := query.Get()
		out = append(out, ParticleView{
			ID:          part.ID,
			Position:    pos.Vec,
			Velocity:    vel.Vec,
			LastForce:   part.LastForce,
			Diagnostics: *diag,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
