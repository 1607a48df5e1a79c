package sim

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/swirl/config"
	"github.com/pthm-cable/swirl/telemetry"
)

// recordSamples feeds the diagnostics taken this step to the collector and
// particle output.
func (s *Sim) recordSamples() {
	s.samples = s.samples[:0]
	for i, snap := range s.parallel.snapshots {
		in := &s.parallel.intents[i]
		sample := telemetry.NewSample(s.step, snap.ID, snap.Pos, in.Divergence, in.Curl)
		s.collector.RecordSample(sample)
		s.samples = append(s.samples, sample)

		if s.traceParticles {
			slog.Debug("particle", "sample", sample)
		}
	}

	if err := s.outputManager.WriteSamples(s.samples); err != nil {
		slog.Error("failed to write particles", "error", err)
	}
}

// flushTelemetry checks if the stats window should be flushed.
func (s *Sim) flushTelemetry() {
	if !s.collector.ShouldFlush(s.step) {
		return
	}

	stats := s.collector.Flush(s.step, s.sampleMotion())
	perfStats := s.perfCollector.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}
	s.metrics.ObserveWindow(stats)

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.WindowEndStep); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// sampleMotion collects speed, height and applied force per particle.
func (s *Sim) sampleMotion() telemetry.Motion {
	m := telemetry.Motion{
		Speeds:  make([]float64, 0, s.count),
		Heights: make([]float64, 0, s.count),
		Forces:  make([]float64, 0, s.count),
	}

	query := s.particleFilter.Query()
	for query.Next() {
		pos, vel, part, _ := query.Get()
		m.Speeds = append(m.Speeds, r3.Norm(vel.Vec))
		m.Heights = append(m.Heights, pos.Y)
		m.Forces = append(m.Forces, r3.Norm(part.LastForce))
	}
	return m
}

// Snapshot captures the current harness state.
func (s *Sim) Snapshot() *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version:   telemetry.SnapshotVersion,
		RNGSeed:   s.seed,
		Step:      s.step,
		Viewpoint: toVec3(s.viewpoint),
	}
	for _, p := range s.Particles() {
		snapshot.Particles = append(snapshot.Particles, telemetry.ParticleState{
			ID:       p.ID,
			Position: toVec3(p.Position),
			Velocity: toVec3(p.Velocity),
		})
	}
	return snapshot
}

// restore spawns the particles recorded in snapshot and resumes its step.
func (s *Sim) restore(snapshot *telemetry.Snapshot) {
	s.step = snapshot.Step
	s.collector.StartAt(s.step)
	for _, p := range snapshot.Particles {
		s.spawnWithID(p.ID, p.Position.R3(), p.Velocity.R3())
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	slog.Info("restored snapshot", "step", s.step, "particles", len(snapshot.Particles))
}

func toVec3(v r3.Vec) config.Vec3 {
	return config.Vec3{v.X, v.Y, v.Z}
}
