package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/swirl/config"
	"github.com/pthm-cable/swirl/sim"
	"github.com/pthm-cable/swirl/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params       *ParamVector
	maxSteps     int32
	seeds        []int64
	baseConfig   *config.Config
	statsWindow  float64
	escapeSpread float64

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxSteps int32, seeds []int64, baseCfg *config.Config, escapeSpread float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:       params,
		maxSteps:     maxSteps,
		seeds:        seeds,
		baseConfig:   baseCfg,
		statsWindow:  1.0,
		escapeSpread: escapeSpread,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	containedSteps int32                   // steps before the cloud escaped (or maxSteps)
	windowStats    []telemetry.WindowStats // collected via StatsCallback each window
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Invalid parameter combinations score 0, the worst possible value.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return 0
	}

	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result, err := fe.runSimulation(cfg, s)
			if err != nil {
				return
			}
			quality := fe.computeQuality(result.windowStats)
			results[idx] = seedResult{
				fitness: computeFitness(result.containedSteps, quality),
				quality: quality,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless run until the particle cloud
// escapes or maxSteps is reached.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (*runResult, error) {
	result := &runResult{}
	escaped := false

	s, err := sim.New(cfg, sim.Options{
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
			if fe.escapedWindow(stats) {
				escaped = true
			}
		},
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	for s.StepCount() < fe.maxSteps && !escaped {
		s.Step()
	}
	result.containedSteps = s.StepCount()
	if !escaped {
		result.containedSteps = fe.maxSteps
	}
	return result, nil
}

// escapedWindow reports whether the cloud spread beyond the escape bound or
// went non-finite.
func (fe *FitnessEvaluator) escapedWindow(w telemetry.WindowStats) bool {
	spread := w.HeightMax - w.HeightMin
	return math.IsNaN(spread) || math.IsInf(spread, 0) || spread > fe.escapeSpread
}

// copyConfig creates a deep copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(containedSteps × (1.0 + quality))
func computeFitness(containedSteps int32, quality float64) float64 {
	return -(float64(containedSteps) * (1.0 + quality))
}

// Quality component weights.
const (
	qualityWeightSwirl     = 0.40
	qualityWeightCohesion  = 0.35
	qualityWeightStability = 0.25

	qualityWarmupWindows = 2    // skip first N windows (warmup)
	qualityCurlScale     = 0.5  // |curl| at which the swirl score saturates
	qualitySpreadTarget  = 1.0  // preferred vertical extent of the cloud
)

// computeQuality computes plume quality in [0, 1] from window stats.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	var swirlSum, cohesionSum float64
	speeds := make([]float64, 0, len(valid))

	for _, w := range valid {
		// 1. Rotational activity at particle positions
		swirlSum += 1.0 - math.Exp(-w.CurlMean/qualityCurlScale)

		// 2. Cloud stays compact around the viewpoint
		excess := math.Max(0, (w.HeightMax-w.HeightMin)-qualitySpreadTarget) / qualitySpreadTarget
		cohesionSum += math.Exp(-excess * excess)

		speeds = append(speeds, w.SpeedMean)
	}

	n := float64(len(valid))
	swirlScore := swirlSum / n
	cohesionScore := cohesionSum / n

	// 3. Steady motion (coefficient of variation of mean speed)
	stabilityScore := 0.0
	if len(speeds) >= 2 {
		c := cv(speeds)
		stabilityScore = math.Exp(-c * c)
	}

	quality := qualityWeightSwirl*swirlScore +
		qualityWeightCohesion*cohesionScore +
		qualityWeightStability*stabilityScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
