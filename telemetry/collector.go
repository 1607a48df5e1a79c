package telemetry

// Collector accumulates diagnostic samples within time windows and produces
// WindowStats. It is not safe for concurrent use; the harness records
// samples after the parallel phase of each step.
type Collector struct {
	windowDurationSteps int32
	dt                  float64

	// Current window tracking
	windowStartStep int32

	divergence []float64
	curlMag    []float64
}

// NewCollector creates a new stats collector.
// windowSteps: steps per stats window (values below 1 are treated as 1)
// dt: seconds per step (used for step-to-time conversion)
func NewCollector(windowSteps int32, dt float64) *Collector {
	return &Collector{
		windowDurationSteps: max(windowSteps, 1),
		dt:                  dt,
	}
}

// RecordSample adds one particle's diagnostic reading to the window.
func (c *Collector) RecordSample(s Sample) {
	c.divergence = append(c.divergence, s.Divergence)
	c.curlMag = append(c.curlMag, s.CurlMag)
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(currentStep int32) bool {
	return currentStep-c.windowStartStep >= c.windowDurationSteps
}

// StartAt begins a new window at step, discarding pending samples.
func (c *Collector) StartAt(step int32) {
	c.windowStartStep = step
	c.divergence = c.divergence[:0]
	c.curlMag = c.curlMag[:0]
}

// Motion holds per-particle state sampled at window end.
type Motion struct {
	Speeds  []float64
	Heights []float64
	Forces  []float64 // |force| applied on the last step
}

// Flush produces a WindowStats and resets the window.
func (c *Collector) Flush(currentStep int32, motion Motion) WindowStats {
	div := ComputeSeriesStats(c.divergence)
	curl := ComputeSeriesStats(c.curlMag)
	speed := ComputeSeriesStats(motion.Speeds)
	height := ComputeSeriesStats(motion.Heights)
	force := ComputeSeriesStats(motion.Forces)

	stats := WindowStats{
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   currentStep,
		SimTimeSec:      float64(currentStep) * c.dt,

		Particles: len(motion.Heights),
		Samples:   len(c.divergence),

		DivMean:   div.Mean,
		DivStd:    div.Std,
		DivP10:    div.P10,
		DivP50:    div.P50,
		DivP90:    div.P90,
		DivAbsMax: absMax(c.divergence),

		CurlMean: curl.Mean,
		CurlP50:  curl.P50,
		CurlP90:  curl.P90,
		CurlMax:  curl.Max,

		SpeedMean:  speed.Mean,
		SpeedMax:   speed.Max,
		HeightMean: height.Mean,
		HeightMin:  height.Min,
		HeightMax:  height.Max,
		ForceMean:  force.Mean,
	}

	// Reset for next window, keeping capacity
	c.windowStartStep = currentStep
	c.divergence = c.divergence[:0]
	c.curlMag = c.curlMag[:0]

	return stats
}

// WindowDurationSteps returns the number of steps per window.
func (c *Collector) WindowDurationSteps() int32 {
	return c.windowDurationSteps
}
