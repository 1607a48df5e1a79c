package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes harness counters and field diagnostics to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	steps       prometheus.Counter
	forces      prometheus.Counter
	samples     prometheus.Counter
	stepSeconds prometheus.Histogram

	particles prometheus.Gauge
	divMean   prometheus.Gauge
	curlMean  prometheus.Gauge
	speedMean prometheus.Gauge
}

// NewMetrics creates the metric set and registers it on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Simulation steps completed.",
		}),
		forces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "force_evaluations_total",
			Help:      "Force field evaluations performed.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostic_samples_total",
			Help:      "Per-particle curl and divergence samples taken.",
		}),
		stepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of one simulation step.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		particles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "particles",
			Help:      "Particles in the simulation.",
		}),
		divMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "divergence_mean",
			Help:      "Mean divergence over the last stats window.",
		}),
		curlMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "curl_magnitude_mean",
			Help:      "Mean |curl| over the last stats window.",
		}),
		speedMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speed_mean",
			Help:      "Mean particle speed at the end of the last stats window.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.steps, m.forces, m.samples, m.stepSeconds,
		m.particles, m.divMean, m.curlMean, m.speedMean,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveStep records one completed step.
func (m *Metrics) ObserveStep(d time.Duration, forceEvals, samples int) {
	if m == nil {
		return
	}
	m.steps.Inc()
	m.stepSeconds.Observe(d.Seconds())
	m.forces.Add(float64(forceEvals))
	m.samples.Add(float64(samples))
}

// ObserveWindow publishes the aggregates of a flushed window.
func (m *Metrics) ObserveWindow(s WindowStats) {
	if m == nil {
		return
	}
	m.particles.Set(float64(s.Particles))
	m.divMean.Set(s.DivMean)
	m.curlMean.Set(s.CurlMean)
	m.speedMean.Set(s.SpeedMean)
}
