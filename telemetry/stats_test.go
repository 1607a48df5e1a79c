package telemetry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeSeriesStats(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	s := ComputeSeriesStats(values)

	if math.Abs(s.Mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", s.Mean)
	}
	// Population std of 0.1..1.0
	if math.Abs(s.Std-0.2872) > 0.001 {
		t.Errorf("std = %v, want ~0.2872", s.Std)
	}
	if math.Abs(s.P10-0.19) > 0.01 {
		t.Errorf("p10 = %v, want ~0.19", s.P10)
	}
	if math.Abs(s.P50-0.55) > 0.01 {
		t.Errorf("p50 = %v, want ~0.55", s.P50)
	}
	if math.Abs(s.P90-0.91) > 0.01 {
		t.Errorf("p90 = %v, want ~0.91", s.P90)
	}
	if s.Min != 0.1 || s.Max != 1.0 {
		t.Errorf("range = [%v, %v], want [0.1, 1.0]", s.Min, s.Max)
	}
	// Input must not be reordered
	if values[0] != 0.1 || values[9] != 1.0 {
		t.Error("input slice was modified")
	}
}

func TestComputeSeriesStatsEmpty(t *testing.T) {
	if s := ComputeSeriesStats(nil); s != (SeriesStats{}) {
		t.Errorf("empty series = %+v, want zero value", s)
	}
}

func TestAbsMax(t *testing.T) {
	if got := absMax([]float64{0.5, -2, 1}); got != 2 {
		t.Errorf("absMax = %v, want 2", got)
	}
	if got := absMax(nil); got != 0 {
		t.Errorf("absMax(nil) = %v, want 0", got)
	}
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(10, 0.1)
	if c.WindowDurationSteps() != 10 {
		t.Fatalf("window steps = %d, want 10", c.WindowDurationSteps())
	}

	for step := int32(1); step <= 10; step++ {
		c.RecordSample(NewSample(step, 0, r3.Vec{Y: 1}, float64(step)*0.01, r3.Vec{X: 3, Y: 4}))
		c.RecordSample(NewSample(step, 1, r3.Vec{Y: 2}, -float64(step)*0.01, r3.Vec{}))
		if step < 10 && c.ShouldFlush(step) {
			t.Fatalf("ShouldFlush(%d) = true before window end", step)
		}
	}
	if !c.ShouldFlush(10) {
		t.Fatal("ShouldFlush(10) = false at window end")
	}

	stats := c.Flush(10, Motion{
		Speeds:  []float64{1, 3},
		Heights: []float64{1, 2},
		Forces:  []float64{0.5, 0.5},
	})

	if stats.Samples != 20 || stats.Particles != 2 {
		t.Errorf("samples/particles = %d/%d, want 20/2", stats.Samples, stats.Particles)
	}
	if math.Abs(stats.DivMean) > 1e-12 {
		t.Errorf("div mean = %v, want 0 (symmetric samples)", stats.DivMean)
	}
	if math.Abs(stats.DivAbsMax-0.1) > 1e-12 {
		t.Errorf("div abs max = %v, want 0.1", stats.DivAbsMax)
	}
	if stats.CurlMax != 5 || math.Abs(stats.CurlMean-2.5) > 1e-12 {
		t.Errorf("curl max/mean = %v/%v, want 5/2.5", stats.CurlMax, stats.CurlMean)
	}
	if stats.SpeedMean != 2 || stats.HeightMin != 1 || stats.HeightMax != 2 {
		t.Errorf("motion stats wrong: %+v", stats)
	}
	if math.Abs(stats.SimTimeSec-1.0) > 1e-9 {
		t.Errorf("sim time = %v, want 1.0", stats.SimTimeSec)
	}

	// Window reset
	if c.ShouldFlush(11) {
		t.Error("ShouldFlush(11) = true right after flush")
	}
	next := c.Flush(20, Motion{})
	if next.Samples != 0 || next.WindowStartStep != 10 {
		t.Errorf("next window = %+v, want empty starting at 10", next)
	}
}
