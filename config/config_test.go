package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/swirl/field"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}

	want := field.DefaultParams()
	if cfg.Derived.FieldParams != want {
		t.Errorf("default field params = %+v, want %+v", cfg.Derived.FieldParams, want)
	}
	if cfg.Simulation.Count != 50 {
		t.Errorf("count = %d, want 50", cfg.Simulation.Count)
	}
	if cfg.Simulation.Damping != 0.99 {
		t.Errorf("damping = %v, want 0.99", cfg.Simulation.Damping)
	}
	// 5s window at dt 0.02
	if cfg.Derived.StatsWindowSteps != 250 {
		t.Errorf("stats window steps = %d, want 250", cfg.Derived.StatsWindowSteps)
	}
}

func TestWindowSteps(t *testing.T) {
	tests := []struct {
		window, dt float64
		want       int32
	}{
		{5, 0.02, 250},
		{0.05, 0.02, 3},
		{0.001, 0.02, 1},
		{5, 0, 1},
	}
	for _, tt := range tests {
		if got := WindowSteps(tt.window, tt.dt); got != tt.want {
			t.Errorf("WindowSteps(%v, %v) = %d, want %d", tt.window, tt.dt, got, tt.want)
		}
	}
}

func TestParseOverridesOnlyGivenFields(t *testing.T) {
	cfg, err := Parse([]byte("field:\n  curl_strength: 5\nsimulation:\n  count: 7\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Field.CurlStrength != 5 {
		t.Errorf("curl_strength = %v, want 5", cfg.Field.CurlStrength)
	}
	if cfg.Field.CurlEpsilon != 0.1 {
		t.Errorf("curl_epsilon = %v, want default 0.1", cfg.Field.CurlEpsilon)
	}
	if cfg.Simulation.Count != 7 {
		t.Errorf("count = %d, want 7", cfg.Simulation.Count)
	}
	if cfg.Derived.FieldParams.CurlStrength != 5 {
		t.Errorf("derived curl strength = %v, want 5", cfg.Derived.FieldParams.CurlStrength)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero epsilon", "field:\n  curl_epsilon: 0\n"},
		{"negative epsilon", "field:\n  curl_epsilon: -1\n"},
		{"unknown source", "field:\n  divergence_source: simplex\n"},
		{"zero dt", "simulation:\n  dt: 0\n"},
		{"damping above one", "simulation:\n  damping: 1.5\n"},
		{"negative count", "simulation:\n  count: -3\n"},
		{"bad plane", "probe:\n  plane: xw\n"},
		{"zero resolution", "probe:\n  resolution: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestEpsilonErrorWrapsFieldSentinel(t *testing.T) {
	_, err := Parse([]byte("field:\n  curl_epsilon: 0\n"))
	if !errors.Is(err, field.ErrInvalidEpsilon) {
		t.Errorf("error %v does not wrap field.ErrInvalidEpsilon", err)
	}
}

func TestLoadFileAndWriteYAMLRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("field:\n  center: [1, 2, 3]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Derived.FieldParams.Center; got.X != 1 || got.Y != 2 || got.Z != 3 {
		t.Errorf("center = %v, want (1, 2, 3)", got)
	}

	out := filepath.Join(dir, "snapshot.yaml")
	if err := cfg.WriteYAML(out); err != nil {
		t.Fatal(err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if again.Field != cfg.Field || again.Simulation != cfg.Simulation {
		t.Error("written config does not load back to the same values")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewField(t *testing.T) {
	for _, src := range []string{"lattice", "octave"} {
		cfg, err := Parse([]byte("field:\n  divergence_source: " + src + "\n"))
		if err != nil {
			t.Fatal(err)
		}
		f, err := cfg.NewField(1)
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		if f.Params() != cfg.Derived.FieldParams {
			t.Errorf("%s: field params differ from config", src)
		}
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() { global = saved }()

	defer func() {
		if recover() == nil {
			t.Error("Cfg() did not panic before Init")
		}
	}()
	Cfg()
}
