package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunHeadless(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{"-seed", "1", "-max-steps", "3", "-snapshot-dir", dir, "-output-dir", dir})
	if code != 0 {
		t.Fatalf("run exit code = %d, want 0", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "snapshot_3.json")); err != nil {
		t.Errorf("final snapshot missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot missing: %v", err)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"bad flag", []string{"-no-such-flag"}, 2},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, 1},
		{"missing snapshot", []string{"-resume", filepath.Join(t.TempDir(), "missing.json")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
