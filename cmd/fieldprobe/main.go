// Package main samples the configured force field on a regular grid and
// writes the results as CSV.
package main

import (
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/swirl/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("fieldprobe", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml (empty = use defaults)")
	out := fs.String("out", "", "Output CSV path (empty = stdout)")
	seed := fs.Int64("seed", 1, "Seed for seeded divergence sources")
	plane := fs.String("plane", "", "Sampling plane: xy, xz or yz (empty = use config)")
	resolution := fs.Int("resolution", 0, "Samples per axis (0 = use config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *plane != "" {
		cfg.Probe.Plane = *plane
	}
	if *resolution > 0 {
		cfg.Probe.Resolution = *resolution
	}
	if err := cfg.Refresh(); err != nil {
		return err
	}

	ff, err := cfg.NewField(*seed)
	if err != nil {
		return err
	}

	rows := Probe(ff, cfg.Probe, cfg.Derived.FieldParams.Center)
	if err := writeRows(*out, rows, stdout); err != nil {
		return err
	}

	slog.Info("probe complete",
		"plane", cfg.Probe.Plane,
		"resolution", cfg.Probe.Resolution,
		"samples", len(rows),
		"out", *out,
	)
	return nil
}

// writeRows marshals rows to path, or to stdout when path is empty.
func writeRows(path string, rows []Row, stdout io.Writer) (err error) {
	if path == "" {
		return gocsv.Marshal(rows, stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return gocsv.Marshal(rows, f)
}
