package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm-cable/swirl/config"
	"github.com/pthm-cable/swirl/sim"
	"github.com/pthm-cable/swirl/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup runs before exit.
func run(args []string) int {
	// CLI flags
	fs := flag.NewFlagSet("swirl", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := fs.Bool("log-stats", false, "Output stats via slog")
	statsWindow := fs.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := fs.String("snapshot-dir", "", "Directory for the final snapshot")
	resume := fs.String("resume", "", "Snapshot file to resume from")
	outputDir := fs.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := fs.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxSteps := fs.Int("max-steps", 0, "Stop after N steps (0 = unlimited)")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (empty = disabled)")
	trace := fs.Bool("trace", false, "Log per-particle diagnostics at debug level")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *trace {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	cfg := config.Cfg()
	if *trace {
		cfg.Telemetry.TraceParticles = true
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	var snapshot *telemetry.Snapshot
	if *resume != "" {
		var err error
		snapshot, err = telemetry.LoadSnapshot(*resume)
		if err != nil {
			slog.Error("failed to load snapshot", "error", err)
			return 1
		}
	}

	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(reg, cfg.Metrics.Namespace)
	if err != nil {
		slog.Error("failed to register metrics", "error", err)
		return 1
	}

	s, err := sim.New(cfg, sim.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		SnapshotDir:    *snapshotDir,
		Metrics:        metrics,
		Resume:         snapshot,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		srv := &http.Server{
			Addr:    *metricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			slog.Info("serving metrics", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"particles", s.Count(),
		"stats_window", *statsWindow,
		"max_steps", *maxSteps,
		"output_dir", *outputDir,
	)

	runErr := s.Run(ctx, *maxSteps)
	if errors.Is(runErr, context.Canceled) {
		slog.Info("interrupted", "step", s.StepCount())
	}

	if err := s.Close(); err != nil {
		slog.Error("failed to close outputs", "error", err)
		return 1
	}
	return 0
}
