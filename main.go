package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/alloy/config"
	"github.com/pthm-cable/alloy/solver"
	"github.com/pthm-cable/alloy/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, results and config snapshot")
	logStats := flag.Bool("log-stats", false, "Log every iteration (overrides telemetry.log_interval)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config, -1 = time-based)")
	iterations := flag.Int("iterations", 0, "Iteration budget (0 = config)")
	workers := flag.Int("workers", -1, "Worker goroutines (-1 = config, 0 = GOMAXPROCS, 1 = sequential)")
	resolution := flag.Int("resolution", 0, "Field cells per axis (0 = config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	switch {
	case *seed == -1:
		cfg.Solver.Seed = time.Now().UnixNano()
	case *seed != 0:
		cfg.Solver.Seed = *seed
	}
	if *iterations > 0 {
		cfg.Solver.Iterations = *iterations
	}
	if *workers >= 0 {
		cfg.Solver.Workers = *workers
	}
	if *resolution > 0 {
		cfg.Field.Resolution = *resolution
	}
	if *logStats {
		cfg.Telemetry.LogInterval = 1
	}

	problem, opts, err := solver.FromConfig(cfg)
	if err != nil {
		slog.Error("invalid scenario", "error", err)
		os.Exit(1)
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	defer om.Close()

	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	opts.Output = om
	opts.Perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)

	s, err := solver.New(problem, opts)
	if err != nil {
		slog.Error("failed to create solver", "error", err)
		os.Exit(1)
	}

	res := s.Run()

	if res.Field != nil {
		summary := res.Field.Summary()
		slog.Info("field",
			"resolution", res.Field.Resolution,
			"occupied_cells", summary.OccupiedCells,
			"max_density", summary.MaxDensity,
			"material_share", summary.MaterialShare,
		)
	}

	if err := om.WriteParticles(res.Pool, problem.Materials); err != nil {
		slog.Error("failed to write particles", "error", err)
	}
	if err := om.WriteField(res.Field, problem.Materials.Names()); err != nil {
		slog.Error("failed to write field", "error", err)
	}
	if om != nil {
		slog.Info("output written", "dir", om.Dir())
	}
}
