package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/sandfall/config"
	"github.com/pthm-cable/sandfall/sim"
	"github.com/pthm-cable/sandfall/telemetry"
)

// summary is written to summary.json when the run ends.
type summary struct {
	Seed         int64               `json:"seed"`
	ActivityMode string              `json:"activity_mode"`
	Ticks        uint64              `json:"ticks"`
	Particles    int                 `json:"particles"`
	Spawned      int                 `json:"spawned"`
	Elapsed      string              `json:"elapsed"`
	Perf         telemetry.PerfStats `json:"perf"`
	Last         telemetry.TickStats `json:"last_tick"`
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "Log format: json or text")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, snapshots and config")
	perTick := flag.Bool("per-tick", false, "Also write one CSV row per tick")
	snapshot := flag.Bool("snapshot", false, "Save a world snapshot whenever a bookmark fires")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, -1 = time-based)")
	maxTicks := flag.Int("max-ticks", -1, "Stop after N ticks (0 = unlimited, -1 = use config)")
	activity := flag.String("activity", "", "Activity mode override: dirty_rect or hibernation")
	parallel := flag.Bool("parallel", false, "Resolve chunks on a worker pool")

	flag.Parse()

	// Set up slog before anything that can fail
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		slog.Error("invalid log level", "level", *logLevel, "error", err)
		os.Exit(2)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Command-line overrides
	switch *seed {
	case 0:
	case -1:
		cfg.Simulation.Seed = time.Now().UnixNano()
	default:
		cfg.Simulation.Seed = *seed
	}
	if *maxTicks >= 0 {
		cfg.Simulation.MaxTicks = *maxTicks
	}
	if *activity != "" {
		cfg.Simulation.ActivityMode = *activity
	}
	if *parallel {
		cfg.Simulation.Parallel = true
	}
	if err := cfg.Refresh(); err != nil {
		slog.Error("invalid command-line override", "error", err)
		os.Exit(1)
	}

	s, err := sim.New(sim.Options{
		Config:             cfg,
		Logger:             logger,
		LogStats:           *logStats,
		OutputDir:          *outputDir,
		PerTickCSV:         *perTick,
		SnapshotOnBookmark: *snapshot,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	spawned, err := s.GenerateScene()
	if err != nil {
		s.Close()
		slog.Error("failed to generate scene", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"seed", cfg.Simulation.Seed,
		"world_size", cfg.World.Size,
		"chunk_size", cfg.World.ChunkSize,
		"activity_mode", cfg.Derived.ActivityMode.String(),
		"parallel", cfg.Simulation.Parallel,
		"max_ticks", cfg.Simulation.MaxTicks,
		"particles", spawned,
		"types", s.Registry().Names(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	for ctx.Err() == nil {
		s.Step()
		if cfg.Simulation.MaxTicks > 0 && int(s.Tick()) >= cfg.Simulation.MaxTicks {
			slog.Info("max ticks reached", "tick", s.Tick())
			break
		}
	}
	if ctx.Err() != nil {
		slog.Info("interrupted", "tick", s.Tick())
	}

	elapsed := time.Since(start)
	if err := writeSummary(s, cfg, spawned, elapsed); err != nil {
		slog.Error("failed to write summary", "error", err)
	}
	if err := s.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
		os.Exit(1)
	}
	slog.Info("done", "ticks", s.Tick(), "elapsed", elapsed.Round(time.Millisecond))
}

func writeSummary(s *sim.Simulation, cfg *config.Config, spawned int, elapsed time.Duration) error {
	return s.WriteSummary(summary{
		Seed:         s.Seed(),
		ActivityMode: cfg.Derived.ActivityMode.String(),
		Ticks:        s.Tick(),
		Particles:    s.Count(),
		Spawned:      spawned,
		Elapsed:      elapsed.Round(time.Millisecond).String(),
		Perf:         s.Perf(),
		Last:         s.LastStats(),
	})
}
