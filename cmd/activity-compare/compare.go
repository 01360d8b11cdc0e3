package main

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pthm-cable/sandfall/config"
	"github.com/pthm-cable/sandfall/sim"
	"github.com/pthm-cable/sandfall/telemetry"
)

var modes = [2]string{"dirty_rect", "hibernation"}

// modeRun holds the results of one activity mode on one scene.
type modeRun struct {
	windows   []telemetry.WindowStats // collected via StatsCallback each window
	particles int
	elapsed   time.Duration
}

// comparison pairs the two modes on the same scene.
type comparison struct {
	seed int64
	runs [2]modeRun // indexed like modes
}

// comparisonRow is one window of both runs side by side.
type comparisonRow struct {
	Seed                    int64   `csv:"seed"`
	WindowEnd               uint64  `csv:"window_end"`
	DirtyRectConsidered     int     `csv:"dirty_rect_considered"`
	HibernationConsidered   int     `csv:"hibernation_considered"`
	DirtyRectMoved          int     `csv:"dirty_rect_moved"`
	HibernationMoved        int     `csv:"hibernation_moved"`
	DirtyRectActiveChunks   float64 `csv:"dirty_rect_active_chunks"`
	HibernationActiveChunks float64 `csv:"hibernation_active_chunks"`
}

// summaryRow totals a whole comparison.
type summaryRow struct {
	Seed                  int64   `csv:"seed"`
	Particles             int     `csv:"particles"`
	DirtyRectConsidered   int     `csv:"dirty_rect_considered"`
	HibernationConsidered int     `csv:"hibernation_considered"`
	ConsideredRatio       float64 `csv:"considered_ratio"` // hibernation / dirty_rect
	DirtyRectMoved        int     `csv:"dirty_rect_moved"`
	HibernationMoved      int     `csv:"hibernation_moved"`
	DirtyRectMs           int64   `csv:"dirty_rect_ms"`
	HibernationMs         int64   `csv:"hibernation_ms"`
}

// compare runs both modes concurrently on the scene generated from seed.
func compare(base *config.Config, seed int64, ticks int) (*comparison, error) {
	cmp := &comparison{seed: seed}
	var errs [2]error
	var wg sync.WaitGroup

	for i, mode := range modes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmp.runs[i], errs[i] = runMode(base, seed, mode, ticks)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return cmp, nil
}

// runMode simulates ticks ticks of one mode. base is copied, never modified.
func runMode(base *config.Config, seed int64, mode string, ticks int) (modeRun, error) {
	cfg := *base
	cfg.Simulation.Seed = seed
	cfg.Simulation.ActivityMode = mode
	if err := cfg.Refresh(); err != nil {
		return modeRun{}, err
	}

	var run modeRun
	s, err := sim.New(sim.Options{
		Config:        &cfg,
		Logger:        slog.New(slog.DiscardHandler),
		StatsCallback: func(w telemetry.WindowStats) { run.windows = append(run.windows, w) },
	})
	if err != nil {
		return modeRun{}, err
	}
	defer s.Close()

	if _, err := s.GenerateScene(); err != nil {
		return modeRun{}, err
	}
	start := time.Now()
	for s.Tick() < uint64(ticks) {
		s.Step()
	}
	run.elapsed = time.Since(start)
	run.particles = s.Count()
	return run, nil
}

func (c *comparison) rows() []comparisonRow {
	dirty, hib := c.runs[0].windows, c.runs[1].windows
	n := min(len(dirty), len(hib))
	rows := make([]comparisonRow, n)
	for i := range n {
		rows[i] = comparisonRow{
			Seed:                    c.seed,
			WindowEnd:               dirty[i].WindowEndTick,
			DirtyRectConsidered:     dirty[i].Considered,
			HibernationConsidered:   hib[i].Considered,
			DirtyRectMoved:          dirty[i].Moved,
			HibernationMoved:        hib[i].Moved,
			DirtyRectActiveChunks:   dirty[i].ActiveChunksMean,
			HibernationActiveChunks: hib[i].ActiveChunksMean,
		}
	}
	return rows
}

func (c *comparison) summary() summaryRow {
	s := summaryRow{
		Seed:          c.seed,
		Particles:     c.runs[0].particles,
		DirtyRectMs:   c.runs[0].elapsed.Milliseconds(),
		HibernationMs: c.runs[1].elapsed.Milliseconds(),
	}
	for _, w := range c.runs[0].windows {
		s.DirtyRectConsidered += w.Considered
		s.DirtyRectMoved += w.Moved
	}
	for _, w := range c.runs[1].windows {
		s.HibernationConsidered += w.Considered
		s.HibernationMoved += w.Moved
	}
	if s.DirtyRectConsidered > 0 {
		s.ConsideredRatio = float64(s.HibernationConsidered) / float64(s.DirtyRectConsidered)
	}
	return s
}
