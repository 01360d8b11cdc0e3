package sim

import (
	"fmt"

	"github.com/pthm-cable/sandfall/components"
	"github.com/pthm-cable/sandfall/spatial"
	"github.com/pthm-cable/sandfall/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick)
	perfStats := s.perf.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		s.logger.Info("window", "stats", stats)
		s.logger.Info("perf", "stats", perfStats)
	}

	if err := s.outputManager.WriteWindow(stats); err != nil {
		s.logger.Error("failed to write window stats", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		s.logger.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarkDetector.Check(stats) {
		if s.logStats {
			bm.LogBookmark(s.logger)
		}
		if err := s.outputManager.WriteBookmark(bm); err != nil {
			s.logger.Error("failed to write bookmark", "error", err)
		}
		if s.snapshotOnMark {
			s.saveSnapshot()
		}
	}
}

// saveSnapshot writes the current world into the output directory.
func (s *Simulation) saveSnapshot() {
	path, err := s.outputManager.WriteSnapshot(s.Snapshot())
	if err != nil {
		s.logger.Error("failed to save snapshot", "error", err)
		return
	}
	if path != "" {
		s.logger.Info("snapshot saved", "path", path, "tick", s.tick)
	}
}

// Snapshot captures every particle in the world.
func (s *Simulation) Snapshot() *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:      telemetry.SnapshotVersion,
		Seed:         s.seed,
		WorldSize:    s.grid.WorldSize(),
		ChunkSize:    s.grid.ChunkSize(),
		ActivityMode: s.grid.Mode().String(),
		Tick:         s.tick,
		Particles:    make([]telemetry.ParticleState, 0, s.grid.Len()),
	}

	for pos, e := range s.grid.All() {
		state := telemetry.ParticleState{
			X:        pos.X,
			Y:        pos.Y,
			Type:     s.registry.Name(s.ms.Particle.Get(e).TypeID),
			Velocity: s.ms.Velocity.Get(e).Current,
		}
		if s.ms.Momentum.Has(e) {
			off := s.ms.Momentum.Get(e).Offset
			state.MomentumX, state.MomentumY = off.X, off.Y
		}
		snap.Particles = append(snap.Particles, state)
	}
	return snap
}

// Restore replaces the world's contents with snap. The world dimensions must match.
func (s *Simulation) Restore(snap *telemetry.Snapshot) error {
	if snap.WorldSize != s.grid.WorldSize() || snap.ChunkSize != s.grid.ChunkSize() {
		return fmt.Errorf("snapshot world %d/%d does not match %d/%d",
			snap.WorldSize, snap.ChunkSize, s.grid.WorldSize(), s.grid.ChunkSize())
	}

	s.ClearAll()
	for _, p := range snap.Particles {
		e, err := s.Spawn(spatial.C(p.X, p.Y), p.Type)
		if err != nil {
			return fmt.Errorf("restoring particle at (%d, %d): %w", p.X, p.Y, err)
		}
		vel := s.ms.Velocity.Get(e)
		*vel = components.NewVelocity(max(p.Velocity, 1), vel.Max)
		if s.ms.Momentum.Has(e) {
			s.ms.Momentum.Get(e).Offset = spatial.C(p.MomentumX, p.MomentumY)
		}
	}
	s.tick = snap.Tick
	return nil
}

// WriteSummary saves v as summary.json in the output directory. It does nothing when file
// output is disabled.
func (s *Simulation) WriteSummary(v any) error {
	return s.outputManager.WriteSummary(v)
}
