// Package telemetry provides per-tick movement statistics, windowed aggregation, perf timing,
// bookmarks and world snapshots.
package telemetry

import "slices"

// Collector accumulates tick records within fixed windows and produces WindowStats.
type Collector struct {
	windowTicks     uint64
	windowStartTick uint64

	acc          WindowStats
	moved        []float64
	activeChunks []float64
	last         TickStats
}

// NewCollector creates a collector flushing every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowTicks:  uint64(windowTicks),
		moved:        make([]float64, 0, windowTicks),
		activeChunks: make([]float64, 0, windowTicks),
	}
}

// Record adds one tick to the current window.
func (c *Collector) Record(t TickStats) {
	c.acc.Ticks++
	c.acc.Considered += t.Considered
	c.acc.Moved += t.Moved
	c.acc.Steps += t.Steps
	c.acc.DensitySwaps += t.DensitySwaps
	c.acc.Obstructions += t.Obstructions
	c.acc.SwapErrors += t.SwapErrors
	c.acc.Deferred += t.Deferred
	c.acc.Woke += t.Woke
	c.acc.Slept += t.Slept
	c.moved = append(c.moved, float64(t.Moved))
	c.activeChunks = append(c.activeChunks, float64(t.ActiveChunks))
	c.last = t
}

// Last returns the most recently recorded tick.
func (c *Collector) Last() TickStats { return c.last }

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces the WindowStats for the ticks recorded since the last flush and starts a
// new window at currentTick.
func (c *Collector) Flush(currentTick uint64) WindowStats {
	s := c.acc
	s.WindowStartTick = c.windowStartTick
	s.WindowEndTick = currentTick
	s.Particles = c.last.Particles
	s.ActiveChunks = c.last.ActiveChunks
	s.IdleChunks = c.last.IdleChunks

	s.MovedMean, s.MovedStd, s.MovedP10, s.MovedP50, s.MovedP90 = ComputeStats(c.moved)
	s.ActiveChunksMean, _, _, _, _ = ComputeStats(c.activeChunks)
	if len(c.activeChunks) > 0 {
		s.ActiveChunksMax = slices.Max(c.activeChunks)
	}
	if s.Considered > 0 {
		s.MoveRate = float64(s.Moved) / float64(s.Considered)
	}

	c.windowStartTick = currentTick
	c.acc = WindowStats{}
	c.moved = c.moved[:0]
	c.activeChunks = c.activeChunks[:0]
	return s
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() uint64 { return c.windowTicks }
