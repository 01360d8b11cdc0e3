package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// TickStats is the record of a single simulation tick.
type TickStats struct {
	Tick         uint64 `csv:"tick"`
	Particles    int    `csv:"particles"`
	Candidates   int    `csv:"candidates"`
	Considered   int    `csv:"considered"`
	Moved        int    `csv:"moved"`
	Steps        int    `csv:"steps"`
	DensitySwaps int    `csv:"density_swaps"`
	Obstructions int    `csv:"obstructions"`
	SwapErrors   int    `csv:"swap_errors"`
	Deferred     int    `csv:"deferred"`
	ActiveChunks int    `csv:"active_chunks"`
	IdleChunks   int    `csv:"idle_chunks"`
	Woke         int    `csv:"woke"`  // chunks woken at the start of the tick
	Slept        int    `csv:"slept"` // chunks put to sleep at the start of the tick
}

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick uint64 `csv:"-"`
	WindowEndTick   uint64 `csv:"window_end"`
	Ticks           int    `csv:"ticks"`

	// Sampled at window end
	Particles    int `csv:"particles"`
	ActiveChunks int `csv:"active_chunks"`
	IdleChunks   int `csv:"idle_chunks"`

	// Totals over the window
	Considered   int `csv:"considered"`
	Moved        int `csv:"moved"`
	Steps        int `csv:"steps"`
	DensitySwaps int `csv:"density_swaps"`
	Obstructions int `csv:"obstructions"`
	SwapErrors   int `csv:"swap_errors"`
	Deferred     int `csv:"deferred"`
	Woke         int `csv:"woke"`
	Slept        int `csv:"slept"`

	// Per-tick distribution of moved particles
	MovedMean float64 `csv:"moved_mean"`
	MovedStd  float64 `csv:"moved_std"`
	MovedP10  float64 `csv:"moved_p10"`
	MovedP50  float64 `csv:"moved_p50"`
	MovedP90  float64 `csv:"moved_p90"`

	// Per-tick distribution of active chunks
	ActiveChunksMean float64 `csv:"active_chunks_mean"`
	ActiveChunksMax  float64 `csv:"active_chunks_max"`

	// Moved / Considered over the window
	MoveRate float64 `csv:"move_rate"`
}

// Percentile returns the empirical p-quantile of sorted, the smallest sample at or above a
// fraction p of the data. Returns 0 for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeStats calculates mean, sample standard deviation and percentiles of values.
func ComputeStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}
	if n == 1 {
		return values[0], 0, values[0], values[0], values[0]
	}

	mean, std = stat.MeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Int("particles", s.Particles),
		slog.Int("active_chunks", s.ActiveChunks),
		slog.Int("idle_chunks", s.IdleChunks),
		slog.Int("considered", s.Considered),
		slog.Int("moved", s.Moved),
		slog.Int("density_swaps", s.DensitySwaps),
		slog.Int("obstructions", s.Obstructions),
		slog.Int("swap_errors", s.SwapErrors),
		slog.Int("deferred", s.Deferred),
		slog.Int("woke", s.Woke),
		slog.Int("slept", s.Slept),
		slog.Float64("moved_mean", s.MovedMean),
		slog.Float64("moved_p90", s.MovedP90),
		slog.Float64("active_chunks_mean", s.ActiveChunksMean),
		slog.Float64("move_rate", s.MoveRate),
	)
}
