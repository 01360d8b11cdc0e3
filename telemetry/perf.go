package telemetry

import (
	"log/slog"
	"time"
)

// Phase is one timed section of a simulation step.
type Phase uint8

// Step phases in execution order.
const (
	PhaseActivity Phase = iota
	PhaseCandidates
	PhaseResolve
	PhaseTelemetry

	numPhases
	noPhase = numPhases
)

var phaseNames = [numPhases]string{"activity", "candidates", "resolve", "telemetry"}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return "none"
}

// perfSample is the timing of one tick.
type perfSample struct {
	tick       time.Duration
	phases     [numPhases]time.Duration
	considered int
}

// PerfCollector keeps the timings of the last windowSize ticks in a ring buffer. Phase
// durations live in fixed arrays so timing a tick never allocates.
type PerfCollector struct {
	samples []perfSample
	next    int
	filled  int

	current    perfSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{samples: make([]perfSample, windowSize), phase: noPhase}
}

// StartTick begins timing a new tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = perfSample{}
	p.phase = noPhase
}

// StartPhase ends the running phase, if any, and starts phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phase
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase < numPhases {
		p.current.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick records the tick. considered is the number of particles the resolver looked at,
// used for the per-particle cost.
func (p *PerfCollector) EndTick(considered int) {
	now := time.Now()
	p.closePhase(now)
	p.current.tick = now.Sub(p.tickStart)
	p.current.considered = considered

	p.samples[p.next] = p.current
	p.next = (p.next + 1) % len(p.samples)
	p.filled = min(p.filled+1, len(p.samples))
	p.phase = noPhase
}

// PerfStats summarises the collector's window.
type PerfStats struct {
	Ticks   int           `json:"ticks"`
	AvgTick time.Duration `json:"avg_tick"`
	MinTick time.Duration `json:"min_tick"`
	MaxTick time.Duration `json:"max_tick"`

	PhaseAvg [numPhases]time.Duration `json:"phase_avg"`
	PhasePct [numPhases]float64       `json:"phase_pct"` // share of the average tick

	TicksPerSecond float64 `json:"ticks_per_sec"`

	// Resolve time per considered particle; zero when nothing was considered.
	ResolveNsPerParticle float64 `json:"resolve_ns_per_particle"`
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Ticks: p.filled}
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	var considered int
	for i, sample := range p.samples[:p.filled] {
		total += sample.tick
		if i == 0 || sample.tick < s.MinTick {
			s.MinTick = sample.tick
		}
		s.MaxTick = max(s.MaxTick, sample.tick)
		for ph, d := range sample.phases {
			s.PhaseAvg[ph] += d
		}
		considered += sample.considered
	}

	n := time.Duration(p.filled)
	resolveTotal := s.PhaseAvg[PhaseResolve]
	s.AvgTick = total / n
	for ph := range s.PhaseAvg {
		s.PhaseAvg[ph] /= n
		if s.AvgTick > 0 {
			s.PhasePct[ph] = float64(s.PhaseAvg[ph]) / float64(s.AvgTick) * 100
		}
	}
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}
	if considered > 0 {
		s.ResolveNsPerParticle = float64(resolveTotal.Nanoseconds()) / float64(considered)
	}
	return s
}

// LogValue implements slog.LogValuer. Phases under 0.1% of the tick are omitted.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Float64("ns_per_particle", s.ResolveNsPerParticle),
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, slog.Float64(Phase(ph).String()+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd     uint64  `csv:"window_end"`
	AvgTickUS     int64   `csv:"avg_tick_us"`
	MinTickUS     int64   `csv:"min_tick_us"`
	MaxTickUS     int64   `csv:"max_tick_us"`
	TicksPerSec   float64 `csv:"ticks_per_sec"`
	NsPerParticle float64 `csv:"ns_per_particle"`
	ActivityPct   float64 `csv:"activity_pct"`
	CandidatesPct float64 `csv:"candidates_pct"`
	ResolvePct    float64 `csv:"resolve_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
}

// ToCSV flattens s for perf.csv.
func (s PerfStats) ToCSV(windowEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:     windowEnd,
		AvgTickUS:     s.AvgTick.Microseconds(),
		MinTickUS:     s.MinTick.Microseconds(),
		MaxTickUS:     s.MaxTick.Microseconds(),
		TicksPerSec:   s.TicksPerSecond,
		NsPerParticle: s.ResolveNsPerParticle,
		ActivityPct:   s.PhasePct[PhaseActivity],
		CandidatesPct: s.PhasePct[PhaseCandidates],
		ResolvePct:    s.PhasePct[PhaseResolve],
		TelemetryPct:  s.PhasePct[PhaseTelemetry],
	}
}
