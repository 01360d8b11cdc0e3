package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseCandidates)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseResolve)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick(100)
	}

	stats := pc.Stats()
	if stats.Ticks != 5 {
		t.Errorf("Ticks = %d, want 5", stats.Ticks)
	}
	if stats.AvgTick <= 0 {
		t.Error("expected positive average tick duration")
	}
	if stats.PhaseAvg[PhaseCandidates] <= 0 || stats.PhaseAvg[PhaseResolve] <= 0 {
		t.Errorf("phases not tracked: %v", stats.PhaseAvg)
	}
	if stats.PhaseAvg[PhaseActivity] != 0 {
		t.Errorf("untimed phase has duration %v", stats.PhaseAvg[PhaseActivity])
	}
	if stats.MinTick > stats.AvgTick || stats.AvgTick > stats.MaxTick {
		t.Errorf("min/avg/max out of order: %v %v %v", stats.MinTick, stats.AvgTick, stats.MaxTick)
	}
	// 200µs of resolve over 100 particles is at least 2µs each.
	if stats.ResolveNsPerParticle < 2000 {
		t.Errorf("ns per particle = %v", stats.ResolveNsPerParticle)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseActivity)
		time.Sleep(10 * time.Microsecond)
		pc.EndTick(0)
	}

	stats := pc.Stats()
	if stats.Ticks != 5 {
		t.Errorf("Ticks = %d, want window size 5", stats.Ticks)
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
	if stats.ResolveNsPerParticle != 0 {
		t.Errorf("ns per particle = %v with nothing considered", stats.ResolveNsPerParticle)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseCandidates)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseResolve)
		time.Sleep(2 * time.Millisecond)
		pc.EndTick(1)
	}

	stats := pc.Stats()
	if stats.PhasePct[PhaseResolve] <= stats.PhasePct[PhaseCandidates] {
		t.Errorf("expected resolve (%v%%) > candidates (%v%%)",
			stats.PhasePct[PhaseResolve], stats.PhasePct[PhaseCandidates])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()
	if stats.Ticks != 0 || stats.AvgTick != 0 || stats.TicksPerSecond != 0 {
		t.Errorf("empty collector reported %+v", stats)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseResolve.String() != "resolve" || Phase(42).String() != "none" {
		t.Errorf("got %q and %q", PhaseResolve, Phase(42))
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	var s PerfStats
	s.AvgTick = 1500 * time.Microsecond
	s.PhasePct[PhaseResolve] = 80
	s.PhasePct[PhaseActivity] = 5
	s.ResolveNsPerParticle = 42

	row := s.ToCSV(600)
	if row.WindowEnd != 600 || row.AvgTickUS != 1500 || row.NsPerParticle != 42 {
		t.Errorf("row = %+v", row)
	}
	if row.ResolvePct != 80 || row.ActivityPct != 5 || row.CandidatesPct != 0 {
		t.Errorf("phase columns = %+v", row)
	}
}
