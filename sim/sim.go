// Package sim wires the spatial index, the movement resolver and the particle ECS into a
// steppable falling-sand world.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sandfall/components"
	"github.com/pthm-cable/sandfall/config"
	"github.com/pthm-cable/sandfall/movement"
	"github.com/pthm-cable/sandfall/scene"
	"github.com/pthm-cable/sandfall/spatial"
	"github.com/pthm-cable/sandfall/systems"
	"github.com/pthm-cable/sandfall/telemetry"
)

// Options configures a Simulation.
type Options struct {
	Config *config.Config // nil uses config.Cfg()
	Logger *slog.Logger   // nil uses slog.Default()

	LogStats           bool   // log window stats and perf via the logger
	OutputDir          string // CSV output directory, empty disables file output
	PerTickCSV         bool   // also write one row per tick to ticks.csv
	SnapshotOnBookmark bool   // save a world snapshot whenever a bookmark fires

	StatsCallback func(telemetry.WindowStats)
}

// Simulation holds the complete world state.
type Simulation struct {
	cfg    *config.Config
	logger *slog.Logger
	rng    *rand.Rand
	seed   int64

	world    *ecs.World
	ms       *systems.Mappers
	registry *systems.Registry
	grid     *spatial.Map[ecs.Entity]
	resolver *movement.Resolver[ecs.Entity]

	// Awake movable particles, used as the candidate source in hibernation mode.
	awakeFilter *ecs.Filter1[movement.Priority]
	candidates  []ecs.Entity

	parallel *parallelState

	tick uint64
	last telemetry.TickStats

	// Telemetry
	perf             *telemetry.PerfCollector
	collector        *telemetry.Collector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	perTick          bool
	snapshotOnMark   bool
	statsCallback    func(telemetry.WindowStats)
}

// New creates an empty world from opts.
func New(opts Options) (*Simulation, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := systems.NewRegistry(cfg.Particles)
	if err != nil {
		return nil, fmt.Errorf("building particle registry: %w", err)
	}
	grid, err := spatial.New[ecs.Entity](cfg.World.Size, cfg.World.ChunkSize,
		spatial.WithActivityMode(cfg.Derived.ActivityMode))
	if err != nil {
		return nil, fmt.Errorf("building spatial map: %w", err)
	}
	om, err := telemetry.NewOutputManager(opts.OutputDir, opts.PerTickCSV)
	if err != nil {
		return nil, err
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, err
	}

	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))
	resolver := movement.NewResolver[ecs.Entity](rng, logger)
	resolver.WakeChance = cfg.Simulation.RandomWakeChance

	s := &Simulation{
		cfg:              cfg,
		logger:           logger,
		rng:              rng,
		seed:             cfg.Simulation.Seed,
		world:            world,
		ms:               systems.NewMappers(world),
		registry:         registry,
		grid:             grid,
		resolver:         resolver,
		awakeFilter:      ecs.NewFilter1[movement.Priority](world).Without(ecs.C[components.Hibernating]()),
		perf:             telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		outputManager:    om,
		logStats:         opts.LogStats,
		perTick:          opts.PerTickCSV,
		snapshotOnMark:   opts.SnapshotOnBookmark,
		statsCallback:    opts.StatsCallback,
	}
	grid.SetRemoveHook(s.onRemove)

	if cfg.Simulation.Parallel {
		s.parallel = newParallelState(cfg.Simulation.Workers, grid, rng, logger)
	}
	return s, nil
}

// onRemove destroys the entity of every handle the map lets go of.
func (s *Simulation) onRemove(_ spatial.Coord, e ecs.Entity) {
	if s.world.Alive(e) {
		s.world.RemoveEntity(e)
	}
}

// Close stops the worker pool and flushes output files.
func (s *Simulation) Close() error {
	if s.parallel != nil {
		s.parallel.stopWorkers()
	}
	return s.outputManager.Close()
}

// Step runs a single tick: close the previous tick's activity, collect candidates, resolve
// movement, then record telemetry.
func (s *Simulation) Step() telemetry.TickStats {
	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseActivity)
	transitions := s.grid.ResetActivity()
	var woke, slept int
	for _, tr := range transitions {
		if tr.Woke {
			woke++
		} else {
			slept++
		}
	}
	if len(transitions) > 0 {
		systems.ApplyTransitions(s.ms, s.grid, transitions)
	}
	s.tick++

	s.perf.StartPhase(telemetry.PhaseCandidates)
	s.resolver.BeginTick(s.tick)
	s.candidates = s.collectCandidates(s.candidates[:0])

	s.perf.StartPhase(telemetry.PhaseResolve)
	var st movement.Stats
	if s.parallel != nil && len(s.candidates) >= parallelThreshold {
		st = s.resolveParallel()
	} else {
		st = s.resolver.Resolve(s.grid, s.ms, s.candidates)
	}

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	active, idle := s.grid.ActivityCounts()
	s.last = telemetry.TickStats{
		Tick:         s.tick,
		Particles:    s.grid.Len(),
		Candidates:   len(s.candidates),
		Considered:   st.Considered,
		Moved:        st.Moved,
		Steps:        st.Steps,
		DensitySwaps: st.DensitySwaps,
		Obstructions: st.Obstructions,
		SwapErrors:   st.SwapErrors,
		Deferred:     st.Deferred,
		ActiveChunks: active,
		IdleChunks:   idle,
		Woke:         woke,
		Slept:        slept,
	}
	s.collector.Record(s.last)
	if s.perTick {
		if err := s.outputManager.WriteTick(s.last); err != nil {
			s.logger.Error("failed to write tick", "error", err)
		}
	}
	s.flushTelemetry()

	s.perf.EndTick(st.Considered)
	return s.last
}

// collectCandidates gathers this tick's particles. Hibernation mode reads the awake set
// straight from the ECS; dirty-rect mode asks the map, including the random wake sample.
func (s *Simulation) collectCandidates(dst []ecs.Entity) []ecs.Entity {
	if s.grid.Mode() == spatial.DirtyRect {
		return s.resolver.CollectActive(s.grid, dst)
	}
	query := s.awakeFilter.Query()
	for query.Next() {
		dst = append(dst, query.Entity())
	}
	return dst
}

// Spawn creates a particle of the named type at pos. It fails with ErrOccupied if pos already
// holds a particle and with spatial.ErrOutOfBounds outside the world.
func (s *Simulation) Spawn(pos spatial.Coord, typeName string) (ecs.Entity, error) {
	pt, ok := s.registry.Lookup(typeName)
	if !ok {
		return ecs.Entity{}, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	if !s.grid.InBounds(pos) {
		return ecs.Entity{}, fmt.Errorf("spawn %s at %s: %w", typeName, pos, spatial.ErrOutOfBounds)
	}
	if _, occupied := s.grid.Get(pos); occupied {
		return ecs.Entity{}, fmt.Errorf("spawn %s at %s: %w", typeName, pos, ErrOccupied)
	}

	e := s.ms.NewParticle(pt, pos)
	if _, _, err := s.grid.InsertNoOverwrite(pos, e); err != nil {
		s.world.RemoveEntity(e)
		return ecs.Entity{}, err
	}
	return e, nil
}

// Replace puts a fresh particle of the named type at pos, destroying any particle there.
func (s *Simulation) Replace(pos spatial.Coord, typeName string) (ecs.Entity, error) {
	pt, ok := s.registry.Lookup(typeName)
	if !ok {
		return ecs.Entity{}, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	if !s.grid.InBounds(pos) {
		return ecs.Entity{}, fmt.Errorf("replace %s at %s: %w", typeName, pos, spatial.ErrOutOfBounds)
	}
	e := s.ms.NewParticle(pt, pos)
	if _, _, err := s.grid.InsertOverwrite(pos, e); err != nil {
		s.world.RemoveEntity(e)
		return ecs.Entity{}, err
	}
	return e, nil
}

// Despawn removes the particle at pos, reporting whether there was one.
func (s *Simulation) Despawn(pos spatial.Coord) bool {
	_, ok := s.grid.Remove(pos)
	return ok
}

// Transform converts the particle at pos to the named type in place. The entity keeps its
// identity and position; its material markers and movement priority follow the new type.
func (s *Simulation) Transform(pos spatial.Coord, typeName string) error {
	pt, ok := s.registry.Lookup(typeName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	e, ok := s.grid.Get(pos)
	if !ok {
		return fmt.Errorf("transform at %s: %w", pos, ErrEmptyCell)
	}
	systems.Retype(s.ms, e, pt)
	// Re-inserting the same handle marks the cell changed without firing the remove hook.
	_, _, err := s.grid.InsertOverwrite(pos, e)
	return err
}

// ClearType removes every particle of the named type and returns how many were removed.
func (s *Simulation) ClearType(typeName string) (int, error) {
	pt, ok := s.registry.Lookup(typeName)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	n := s.grid.ClearWhere(func(_ spatial.Coord, e ecs.Entity) bool {
		return s.ms.Particle.Get(e).TypeID == pt.ID
	})
	return n, nil
}

// ClearAll removes every particle.
func (s *Simulation) ClearAll() {
	s.grid.Clear()
}

// Populate spawns placements, skipping cells that are already taken. It returns the number
// of particles spawned.
func (s *Simulation) Populate(placements []scene.Placement) (int, error) {
	n := 0
	for _, p := range placements {
		if _, err := s.Spawn(p.Pos, p.Type); err != nil {
			if errors.Is(err, ErrOccupied) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// GenerateScene fills the world with the configured starting layout.
func (s *Simulation) GenerateScene() (int, error) {
	return s.Populate(scene.Generate(s.cfg, s.seed))
}

// At returns the particle at pos.
func (s *Simulation) At(pos spatial.Coord) (ecs.Entity, bool) { return s.grid.Get(pos) }

// TypeAt returns the type name of the particle at pos.
func (s *Simulation) TypeAt(pos spatial.Coord) (string, bool) {
	e, ok := s.grid.Get(pos)
	if !ok {
		return "", false
	}
	return s.registry.Name(s.ms.Particle.Get(e).TypeID), true
}

// CountType returns the number of particles of the named type.
func (s *Simulation) CountType(typeName string) int {
	pt, ok := s.registry.Lookup(typeName)
	if !ok {
		return 0
	}
	n := 0
	for _, e := range s.grid.All() {
		if s.ms.Particle.Get(e).TypeID == pt.ID {
			n++
		}
	}
	return n
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() uint64 { return s.tick }

// Count returns the number of particles in the world.
func (s *Simulation) Count() int { return s.grid.Len() }

// Seed returns the seed the simulation was created with.
func (s *Simulation) Seed() int64 { return s.seed }

// LastStats returns the record of the most recent tick.
func (s *Simulation) LastStats() telemetry.TickStats { return s.last }

// Map exposes the spatial index.
func (s *Simulation) Map() *spatial.Map[ecs.Entity] { return s.grid }

// Mappers exposes the particle component accessors.
func (s *Simulation) Mappers() *systems.Mappers { return s.ms }

// Registry exposes the particle types.
func (s *Simulation) Registry() *systems.Registry { return s.registry }

// Perf returns the rolling performance statistics.
func (s *Simulation) Perf() telemetry.PerfStats { return s.perf.Stats() }
