package sim

import (
	"log/slog"
	"math/rand"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sandfall/movement"
	"github.com/pthm-cable/sandfall/spatial"
)

// parallelThreshold is the minimum candidate count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 256

// bodySnapshot captures the movable state of every particle in the chunks being resolved.
// It is built single-threaded and only read by workers.
type bodySnapshot map[ecs.Entity]movement.Body

func (b bodySnapshot) Body(e ecs.Entity) (movement.Body, bool) {
	body, ok := b[e]
	return body, ok
}

// workerScratch holds per-worker state. Each worker owns a resolver so the rng, visited set
// and candidate buffer are never shared.
type workerScratch struct {
	resolver *movement.Resolver[ecs.Entity]
	deferred []ecs.Entity
	stats    movement.Stats
}

// workChunk is one spatial chunk for a worker to resolve.
type workChunk struct {
	chunk int
}

// parallelState holds resources for parallel movement resolution.
type parallelState struct {
	numWorkers int
	scratches  []workerScratch
	groups     [4][]int
	bodies     bodySnapshot
	byChunk    [][]ecs.Entity
	deferred   []ecs.Entity

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(workers int, grid *spatial.Map[ecs.Entity], rng *rand.Rand, logger *slog.Logger) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]workerScratch, workers)
	for i := range scratches {
		scratches[i].resolver = movement.NewResolver[ecs.Entity](rand.New(rand.NewSource(rng.Int63())), logger)
	}
	return &parallelState{
		numWorkers: workers,
		scratches:  scratches,
		groups:     grid.ParityGroups(),
		bodies:     make(bodySnapshot, 1024),
		byChunk:    make([][]ecs.Entity, grid.NumChunks()),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	// Room for every chunk of a group so workers never block on completion.
	p.doneChan = make(chan struct{}, len(p.byChunk))
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, resolving chunks until stopped.
func (p *parallelState) worker(s *Simulation, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case job, ok := <-p.workChan:
			if !ok {
				return
			}
			region := s.grid.Chunk(job.chunk).Region()
			var st movement.Stats
			st, scratch.deferred = scratch.resolver.ResolveWithin(s.grid, p.bodies, p.byChunk[job.chunk], region, scratch.deferred)
			scratch.stats.Add(st)
			p.doneChan <- struct{}{}
		}
	}
}

// resolveParallel resolves this tick's candidates on the worker pool. Chunks run one parity
// group at a time so no two concurrently resolved chunks share an edge, and each worker is
// bounded to its chunk. Particles whose reach crosses their chunk are resolved afterwards on
// the main resolver, which first takes over every cell the workers claimed.
func (s *Simulation) resolveParallel() movement.Stats {
	p := s.parallel
	if !p.running {
		p.startWorkers(s)
	}

	// Phase A: bucket candidates by chunk and snapshot bodies (single-threaded)
	for i := range p.byChunk {
		p.byChunk[i] = p.byChunk[i][:0]
	}
	clear(p.bodies)
	for _, e := range s.candidates {
		i := s.grid.ChunkIndexUnchecked(s.ms.Position.Get(e).Coord)
		p.byChunk[i] = append(p.byChunk[i], e)
	}
	for i, cands := range p.byChunk {
		if len(cands) == 0 {
			continue
		}
		for _, e := range s.grid.Chunk(i).All() {
			if b, ok := s.ms.Body(e); ok {
				p.bodies[e] = b
			}
		}
	}
	for i := range p.scratches {
		sc := &p.scratches[i]
		sc.resolver.BeginTick(s.tick)
		sc.deferred = sc.deferred[:0]
		sc.stats = movement.Stats{}
	}

	// Phase B: dispatch each parity group and wait for it before starting the next
	for _, group := range p.groups {
		dispatched := 0
		for _, i := range group {
			if len(p.byChunk[i]) == 0 {
				continue
			}
			p.workChan <- workChunk{chunk: i}
			dispatched++
		}
		for i := 0; i < dispatched; i++ {
			<-p.doneChan
		}
	}

	// Phase C: merge worker results and resolve the deferred particles (single-threaded)
	var st movement.Stats
	p.deferred = p.deferred[:0]
	for i := range p.scratches {
		sc := &p.scratches[i]
		st.Add(sc.stats)
		for pos := range sc.resolver.Claimed() {
			s.resolver.Claim(pos)
		}
		p.deferred = append(p.deferred, sc.deferred...)
	}
	st.Add(s.resolver.Resolve(s.grid, s.ms, p.deferred))
	return st
}
