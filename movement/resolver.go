package movement

import (
	"errors"
	"iter"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/sandfall/components"
	"github.com/pthm-cable/sandfall/spatial"
)

// Body is a view onto the caller-owned state of one particle for the duration of a tick.
// Pointer fields are written in place.
type Body struct {
	Position *spatial.Coord
	Velocity *components.Velocity
	Momentum *components.Momentum // nil when the type cannot gain momentum
	Density  uint32
	Type     uint16
	Priority *Priority
	Moved    *bool
}

// Bodies resolves a handle to its movable state. ok is false for handles that cannot move
// (walls, or particles excluded from this tick); the resolver treats them as obstructions.
type Bodies[H comparable] interface {
	Body(h H) (Body, bool)
}

// Stats summarises one resolve pass.
type Stats struct {
	Considered   int
	Moved        int
	Steps        int
	DensitySwaps int
	Obstructions int
	SwapErrors   int
	Deferred     int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Considered += o.Considered
	s.Moved += o.Moved
	s.Steps += o.Steps
	s.DensitySwaps += o.DensitySwaps
	s.Obstructions += o.Obstructions
	s.SwapErrors += o.SwapErrors
	s.Deferred += o.Deferred
}

// Resolver moves particles through a spatial map one tick at a time. It is not safe for
// concurrent use; parallel callers give each worker its own Resolver.
type Resolver[H comparable] struct {
	rng    *rand.Rand
	logger *slog.Logger

	// WakeChance is the probability that a particle outside the active area is considered anyway.
	WakeChance float64
	// Tick is attached to warnings.
	Tick uint64

	visited map[spatial.Coord]struct{}
	buf     []spatial.Coord
}

// NewResolver creates a resolver drawing randomness from rng. A nil logger uses slog.Default().
func NewResolver[H comparable](rng *rand.Rand, logger *slog.Logger) *Resolver[H] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver[H]{
		rng:     rng,
		logger:  logger,
		visited: make(map[spatial.Coord]struct{}),
		buf:     make([]spatial.Coord, 0, 8),
	}
}

// BeginTick forgets every cell claimed during the previous tick.
func (r *Resolver[H]) BeginTick(tick uint64) {
	r.Tick = tick
	clear(r.visited)
}

// Visited reports whether pos has been claimed this tick.
func (r *Resolver[H]) Visited(pos spatial.Coord) bool {
	_, ok := r.visited[pos]
	return ok
}

// Claimed iterates the cells claimed this tick.
func (r *Resolver[H]) Claimed() iter.Seq[spatial.Coord] {
	return func(yield func(spatial.Coord) bool) {
		for pos := range r.visited {
			if !yield(pos) {
				return
			}
		}
	}
}

// Claim marks pos as taken for the rest of the tick.
func (r *Resolver[H]) Claim(pos spatial.Coord) { r.visited[pos] = struct{}{} }

// CollectActive appends to dst the handles the map reports as active this tick, plus a random
// WakeChance sample of the rest, and returns the extended slice.
func (r *Resolver[H]) CollectActive(m *spatial.Map[H], dst []H) []H {
	for i, c := range m.Chunks() {
		if c.Empty() {
			continue
		}
		if r.WakeChance <= 0 {
			if !m.ChunkActive(i) {
				continue
			}
			if m.Mode() == spatial.Hibernation {
				for _, h := range c.All() {
					dst = append(dst, h)
				}
				continue
			}
			if rect, ok := c.ActiveRect(); ok {
				for _, h := range c.Within(rect) {
					dst = append(dst, h)
				}
			}
			continue
		}
		for pos, h := range c.All() {
			if m.IsActive(pos) || r.rng.Float64() < r.WakeChance {
				dst = append(dst, h)
			}
		}
	}
	return dst
}

// Resolve runs one movement pass over candidates. The candidate slice is shuffled in place.
func (r *Resolver[H]) Resolve(m *spatial.Map[H], bodies Bodies[H], candidates []H) Stats {
	var st Stats
	r.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	for _, h := range candidates {
		r.turn(m, bodies, h, nil, &st)
	}
	return st
}

// ResolveWithin is Resolve restricted to region: a particle whose reach this tick could leave
// region is not moved and is returned in deferred instead. Within region every read and write
// stays inside it, which lets callers resolve disjoint regions concurrently.
func (r *Resolver[H]) ResolveWithin(m *spatial.Map[H], bodies Bodies[H], candidates []H, region spatial.Rect, deferred []H) (Stats, []H) {
	var st Stats
	r.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	for _, h := range candidates {
		b, ok := bodies.Body(h)
		if !ok {
			continue
		}
		if !region.ContainsRect(spatial.RectAt(*b.Position).Inflate(reach(b))) {
			deferred = append(deferred, h)
			st.Deferred++
			continue
		}
		r.turn(m, bodies, h, &b, &st)
	}
	return st, deferred
}

// reach is the furthest a body could travel this tick along either axis.
func reach(b Body) int32 {
	if b.Priority.Empty() || b.Velocity.Current == 0 {
		return 0
	}
	var far int32
	for _, t := range b.Priority.Tiers {
		for _, off := range t {
			far = max(far, abs32(off.X), abs32(off.Y))
		}
	}
	return far * int32(b.Velocity.Current)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// obstruction memo indexed by the sign of an offset
type obstructed [9]bool

func signIndex(off spatial.Coord) int {
	s := off.Sign()
	return int((s.X+1)*3 + s.Y + 1)
}

// turn resolves a single particle. body may be pre-fetched by the caller.
func (r *Resolver[H]) turn(m *spatial.Map[H], bodies Bodies[H], h H, body *Body, st *Stats) {
	var b Body
	if body != nil {
		b = *body
	} else {
		var ok bool
		if b, ok = bodies.Body(h); !ok {
			return
		}
	}
	*b.Moved = false
	if b.Priority.Empty() || b.Velocity.Current == 0 || r.Visited(*b.Position) {
		return
	}
	st.Considered++

	var momentum *spatial.Coord
	if b.Momentum != nil {
		momentum = &b.Momentum.Offset
	}

	moved := false
	steps := int(b.Velocity.Current)

substeps:
	for range steps {
		var blocked obstructed

		for tier := range b.Priority.Tiers {
			r.buf = b.Priority.Candidates(r.rng, momentum, tier, r.buf[:0])
			for _, off := range r.buf {
				target := b.Position.Add(off)
				if r.Visited(target) || blocked[signIndex(off)] {
					continue
				}
				if !m.InBounds(target) {
					blocked[signIndex(off)] = true
					st.Obstructions++
					continue
				}

				occupant, occupied := m.Get(target)
				if !occupied {
					if !r.swap(m, *b.Position, target, st) {
						break substeps
					}
					*b.Position = target
					if b.Momentum != nil {
						b.Momentum.Offset = off
					}
					b.Velocity.Increment()
					moved = true
					st.Steps++
					continue substeps
				}

				other, movable := bodies.Body(occupant)
				if movable && other.Type == b.Type {
					continue
				}
				if movable && b.Density > other.Density {
					if !r.swap(m, target, *b.Position, st) {
						break substeps
					}
					*other.Position, *b.Position = *b.Position, target
					if b.Momentum != nil {
						b.Momentum.Reset()
					}
					b.Velocity.Decrement()
					moved = true
					st.Steps++
					st.DensitySwaps++
					break substeps
				}
				blocked[signIndex(off)] = true
				st.Obstructions++
			}
		}

		// nothing in any tier worked
		if b.Momentum != nil {
			b.Momentum.Reset()
		}
		b.Velocity.Decrement()
		break
	}

	if moved {
		r.Claim(*b.Position)
		st.Moved++
	}
	*b.Moved = moved
}

// swap performs a map swap and reports whether it succeeded. Failures mean the caller's
// positions have drifted from the map; they are logged and end the particle's turn.
func (r *Resolver[H]) swap(m *spatial.Map[H], a, b spatial.Coord, st *Stats) bool {
	err := m.Swap(a, b)
	if err == nil {
		return true
	}
	st.SwapErrors++
	kind := "unknown"
	var swapErr *spatial.SwapError
	if errors.As(err, &swapErr) {
		kind = swapErr.Kind.String()
	}
	r.logger.Warn("swap failed, skipping particle",
		"tick", r.Tick,
		"from", a.String(),
		"to", b.String(),
		"kind", kind,
		"error", err,
	)
	return false
}
