package spatial

import (
	"iter"
	"math/bits"
)

// Option configures a Map at construction.
type Option func(*options)

type options struct {
	mode ActivityMode
}

// WithActivityMode selects the activity scheme reported by IsActive and ResetActivity.
func WithActivityMode(mode ActivityMode) Option {
	return func(o *options) { o.mode = mode }
}

// Map maps grid positions to particle handles. The world is split into a row-major array of
// square chunks; both the world and chunk sizes are powers of two so a position resolves to its
// chunk with shifts only.
type Map[H comparable] struct {
	worldSize     int32
	chunkSize     int32
	chunksPerSide int
	offset        int32
	chunkShift    uint
	mapShift      uint

	chunks []Chunk[H]
	mode   ActivityMode

	onRemove func(Coord, H)

	// scratch for ResetActivity
	pending []neighborUpdate
}

// New creates a Map covering worldSize x worldSize cells centred on the origin:
// x in [-worldSize/2, worldSize/2) and y in (-worldSize/2, worldSize/2].
func New[H comparable](worldSize, chunkSize int, opts ...Option) (*Map[H], error) {
	if !isPowerOfTwo(worldSize) {
		return nil, &ConfigError{Field: "world_size", Value: worldSize, Err: ErrNotPowerOfTwo}
	}
	if !isPowerOfTwo(chunkSize) {
		return nil, &ConfigError{Field: "chunk_size", Value: chunkSize, Err: ErrNotPowerOfTwo}
	}
	if chunkSize > worldSize {
		return nil, &ConfigError{Field: "chunk_size", Value: chunkSize, Err: ErrChunkLargerThanWorld}
	}
	if worldSize > 1<<30 {
		return nil, &ConfigError{Field: "world_size", Value: worldSize, Err: ErrOutOfBounds}
	}

	o := options{mode: DirtyRect}
	for _, opt := range opts {
		opt(&o)
	}

	chunkShift := uint(bits.TrailingZeros(uint(chunkSize)))
	perSide := worldSize / chunkSize
	mapShift := uint(bits.TrailingZeros(uint(perSide)))
	offset := int32(worldSize / 2)
	cs := int32(chunkSize)

	m := &Map[H]{
		worldSize:     int32(worldSize),
		chunkSize:     cs,
		chunksPerSide: perSide,
		offset:        offset,
		chunkShift:    chunkShift,
		mapShift:      mapShift,
		chunks:        make([]Chunk[H], perSide*perSide),
		mode:          o.mode,
	}
	for i := range m.chunks {
		row := i >> mapShift
		col := i & (perSide - 1)
		minX := int32(col)*cs - offset
		maxY := offset - int32(row)*cs
		region := Rect{
			Min: Coord{minX, maxY - (cs - 1)},
			Max: Coord{minX + (cs - 1), maxY},
		}
		m.chunks[i].init(i, row, col, region, chunkShift)
	}
	return m, nil
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

// WorldSize returns the side length of the world in cells.
func (m *Map[H]) WorldSize() int { return int(m.worldSize) }

// ChunkSize returns the side length of a chunk in cells.
func (m *Map[H]) ChunkSize() int { return int(m.chunkSize) }

// ChunksPerSide returns the number of chunks along each axis.
func (m *Map[H]) ChunksPerSide() int { return m.chunksPerSide }

// NumChunks returns the total number of chunks.
func (m *Map[H]) NumChunks() int { return len(m.chunks) }

// Mode returns the configured activity scheme.
func (m *Map[H]) Mode() ActivityMode { return m.mode }

// Bounds returns the rect of all addressable cells.
func (m *Map[H]) Bounds() Rect {
	return Rect{
		Min: Coord{-m.offset, -m.offset + 1},
		Max: Coord{m.offset - 1, m.offset},
	}
}

// SetRemoveHook installs fn to be called whenever a handle permanently leaves the map through
// Remove, InsertOverwrite displacement, Clear or ClearWhere. Swaps never fire it.
func (m *Map[H]) SetRemoveHook(fn func(Coord, H)) { m.onRemove = fn }

// InBounds reports whether pos is addressable.
func (m *Map[H]) InBounds(pos Coord) bool {
	return uint32(pos.X+m.offset) < uint32(m.worldSize) && uint32(m.offset-pos.Y) < uint32(m.worldSize)
}

// ChunkIndex returns the index of the chunk owning pos. ok is false when pos is out of bounds.
func (m *Map[H]) ChunkIndex(pos Coord) (int, bool) {
	cx := uint32(pos.X + m.offset)
	cy := uint32(m.offset - pos.Y)
	if cx >= uint32(m.worldSize) || cy >= uint32(m.worldSize) {
		return 0, false
	}
	return int(cy>>m.chunkShift)<<m.mapShift | int(cx>>m.chunkShift), true
}

// ChunkIndexUnchecked is ChunkIndex without the bounds check. The caller must have proven that
// pos is in bounds; otherwise the result is meaningless and may index out of range.
func (m *Map[H]) ChunkIndexUnchecked(pos Coord) int {
	cx := uint32(pos.X + m.offset)
	cy := uint32(m.offset - pos.Y)
	return int(cy>>m.chunkShift)<<m.mapShift | int(cx>>m.chunkShift)
}

// Chunk returns the chunk at index i.
func (m *Map[H]) Chunk(i int) *Chunk[H] { return &m.chunks[i] }

// ChunkAt returns the chunk owning pos.
func (m *Map[H]) ChunkAt(pos Coord) (*Chunk[H], bool) {
	i, ok := m.ChunkIndex(pos)
	if !ok {
		return nil, false
	}
	return &m.chunks[i], true
}

// Chunks iterates every chunk with its index.
func (m *Map[H]) Chunks() iter.Seq2[int, *Chunk[H]] {
	return func(yield func(int, *Chunk[H]) bool) {
		for i := range m.chunks {
			if !yield(i, &m.chunks[i]) {
				return
			}
		}
	}
}

// Len returns the number of occupied cells.
func (m *Map[H]) Len() int {
	n := 0
	for i := range m.chunks {
		n += m.chunks[i].count
	}
	return n
}

// Get returns the handle at pos.
func (m *Map[H]) Get(pos Coord) (H, bool) {
	i, ok := m.ChunkIndex(pos)
	if !ok {
		var zero H
		return zero, false
	}
	return m.chunks[i].get(pos)
}

// Remove empties pos and returns its previous occupant.
func (m *Map[H]) Remove(pos Coord) (H, bool) {
	i, ok := m.ChunkIndex(pos)
	if !ok {
		var zero H
		return zero, false
	}
	c := &m.chunks[i]
	c.touch(pos)
	h, ok := c.take(pos)
	if ok && m.onRemove != nil {
		m.onRemove(pos, h)
	}
	return h, ok
}

// InsertNoOverwrite places h at pos only if pos is empty. When pos is occupied the existing
// occupant is returned with inserted=false and the map is left unchanged.
func (m *Map[H]) InsertNoOverwrite(pos Coord, h H) (occupant H, inserted bool, err error) {
	i, ok := m.ChunkIndex(pos)
	if !ok {
		return occupant, false, outOfBounds(pos)
	}
	c := &m.chunks[i]
	if existing, ok := c.get(pos); ok {
		return existing, false, nil
	}
	c.set(pos, h)
	c.touch(pos)
	return h, true, nil
}

// InsertOverwrite places h at pos unconditionally and returns whatever occupied it before.
// A displaced handle is reported to the remove hook.
func (m *Map[H]) InsertOverwrite(pos Coord, h H) (old H, replaced bool, err error) {
	i, ok := m.ChunkIndex(pos)
	if !ok {
		return old, false, outOfBounds(pos)
	}
	c := &m.chunks[i]
	c.touch(pos)
	old, replaced = c.set(pos, h)
	if replaced && old != h && m.onRemove != nil {
		m.onRemove(pos, old)
	}
	return old, replaced, nil
}

// Swap moves the handle at a to b. If b is occupied the two handles trade cells. Both endpoints
// are recorded in their chunks' dirty rects. Swapping an occupied cell with itself only touches
// the dirty rect.
func (m *Map[H]) Swap(a, b Coord) error {
	ia, ok := m.ChunkIndex(a)
	if !ok {
		return &SwapError{Kind: PositionOutOfBounds, Position: a}
	}
	ib, ok := m.ChunkIndex(b)
	if !ok {
		return &SwapError{Kind: PositionOutOfBounds, Position: b}
	}

	ca := &m.chunks[ia]
	ha, ok := ca.get(a)
	if !ok {
		return &SwapError{Kind: PositionNotFound, Position: a}
	}
	if a == b {
		ca.touch(a)
		return nil
	}

	cb := ca
	if ib != ia {
		cb = &m.chunks[ib]
	}
	hb, occupied := cb.get(b)

	ca.touch(a)
	cb.touch(b)
	if occupied {
		ca.set(a, hb)
	} else {
		ca.take(a)
	}
	cb.set(b, ha)

	m.wakeEdgeNeighbors(a, ia)
	m.wakeEdgeNeighbors(b, ib)
	return nil
}

// Clear removes every handle, reporting each to the remove hook.
func (m *Map[H]) Clear() {
	for i := range m.chunks {
		c := &m.chunks[i]
		if m.onRemove != nil {
			for pos, h := range c.All() {
				m.onRemove(pos, h)
			}
		}
		c.clear()
	}
}

// ClearWhere removes every handle matching pred and returns how many were removed.
func (m *Map[H]) ClearWhere(pred func(Coord, H) bool) int {
	var victims []Coord
	for i := range m.chunks {
		for pos, h := range m.chunks[i].All() {
			if pred(pos, h) {
				victims = append(victims, pos)
			}
		}
	}
	for _, pos := range victims {
		m.Remove(pos)
	}
	return len(victims)
}

// All iterates every occupied cell in chunk order.
func (m *Map[H]) All() iter.Seq2[Coord, H] {
	return func(yield func(Coord, H) bool) {
		for i := range m.chunks {
			for pos, h := range m.chunks[i].All() {
				if !yield(pos, h) {
					return
				}
			}
		}
	}
}

// ParityGroups partitions chunk indices into four groups by (row%2, col%2). No two chunks in
// the same group share an edge or a corner.
func (m *Map[H]) ParityGroups() [4][]int {
	var groups [4][]int
	for i := range m.chunks {
		c := &m.chunks[i]
		g := (c.row%2)*2 + c.col%2
		groups[g] = append(groups[g], i)
	}
	return groups
}
