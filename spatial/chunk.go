package spatial

import (
	"iter"
	"sync/atomic"
)

// Chunk is a square, power-of-two sized region of the map. Cells are stored densely and
// addressed by their offset from the region's top-left corner.
type Chunk[H comparable] struct {
	index    int
	row, col int
	region   Rect
	shift    uint

	cells    []H
	occupied []bool
	count    int

	// dirty accumulates every cell touched during the current tick; active is what the
	// resolver reads during the current tick (last tick's dirty rect after ResetActivity).
	dirty     Rect
	hasDirty  bool
	active    Rect
	hasActive bool

	// shouldProcessNext may be set from a worker resolving a neighbouring chunk.
	shouldProcessNext atomic.Bool
	hibernating       bool
}

func (c *Chunk[H]) init(index, row, col int, region Rect, shift uint) {
	n := 1 << (2 * shift)
	c.index = index
	c.row, c.col = row, col
	c.region = region
	c.shift = shift
	c.cells = make([]H, n)
	c.occupied = make([]bool, n)
}

// Index returns the chunk's position in the map's row-major chunk array.
func (c *Chunk[H]) Index() int { return c.index }

// Row returns the chunk row (0 is the top row).
func (c *Chunk[H]) Row() int { return c.row }

// Col returns the chunk column (0 is the leftmost column).
func (c *Chunk[H]) Col() int { return c.col }

// Region returns the cells covered by the chunk.
func (c *Chunk[H]) Region() Rect { return c.region }

// Len returns the number of occupied cells.
func (c *Chunk[H]) Len() int { return c.count }

// Empty reports whether the chunk holds no particles.
func (c *Chunk[H]) Empty() bool { return c.count == 0 }

// DirtyRect returns the cells touched so far this tick.
func (c *Chunk[H]) DirtyRect() (Rect, bool) { return c.dirty, c.hasDirty }

// ActiveRect returns the cells the resolver should consider this tick.
func (c *Chunk[H]) ActiveRect() (Rect, bool) { return c.active, c.hasActive }

// Hibernating reports whether the chunk is asleep under the hibernation scheme.
func (c *Chunk[H]) Hibernating() bool { return c.hibernating }

// ShouldProcessNext reports whether the chunk was touched this tick under the hibernation scheme.
func (c *Chunk[H]) ShouldProcessNext() bool { return c.shouldProcessNext.Load() }

// local converts a position inside the region to a cell offset.
func (c *Chunk[H]) local(pos Coord) int {
	lx := int(pos.X - c.region.Min.X)
	ly := int(c.region.Max.Y - pos.Y)
	return ly<<c.shift | lx
}

func (c *Chunk[H]) position(i int) Coord {
	mask := 1<<c.shift - 1
	return Coord{
		X: c.region.Min.X + int32(i&mask),
		Y: c.region.Max.Y - int32(i>>c.shift),
	}
}

// Get returns the handle at pos, if pos lies in the chunk and is occupied.
func (c *Chunk[H]) Get(pos Coord) (H, bool) {
	if !c.region.Contains(pos) {
		var zero H
		return zero, false
	}
	return c.get(pos)
}

func (c *Chunk[H]) get(pos Coord) (H, bool) {
	i := c.local(pos)
	return c.cells[i], c.occupied[i]
}

func (c *Chunk[H]) set(pos Coord, h H) (old H, replaced bool) {
	i := c.local(pos)
	old, replaced = c.cells[i], c.occupied[i]
	c.cells[i] = h
	if !replaced {
		c.occupied[i] = true
		c.count++
	}
	return old, replaced
}

func (c *Chunk[H]) take(pos Coord) (H, bool) {
	i := c.local(pos)
	h, ok := c.cells[i], c.occupied[i]
	if ok {
		var zero H
		c.cells[i] = zero
		c.occupied[i] = false
		c.count--
	}
	return h, ok
}

// touch records a mutation at pos for both activity schemes.
func (c *Chunk[H]) touch(pos Coord) {
	if c.hasDirty {
		c.dirty = c.dirty.UnionPoint(pos)
	} else {
		c.dirty = RectAt(pos)
		c.hasDirty = true
	}
	c.shouldProcessNext.Store(true)
}

// clear empties the chunk and marks the whole region dirty so particles resting on the
// removed ones get another look.
func (c *Chunk[H]) clear() {
	if c.count == 0 {
		return
	}
	var zero H
	for i := range c.cells {
		c.cells[i] = zero
		c.occupied[i] = false
	}
	c.count = 0
	c.dirty = c.region
	c.hasDirty = true
	c.shouldProcessNext.Store(true)
}

// All iterates every occupied cell in the chunk.
func (c *Chunk[H]) All() iter.Seq2[Coord, H] {
	return func(yield func(Coord, H) bool) {
		if c.count == 0 {
			return
		}
		seen := 0
		for i, ok := range c.occupied {
			if !ok {
				continue
			}
			if !yield(c.position(i), c.cells[i]) {
				return
			}
			seen++
			if seen == c.count {
				return
			}
		}
	}
}

// Within iterates the occupied cells of the chunk that also lie inside r.
func (c *Chunk[H]) Within(r Rect) iter.Seq2[Coord, H] {
	return func(yield func(Coord, H) bool) {
		if c.count == 0 {
			return
		}
		clip, ok := c.region.Intersect(r)
		if !ok {
			return
		}
		for y := clip.Max.Y; y >= clip.Min.Y; y-- {
			row := int(c.region.Max.Y-y) << c.shift
			for x := clip.Min.X; x <= clip.Max.X; x++ {
				i := row | int(x-c.region.Min.X)
				if !c.occupied[i] {
					continue
				}
				if !yield(Coord{x, y}, c.cells[i]) {
					return
				}
			}
		}
	}
}
