package spatial

import (
	"fmt"
	"iter"
)

// ActivityMode selects how the map decides which chunks need processing.
type ActivityMode uint8

const (
	// DirtyRect tracks the bounding box of every mutation and processes that box, grown by one
	// cell, on the following tick. Changes near a chunk edge spill into the neighbours.
	DirtyRect ActivityMode = iota
	// Hibernation keeps a per-chunk awake flag. Untouched chunks fall asleep after one idle tick
	// and are woken by a mutation inside them or a swap on their shared edge.
	Hibernation
)

func (m ActivityMode) String() string {
	switch m {
	case DirtyRect:
		return "dirty_rect"
	case Hibernation:
		return "hibernation"
	}
	return fmt.Sprintf("ActivityMode(%d)", uint8(m))
}

// ParseActivityMode converts a config string to an ActivityMode.
func ParseActivityMode(s string) (ActivityMode, error) {
	switch s {
	case "dirty_rect", "dirty-rect", "dirty":
		return DirtyRect, nil
	case "hibernation", "hibernate":
		return Hibernation, nil
	}
	return DirtyRect, fmt.Errorf("spatial: unknown activity mode %q", s)
}

// Transition reports a chunk whose hibernation state flipped at ResetActivity.
type Transition struct {
	Chunk int
	Woke  bool
}

type neighborUpdate struct {
	chunk int
	rect  Rect
}

// IsActive reports whether the particle at pos should be considered this tick.
func (m *Map[H]) IsActive(pos Coord) bool {
	i, ok := m.ChunkIndex(pos)
	if !ok {
		return false
	}
	c := &m.chunks[i]
	if m.mode == Hibernation {
		return !c.hibernating
	}
	return c.hasActive && c.active.Contains(pos)
}

// ChunkActive reports whether chunk i has anything to process this tick.
func (m *Map[H]) ChunkActive(i int) bool {
	c := &m.chunks[i]
	if m.mode == Hibernation {
		return !c.hibernating
	}
	return c.hasActive
}

// ActiveChunks iterates the chunks that have something to process this tick.
func (m *Map[H]) ActiveChunks() iter.Seq2[int, *Chunk[H]] {
	return func(yield func(int, *Chunk[H]) bool) {
		for i := range m.chunks {
			if !m.ChunkActive(i) {
				continue
			}
			if !yield(i, &m.chunks[i]) {
				return
			}
		}
	}
}

// ActivityCounts returns how many chunks are active and how many are idle this tick.
func (m *Map[H]) ActivityCounts() (active, idle int) {
	for i := range m.chunks {
		if m.ChunkActive(i) {
			active++
		} else {
			idle++
		}
	}
	return active, idle
}

// ResetActivity closes the current tick. In DirtyRect mode each chunk's dirty rect becomes next
// tick's active rect (grown by one and clipped to the chunk), and the rect grown by two is
// pushed into every neighbour it overlaps. In Hibernation mode chunks that were touched wake up
// and untouched awake chunks go to sleep; the flips are returned so the caller can retag the
// particles they hold. Dirty rects are cleared in both modes.
func (m *Map[H]) ResetActivity() []Transition {
	m.pending = m.pending[:0]
	var transitions []Transition

	for i := range m.chunks {
		c := &m.chunks[i]

		if c.hasDirty {
			c.active, c.hasActive = c.dirty.Inflate(1).Intersect(c.region)
			m.collectNeighborUpdates(c, c.dirty.Inflate(2))
			c.hasDirty = false
		} else {
			c.hasActive = false
		}

		if m.mode == Hibernation {
			touched := c.shouldProcessNext.Load()
			switch {
			case touched && c.hibernating:
				c.hibernating = false
				transitions = append(transitions, Transition{Chunk: i, Woke: true})
			case !touched && !c.hibernating:
				c.hibernating = true
				transitions = append(transitions, Transition{Chunk: i, Woke: false})
			}
		}
		c.shouldProcessNext.Store(false)
	}

	// Applied after the first pass so a neighbour's own rect can't overwrite the spill.
	for _, u := range m.pending {
		n := &m.chunks[u.chunk]
		if n.hasActive {
			n.active = n.active.Union(u.rect)
		} else {
			n.active, n.hasActive = u.rect, true
		}
	}
	return transitions
}

func (m *Map[H]) collectNeighborUpdates(c *Chunk[H], expanded Rect) {
	last := m.chunksPerSide - 1
	for dr := -1; dr <= 1; dr++ {
		row := c.row + dr
		if row < 0 || row > last {
			continue
		}
		for dc := -1; dc <= 1; dc++ {
			col := c.col + dc
			if (dr == 0 && dc == 0) || col < 0 || col > last {
				continue
			}
			j := row<<m.mapShift | col
			if r, ok := expanded.Intersect(m.chunks[j].region); ok {
				m.pending = append(m.pending, neighborUpdate{chunk: j, rect: r})
			}
		}
	}
}

// wakeEdgeNeighbors flags the orthogonal neighbour across any chunk edge pos lies on.
func (m *Map[H]) wakeEdgeNeighbors(pos Coord, idx int) {
	if m.mode != Hibernation {
		return
	}
	c := &m.chunks[idx]
	last := m.chunksPerSide - 1
	if pos.X == c.region.Min.X && c.col > 0 {
		m.chunks[idx-1].shouldProcessNext.Store(true)
	}
	if pos.X == c.region.Max.X && c.col < last {
		m.chunks[idx+1].shouldProcessNext.Store(true)
	}
	if pos.Y == c.region.Max.Y && c.row > 0 {
		m.chunks[idx-m.chunksPerSide].shouldProcessNext.Store(true)
	}
	if pos.Y == c.region.Min.Y && c.row < last {
		m.chunks[idx+m.chunksPerSide].shouldProcessNext.Store(true)
	}
}
