package spatial

import "iter"

// WithinRadius iterates every particle whose squared distance from center is at most
// radius*radius. Only chunks overlapping the query's bounding box are visited.
func (m *Map[H]) WithinRadius(center Coord, radius int32) iter.Seq2[Coord, H] {
	return func(yield func(Coord, H) bool) {
		if radius < 0 {
			return
		}
		box, ok := m.radiusBox(center, radius)
		if !ok {
			return
		}
		r2 := int64(radius) * int64(radius)
		for pos, h := range m.WithinRect(box) {
			if pos.DistSq(center) > r2 {
				continue
			}
			if !yield(pos, h) {
				return
			}
		}
	}
}

// radiusBox is the bounding box of the disc clipped to the world. The corners are computed in
// int64 since center may lie anywhere in int32 space.
func (m *Map[H]) radiusBox(center Coord, radius int32) (Rect, bool) {
	b := m.Bounds()
	r := int64(radius)
	minX := max(int64(center.X)-r, int64(b.Min.X))
	maxX := min(int64(center.X)+r, int64(b.Max.X))
	minY := max(int64(center.Y)-r, int64(b.Min.Y))
	maxY := min(int64(center.Y)+r, int64(b.Max.Y))
	if minX > maxX || minY > maxY {
		return Rect{}, false
	}
	return Rect{
		Min: Coord{int32(minX), int32(minY)},
		Max: Coord{int32(maxX), int32(maxY)},
	}, true
}

// WithinRect iterates every particle inside the inclusive rect r.
func (m *Map[H]) WithinRect(r Rect) iter.Seq2[Coord, H] {
	return func(yield func(Coord, H) bool) {
		clip, ok := r.Intersect(m.Bounds())
		if !ok {
			return
		}
		// Top-left and bottom-right corners give the chunk row/col span.
		tl := m.ChunkIndexUnchecked(Coord{clip.Min.X, clip.Max.Y})
		br := m.ChunkIndexUnchecked(Coord{clip.Max.X, clip.Min.Y})
		mask := m.chunksPerSide - 1
		for row := tl >> m.mapShift; row <= br>>m.mapShift; row++ {
			for col := tl & mask; col <= br&mask; col++ {
				for pos, h := range m.chunks[row<<m.mapShift|col].Within(clip) {
					if !yield(pos, h) {
						return
					}
				}
			}
		}
	}
}
