// Package spatial provides the chunked particle index used by the simulation.
package spatial

import "fmt"

// Coord is a cell position on the integer grid. Y grows upward.
type Coord struct {
	X, Y int32
}

// Common relative offsets.
var (
	Zero      = Coord{0, 0}
	Up        = Coord{0, 1}
	Down      = Coord{0, -1}
	Left      = Coord{-1, 0}
	Right     = Coord{1, 0}
	UpLeft    = Coord{-1, 1}
	UpRight   = Coord{1, 1}
	DownLeft  = Coord{-1, -1}
	DownRight = Coord{1, -1}
)

// C is shorthand for Coord{X: x, Y: y}.
func C(x, y int32) Coord { return Coord{X: x, Y: y} }

// Add returns c + o.
func (c Coord) Add(o Coord) Coord { return Coord{c.X + o.X, c.Y + o.Y} }

// Sub returns c - o.
func (c Coord) Sub(o Coord) Coord { return Coord{c.X - o.X, c.Y - o.Y} }

// Scale multiplies both components by k.
func (c Coord) Scale(k int32) Coord { return Coord{c.X * k, c.Y * k} }

// Sign returns the component-wise signum of c.
func (c Coord) Sign() Coord { return Coord{sign(c.X), sign(c.Y)} }

// IsZero reports whether c is the origin.
func (c Coord) IsZero() bool { return c.X == 0 && c.Y == 0 }

// DistSq returns the squared euclidean distance between c and o.
func (c Coord) DistSq(o Coord) int64 {
	dx := int64(c.X) - int64(o.X)
	dy := int64(c.Y) - int64(o.Y)
	return dx*dx + dy*dy
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

func sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Rect is an inclusive axis-aligned box. A rect is empty when Max < Min on either axis.
type Rect struct {
	Min, Max Coord
}

// RectAt returns the 1x1 rect covering c.
func RectAt(c Coord) Rect { return Rect{Min: c, Max: c} }

// RectFromCorners builds a rect from two arbitrary corners.
func RectFromCorners(a, b Coord) Rect {
	return Rect{
		Min: Coord{min(a.X, b.X), min(a.Y, b.Y)},
		Max: Coord{max(a.X, b.X), max(a.Y, b.Y)},
	}
}

// Empty reports whether r covers no cells.
func (r Rect) Empty() bool { return r.Max.X < r.Min.X || r.Max.Y < r.Min.Y }

// Width returns the number of columns covered by r.
func (r Rect) Width() int32 {
	if r.Empty() {
		return 0
	}
	return r.Max.X - r.Min.X + 1
}

// Height returns the number of rows covered by r.
func (r Rect) Height() int32 {
	if r.Empty() {
		return 0
	}
	return r.Max.Y - r.Min.Y + 1
}

// Area returns the number of cells covered by r.
func (r Rect) Area() int64 { return int64(r.Width()) * int64(r.Height()) }

// Contains reports whether c lies inside r.
func (r Rect) Contains(c Coord) bool {
	return c.X >= r.Min.X && c.X <= r.Max.X && c.Y >= r.Min.Y && c.Y <= r.Max.Y
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	if o.Empty() {
		return true
	}
	return r.Contains(o.Min) && r.Contains(o.Max)
}

// UnionPoint grows r to include c.
func (r Rect) UnionPoint(c Coord) Rect {
	return Rect{
		Min: Coord{min(r.Min.X, c.X), min(r.Min.Y, c.Y)},
		Max: Coord{max(r.Max.X, c.X), max(r.Max.Y, c.Y)},
	}
}

// Union returns the smallest rect containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return r.UnionPoint(o.Min).UnionPoint(o.Max)
}

// Intersect returns the overlap of r and o. ok is false when they do not overlap.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	out := Rect{
		Min: Coord{max(r.Min.X, o.Min.X), max(r.Min.Y, o.Min.Y)},
		Max: Coord{min(r.Max.X, o.Max.X), min(r.Max.Y, o.Max.Y)},
	}
	return out, !out.Empty()
}

// Inflate grows r by n cells on every side.
func (r Rect) Inflate(n int32) Rect {
	return Rect{
		Min: Coord{r.Min.X - n, r.Min.Y - n},
		Max: Coord{r.Max.X + n, r.Max.Y + n},
	}
}

func (r Rect) String() string { return fmt.Sprintf("[%v..%v]", r.Min, r.Max) }
