package components

import "github.com/pthm-cable/sandfall/spatial"

// Position is the grid cell a particle occupies. It mirrors the particle's key in the
// spatial map and is updated whenever the map moves the particle.
type Position struct {
	spatial.Coord
}

// Velocity is the number of substeps a particle may take per tick.
type Velocity struct {
	Current uint8
	Max     uint8
}

// NewVelocity returns a velocity starting at current, clamped to max.
func NewVelocity(current, max uint8) Velocity {
	return Velocity{Current: min(current, max), Max: max}
}

// Increment raises the velocity by one, up to Max.
func (v *Velocity) Increment() {
	if v.Current < v.Max {
		v.Current++
	}
}

// Decrement lowers the velocity by one. It never drops below 1.
func (v *Velocity) Decrement() {
	if v.Current > 1 {
		v.Current--
	}
}

// Momentum is the offset of the particle's last successful move. Only particles whose
// type is momentum-capable carry this component.
type Momentum struct {
	Offset spatial.Coord
}

// Reset clears the momentum without removing the capability.
func (m *Momentum) Reset() { m.Offset = spatial.Zero }
