package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sandfall/components"
	"github.com/pthm-cable/sandfall/movement"
)

// SetMaterial switches e to material m. Every other material marker is removed first, and the
// movement priority is replaced with priority, or removed for walls, so nothing from the
// previous material lingers. Must not be called while a query is open.
func SetMaterial(ms *Mappers, e ecs.Entity, m movement.Material, fluidity int, priority *movement.Priority) {
	clearMaterial(ms, e)

	switch m {
	case movement.Wall:
		ms.wall.Add(e, &components.Wall{})
	case movement.Solid:
		ms.solid.Add(e, &components.Solid{})
	case movement.MovableSolid:
		ms.movableSolid.Add(e, &components.MovableSolid{})
	case movement.Liquid:
		ms.liquid.Add(e, &components.Liquid{Fluidity: fluidity})
	case movement.Gas:
		ms.gas.Add(e, &components.Gas{Fluidity: fluidity})
	}

	if m == movement.Wall || priority == nil {
		return
	}
	p := *priority
	ms.Priority.Add(e, &p)
}

func clearMaterial(ms *Mappers, e ecs.Entity) {
	if ms.wall.Has(e) {
		ms.wall.Remove(e)
	}
	if ms.solid.Has(e) {
		ms.solid.Remove(e)
	}
	if ms.movableSolid.Has(e) {
		ms.movableSolid.Remove(e)
	}
	if ms.liquid.Has(e) {
		ms.liquid.Remove(e)
	}
	if ms.gas.Has(e) {
		ms.gas.Remove(e)
	}
	if ms.Priority.Has(e) {
		ms.Priority.Remove(e)
	}
}

// MaterialOf reports which material marker e carries.
func MaterialOf(ms *Mappers, e ecs.Entity) (movement.Material, bool) {
	switch {
	case ms.wall.Has(e):
		return movement.Wall, true
	case ms.solid.Has(e):
		return movement.Solid, true
	case ms.movableSolid.Has(e):
		return movement.MovableSolid, true
	case ms.liquid.Has(e):
		return movement.Liquid, true
	case ms.gas.Has(e):
		return movement.Gas, true
	}
	return movement.Wall, false
}

// Retype converts e in place to particle type pt: its type, density, velocity cap, momentum
// capability and material all follow the new type.
func Retype(ms *Mappers, e ecs.Entity, pt *ParticleType) {
	ms.Particle.Get(e).TypeID = pt.ID
	ms.Density.Get(e).Value = pt.Density

	vel := ms.Velocity.Get(e)
	*vel = components.NewVelocity(max(vel.Current, 1), pt.MaxVelocity)

	switch has := ms.Momentum.Has(e); {
	case pt.Momentum && !has:
		ms.Momentum.Add(e, &components.Momentum{})
	case !pt.Momentum && has:
		ms.Momentum.Remove(e)
	case has:
		ms.Momentum.Get(e).Reset()
	}

	SetMaterial(ms, e, pt.Material, pt.Fluidity, &pt.Priority)
}
