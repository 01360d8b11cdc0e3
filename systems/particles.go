package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sandfall/components"
	"github.com/pthm-cable/sandfall/movement"
	"github.com/pthm-cable/sandfall/spatial"
)

// Mappers bundles the component accessors every particle system needs.
type Mappers struct {
	World *ecs.World

	particleMapper *ecs.Map5[
		components.Position,
		components.Particle,
		components.Density,
		components.Velocity,
		components.Moved,
	]

	Position    *ecs.Map[components.Position]
	Particle    *ecs.Map[components.Particle]
	Density     *ecs.Map[components.Density]
	Velocity    *ecs.Map[components.Velocity]
	Moved       *ecs.Map[components.Moved]
	Momentum    *ecs.Map[components.Momentum]
	Priority    *ecs.Map[movement.Priority]
	Hibernating *ecs.Map[components.Hibernating]

	wall         *ecs.Map[components.Wall]
	solid        *ecs.Map[components.Solid]
	movableSolid *ecs.Map[components.MovableSolid]
	liquid       *ecs.Map[components.Liquid]
	gas          *ecs.Map[components.Gas]
}

// NewMappers creates the accessors for world.
func NewMappers(world *ecs.World) *Mappers {
	return &Mappers{
		World: world,
		particleMapper: ecs.NewMap5[
			components.Position,
			components.Particle,
			components.Density,
			components.Velocity,
			components.Moved,
		](world),
		Position:     ecs.NewMap[components.Position](world),
		Particle:     ecs.NewMap[components.Particle](world),
		Density:      ecs.NewMap[components.Density](world),
		Velocity:     ecs.NewMap[components.Velocity](world),
		Moved:        ecs.NewMap[components.Moved](world),
		Momentum:     ecs.NewMap[components.Momentum](world),
		Priority:     ecs.NewMap[movement.Priority](world),
		Hibernating:  ecs.NewMap[components.Hibernating](world),
		wall:         ecs.NewMap[components.Wall](world),
		solid:        ecs.NewMap[components.Solid](world),
		movableSolid: ecs.NewMap[components.MovableSolid](world),
		liquid:       ecs.NewMap[components.Liquid](world),
		gas:          ecs.NewMap[components.Gas](world),
	}
}

// NewParticle creates an entity of type pt at pos with the full component set for its
// material. It does not touch the spatial map.
func (ms *Mappers) NewParticle(pt *ParticleType, pos spatial.Coord) ecs.Entity {
	p := components.Position{Coord: pos}
	kind := components.Particle{TypeID: pt.ID}
	density := components.Density{Value: pt.Density}
	vel := components.NewVelocity(1, pt.MaxVelocity)
	moved := components.Moved{}
	e := ms.particleMapper.NewEntity(&p, &kind, &density, &vel, &moved)

	if pt.Momentum {
		ms.Momentum.Add(e, &components.Momentum{})
	}
	SetMaterial(ms, e, pt.Material, pt.Fluidity, &pt.Priority)
	return e
}

// Body returns the movable view of e. Walls, sleeping particles and dead entities are not
// movable.
func (ms *Mappers) Body(e ecs.Entity) (movement.Body, bool) {
	if !ms.World.Alive(e) || !ms.Priority.Has(e) || ms.Hibernating.Has(e) {
		return movement.Body{}, false
	}
	var mom *components.Momentum
	if ms.Momentum.Has(e) {
		mom = ms.Momentum.Get(e)
	}
	return movement.Body{
		Position: &ms.Position.Get(e).Coord,
		Velocity: ms.Velocity.Get(e),
		Momentum: mom,
		Density:  ms.Density.Get(e).Value,
		Type:     ms.Particle.Get(e).TypeID,
		Priority: ms.Priority.Get(e),
		Moved:    &ms.Moved.Get(e).Value,
	}, true
}
