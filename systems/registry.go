package systems

import (
	"fmt"

	"github.com/pthm-cable/sandfall/config"
	"github.com/pthm-cable/sandfall/movement"
)

// ParticleType is the read-only description of one kind of particle.
type ParticleType struct {
	ID          uint16
	Name        string
	Material    movement.Material
	Fluidity    int
	Density     uint32
	MaxVelocity uint8
	Momentum    bool
	Priority    movement.Priority // shared by every particle of this type
}

// Registry holds every registered particle type. IDs are assigned in registration order.
type Registry struct {
	types  []ParticleType
	byName map[string]uint16
}

// NewRegistry creates a registry from particle configs.
func NewRegistry(particles []config.ParticleConfig) (*Registry, error) {
	reg := &Registry{
		byName: make(map[string]uint16, len(particles)),
	}
	for _, p := range particles {
		if _, err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register adds a particle type and returns it.
func (r *Registry) Register(p config.ParticleConfig) (*ParticleType, error) {
	if _, dup := r.byName[p.Name]; dup {
		return nil, fmt.Errorf("registry: duplicate particle type %q", p.Name)
	}
	if len(r.types) >= 1<<16 {
		return nil, fmt.Errorf("registry: too many particle types")
	}
	m, err := movement.ParseMaterial(p.Material)
	if err != nil {
		return nil, fmt.Errorf("registry: %q: %w", p.Name, err)
	}
	maxVel := p.MaxVelocity
	if m == movement.Wall {
		maxVel = 0
	}
	id := uint16(len(r.types))
	r.types = append(r.types, ParticleType{
		ID:          id,
		Name:        p.Name,
		Material:    m,
		Fluidity:    p.Fluidity,
		Density:     p.Density,
		MaxVelocity: maxVel,
		Momentum:    p.Momentum && m != movement.Wall,
		Priority:    movement.ForMaterial(m, p.Fluidity),
	})
	r.byName[p.Name] = id
	return &r.types[id], nil
}

// Get returns the type with the given ID.
func (r *Registry) Get(id uint16) (*ParticleType, bool) {
	if int(id) >= len(r.types) {
		return nil, false
	}
	return &r.types[id], true
}

// Lookup returns the type with the given name.
func (r *Registry) Lookup(name string) (*ParticleType, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return &r.types[id], true
}

// Name returns the name for a type ID.
// Falls back to the numeric ID if not found.
func (r *Registry) Name(id uint16) string {
	if t, ok := r.Get(id); ok {
		return t.Name
	}
	return fmt.Sprintf("#%d", id)
}

// Len returns the number of registered types.
func (r *Registry) Len() int { return len(r.types) }

// Names returns all type names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.types))
	for i, t := range r.types {
		names[i] = t.Name
	}
	return names
}
