// Package components defines ECS components for the simulation.
package components

// Particle identifies the registered type a particle was spawned as.
type Particle struct {
	TypeID uint16
}

// Density decides displacement: a denser particle sinks through a lighter one.
type Density struct {
	Value uint32
}

// Moved records whether the particle changed cell during the last tick.
type Moved struct {
	Value bool
}

// Hibernating tags particles in sleeping chunks so queries can exclude them.
type Hibernating struct{}
