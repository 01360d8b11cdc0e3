package sim

import "errors"

var (
	// ErrUnknownType is returned when a particle type name is not registered.
	ErrUnknownType = errors.New("sim: unknown particle type")
	// ErrOccupied is returned by Spawn when the target cell already holds a particle.
	ErrOccupied = errors.New("sim: cell occupied")
	// ErrEmptyCell is returned when an operation needs a particle at a cell that has none.
	ErrEmptyCell = errors.New("sim: cell empty")
)
