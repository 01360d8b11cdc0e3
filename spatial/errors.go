package spatial

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPowerOfTwo is returned when a world or chunk size is not a power of two.
	ErrNotPowerOfTwo = errors.New("size must be a power of two")
	// ErrChunkLargerThanWorld is returned when the chunk size exceeds the world size.
	ErrChunkLargerThanWorld = errors.New("chunk size exceeds world size")
	// ErrOutOfBounds is returned when a position maps outside the index.
	ErrOutOfBounds = errors.New("position out of bounds")
	// ErrNotFound is returned when a position expected to hold a particle is empty.
	ErrNotFound = errors.New("position not found")
)

// ConfigError reports an invalid index construction parameter.
type ConfigError struct {
	Field string
	Value int
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("spatial: %s=%d: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SwapErrorKind classifies a failed swap.
type SwapErrorKind uint8

const (
	// PositionOutOfBounds means one of the positions maps outside the index.
	PositionOutOfBounds SwapErrorKind = iota
	// PositionNotFound means the source position held no particle.
	PositionNotFound
)

func (k SwapErrorKind) String() string {
	switch k {
	case PositionOutOfBounds:
		return "position_out_of_bounds"
	case PositionNotFound:
		return "position_not_found"
	}
	return "unknown"
}

// SwapError is returned by Map.Swap. It is a control value, not a crash condition:
// PositionNotFound on the source side means the caller's bookkeeping has drifted from the index.
type SwapError struct {
	Kind     SwapErrorKind
	Position Coord
}

func (e *SwapError) Error() string {
	return fmt.Sprintf("spatial: swap: %s at %v", e.Kind, e.Position)
}

// Is lets errors.Is match a SwapError against ErrOutOfBounds / ErrNotFound.
func (e *SwapError) Is(target error) bool {
	switch e.Kind {
	case PositionOutOfBounds:
		return target == ErrOutOfBounds
	case PositionNotFound:
		return target == ErrNotFound
	}
	return false
}

func outOfBounds(pos Coord) error {
	return fmt.Errorf("spatial: %v: %w", pos, ErrOutOfBounds)
}
