package components

// Material markers. Exactly one is attached to every particle; systems.SetMaterial keeps
// them mutually exclusive.
type (
	Wall         struct{}
	Solid        struct{}
	MovableSolid struct{}

	Liquid struct {
		Fluidity int
	}

	Gas struct {
		Fluidity int
	}
)
