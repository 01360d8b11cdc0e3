// Package movement holds the per-material movement tables and the tick resolver that walks them.
package movement

import "fmt"

// Material is a particle's movement archetype.
type Material uint8

const (
	Wall Material = iota
	Solid
	MovableSolid
	Liquid
	Gas
)

var materialNames = [...]string{
	Wall:         "wall",
	Solid:        "solid",
	MovableSolid: "movable_solid",
	Liquid:       "liquid",
	Gas:          "gas",
}

func (m Material) String() string {
	if int(m) < len(materialNames) {
		return materialNames[m]
	}
	return fmt.Sprintf("Material(%d)", uint8(m))
}

// Fluid reports whether the material takes a fluidity parameter.
func (m Material) Fluid() bool { return m == Liquid || m == Gas }

// ParseMaterial converts a config name to a Material.
func ParseMaterial(s string) (Material, error) {
	for i, name := range materialNames {
		if name == s {
			return Material(i), nil
		}
	}
	return Wall, fmt.Errorf("movement: unknown material %q", s)
}
