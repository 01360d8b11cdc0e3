package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sandfall/components"
	"github.com/pthm-cable/sandfall/spatial"
)

// ApplyTransitions tags the particles of every chunk that fell asleep with Hibernating and
// untags those of every chunk that woke up. It returns the number of entities retagged.
func ApplyTransitions(ms *Mappers, m *spatial.Map[ecs.Entity], transitions []spatial.Transition) int {
	n := 0
	for _, tr := range transitions {
		for _, e := range m.Chunk(tr.Chunk).All() {
			has := ms.Hibernating.Has(e)
			switch {
			case tr.Woke && has:
				ms.Hibernating.Remove(e)
				n++
			case !tr.Woke && !has:
				ms.Hibernating.Add(e, &components.Hibernating{})
				n++
			}
		}
	}
	return n
}
