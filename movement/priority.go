package movement

import (
	"math/rand"

	"github.com/pthm-cable/sandfall/spatial"
)

// Tier is a group of equally preferred relative offsets.
type Tier []spatial.Coord

// Contains reports whether off is a member of the tier.
func (t Tier) Contains(off spatial.Coord) bool {
	for _, c := range t {
		if c == off {
			return true
		}
	}
	return false
}

// Priority is a particle's ordered list of movement tiers. It doubles as the ECS component
// attached to every non-wall particle. Tables are shared between particles of the same type
// and must not be mutated after construction.
type Priority struct {
	Tiers []Tier
}

// Empty reports whether the table has no candidates.
func (p *Priority) Empty() bool { return p == nil || len(p.Tiers) == 0 }

// Len returns the total number of candidate offsets across all tiers.
func (p *Priority) Len() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, t := range p.Tiers {
		n += len(t)
	}
	return n
}

// ForMaterial builds the movement table for a material. fluidity is ignored for materials
// that do not flow.
func ForMaterial(m Material, fluidity int) Priority {
	switch m {
	case Solid:
		return Priority{Tiers: []Tier{{spatial.Down}}}
	case MovableSolid:
		return Priority{Tiers: []Tier{
			{spatial.Down},
			{spatial.DownLeft, spatial.DownRight},
		}}
	case Liquid:
		tiers := []Tier{
			{spatial.Down},
			{spatial.DownLeft, spatial.DownRight},
			{spatial.Left, spatial.Right},
		}
		return Priority{Tiers: append(tiers, reachTiers(fluidity)...)}
	case Gas:
		tiers := []Tier{{spatial.Up, spatial.UpLeft, spatial.UpRight}}
		return Priority{Tiers: append(tiers, reachTiers(fluidity)...)}
	}
	return Priority{}
}

// reachTiers returns the progressively wider horizontal tiers for a fluid.
func reachTiers(fluidity int) []Tier {
	tiers := make([]Tier, 0, max(fluidity, 0))
	for i := 0; i < fluidity; i++ {
		d := int32(2 + i)
		tiers = append(tiers, Tier{spatial.Right.Scale(d), spatial.Left.Scale(d)})
	}
	return tiers
}

// Candidates appends the offsets to try for tier i to buf and returns it. When momentum is a
// member of the tier it is the only candidate: the tier's other members are skipped, so a
// blocked momentum direction falls through to the next tier. Otherwise the whole tier is
// appended in shuffled order. The table itself is never reordered.
func (p *Priority) Candidates(rng *rand.Rand, momentum *spatial.Coord, i int, buf []spatial.Coord) []spatial.Coord {
	tier := p.Tiers[i]
	if momentum != nil && !momentum.IsZero() && tier.Contains(*momentum) {
		return append(buf, *momentum)
	}
	start := len(buf)
	buf = append(buf, tier...)
	if rest := buf[start:]; len(rest) > 1 {
		rng.Shuffle(len(rest), func(a, b int) { rest[a], rest[b] = rest[b], rest[a] })
	}
	return buf
}
