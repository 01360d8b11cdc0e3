package movement

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/pthm-cable/sandfall/spatial"
)

func TestForMaterial(t *testing.T) {
	tests := []struct {
		name     string
		material Material
		fluidity int
		want     []Tier
	}{
		{"wall", Wall, 0, nil},
		{"solid", Solid, 0, []Tier{{spatial.Down}}},
		{"movable solid", MovableSolid, 0, []Tier{
			{spatial.Down},
			{spatial.DownLeft, spatial.DownRight},
		}},
		{"liquid f=0", Liquid, 0, []Tier{
			{spatial.Down},
			{spatial.DownLeft, spatial.DownRight},
			{spatial.Left, spatial.Right},
		}},
		{"liquid f=2", Liquid, 2, []Tier{
			{spatial.Down},
			{spatial.DownLeft, spatial.DownRight},
			{spatial.Left, spatial.Right},
			{spatial.C(2, 0), spatial.C(-2, 0)},
			{spatial.C(3, 0), spatial.C(-3, 0)},
		}},
		{"gas f=1", Gas, 1, []Tier{
			{spatial.Up, spatial.UpLeft, spatial.UpRight},
			{spatial.C(2, 0), spatial.C(-2, 0)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForMaterial(tt.material, tt.fluidity)
			if len(got.Tiers) != len(tt.want) {
				t.Fatalf("got %d tiers, want %d: %v", len(got.Tiers), len(tt.want), got.Tiers)
			}
			for i := range tt.want {
				if !slices.Equal(got.Tiers[i], tt.want[i]) {
					t.Errorf("tier %d = %v, want %v", i, got.Tiers[i], tt.want[i])
				}
			}
		})
	}
}

func TestWallPriorityIsEmpty(t *testing.T) {
	p := ForMaterial(Wall, 5)
	if !p.Empty() || p.Len() != 0 {
		t.Errorf("wall priority = %+v, want empty", p)
	}
}

func TestCandidatesMomentumOnly(t *testing.T) {
	p := ForMaterial(Liquid, 0)
	rng := rand.New(rand.NewSource(3))
	momentum := spatial.Left

	for range 20 {
		got := p.Candidates(rng, &momentum, 2, nil)
		if len(got) != 1 || got[0] != spatial.Left {
			t.Fatalf("Candidates with momentum = %v, want only left", got)
		}
	}

	buf := []spatial.Coord{spatial.Up}
	if got := p.Candidates(rng, &momentum, 2, buf); !slices.Equal(got, []spatial.Coord{spatial.Up, spatial.Left}) {
		t.Errorf("Candidates did not append to buf: %v", got)
	}

	// momentum outside the tier has no effect on membership
	got := p.Candidates(rng, &momentum, 1, nil)
	slices.SortFunc(got, func(a, b spatial.Coord) int { return int(a.X - b.X) })
	if !slices.Equal(got, []spatial.Coord{spatial.DownLeft, spatial.DownRight}) {
		t.Errorf("Candidates = %v", got)
	}
}

func TestCandidatesDoesNotMutateTable(t *testing.T) {
	p := ForMaterial(Gas, 3)
	before := make([]Tier, len(p.Tiers))
	for i, tier := range p.Tiers {
		before[i] = slices.Clone(tier)
	}
	rng := rand.New(rand.NewSource(9))
	var buf []spatial.Coord
	seenOrders := make(map[spatial.Coord]bool)
	for range 50 {
		buf = p.Candidates(rng, nil, 0, buf[:0])
		seenOrders[buf[0]] = true
	}
	for i := range before {
		if !slices.Equal(before[i], p.Tiers[i]) {
			t.Fatalf("tier %d mutated: %v -> %v", i, before[i], p.Tiers[i])
		}
	}
	if len(seenOrders) < 2 {
		t.Errorf("tier was never shuffled: first offsets seen %v", seenOrders)
	}
}

func TestParseMaterial(t *testing.T) {
	for _, m := range []Material{Wall, Solid, MovableSolid, Liquid, Gas} {
		got, err := ParseMaterial(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMaterial(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMaterial("plasma"); err == nil {
		t.Error("expected error for unknown material")
	}
}
