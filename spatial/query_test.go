package spatial

import (
	"math"
	"math/rand"
	"slices"
	"testing"
)

func fillRandom(t *testing.T, m *Map[int], n int, seed int64) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	b := m.Bounds()
	size := m.WorldSize()
	for h := 0; h < n; h++ {
		p := C(b.Min.X+int32(rng.Intn(size)), b.Min.Y+int32(rng.Intn(size)))
		m.InsertNoOverwrite(p, h)
	}
}

func TestWithinRadiusMatchesBruteForce(t *testing.T) {
	m := mustMap(t, 64, 8)
	fillRandom(t, m, 1500, 7)

	tests := []struct {
		center Coord
		radius int32
	}{
		{C(0, 0), 5},
		{C(-30, 30), 9},
		{C(31, -31), 3},
		{C(10, -4), 0},
		{C(0, 0), 200},
	}
	for _, tt := range tests {
		want := make(map[Coord]int)
		r2 := int64(tt.radius) * int64(tt.radius)
		for pos, h := range m.All() {
			if pos.DistSq(tt.center) <= r2 {
				want[pos] = h
			}
		}
		got := make(map[Coord]int)
		for pos, h := range m.WithinRadius(tt.center, tt.radius) {
			if _, dup := got[pos]; dup {
				t.Fatalf("WithinRadius(%v, %d) yielded %v twice", tt.center, tt.radius, pos)
			}
			got[pos] = h
		}
		if len(got) != len(want) {
			t.Errorf("WithinRadius(%v, %d) = %d cells, want %d", tt.center, tt.radius, len(got), len(want))
			continue
		}
		for pos, h := range want {
			if got[pos] != h {
				t.Errorf("WithinRadius(%v, %d) missing %v", tt.center, tt.radius, pos)
			}
		}
	}
}

func TestWithinRect(t *testing.T) {
	m := mustMap(t, 64, 8)
	fillRandom(t, m, 1500, 11)

	rects := []Rect{
		RectFromCorners(C(-5, -5), C(5, 5)),
		RectFromCorners(C(-100, -100), C(100, 100)),
		RectFromCorners(C(-32, 32), C(-25, 25)),
		RectFromCorners(C(40, 40), C(50, 50)),
	}
	for _, r := range rects {
		want := 0
		for pos := range m.All() {
			if r.Contains(pos) {
				want++
			}
		}
		got := 0
		for pos := range m.WithinRect(r) {
			if !r.Contains(pos) {
				t.Fatalf("WithinRect(%v) yielded %v", r, pos)
			}
			got++
		}
		if got != want {
			t.Errorf("WithinRect(%v) = %d, want %d", r, got, want)
		}
	}
}

func TestWithinRadiusRestartable(t *testing.T) {
	m := mustMap(t, 16, 4)
	m.InsertOverwrite(C(1, 1), 1)
	m.InsertOverwrite(C(-1, -1), 2)
	seq := m.WithinRadius(C(0, 0), 2)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	if a, b := count(), count(); a != 2 || b != 2 {
		t.Errorf("counts %d, %d, want 2, 2", a, b)
	}

	for range seq {
		break
	}
}

func TestWithinRadiusExtremeArguments(t *testing.T) {
	m := mustMap(t, 16, 4)
	m.InsertOverwrite(C(7, 0), 1)
	m.InsertOverwrite(C(-8, 0), 2)
	m.InsertOverwrite(C(0, 8), 3)

	collect := func(center Coord, radius int32) []int {
		var hs []int
		for _, h := range m.WithinRadius(center, radius) {
			hs = append(hs, h)
		}
		slices.Sort(hs)
		return hs
	}

	tests := []struct {
		name   string
		center Coord
		radius int32
		want   []int
	}{
		{"max radius at origin", C(0, 0), math.MaxInt32, []int{1, 2, 3}},
		// (7,0) is exactly radius away; (-8,0) is 15 further
		{"far right edge of int32", C(math.MaxInt32, 0), math.MaxInt32 - 7, []int{1}},
		{"far left edge of int32", C(math.MinInt32, 0), math.MaxInt32, []int{2}},
		{"far away small radius", C(math.MaxInt32, math.MaxInt32), 10, nil},
		{"negative radius", C(0, 0), -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collect(tt.center, tt.radius); !slices.Equal(got, tt.want) {
				t.Errorf("WithinRadius(%v, %d) = %v, want %v", tt.center, tt.radius, got, tt.want)
			}
		})
	}
}
