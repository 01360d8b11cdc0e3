package spatial

import (
	"errors"
	"math/rand"
	"testing"
)

func mustMap(t *testing.T, world, chunk int, opts ...Option) *Map[int] {
	t.Helper()
	m, err := New[int](world, chunk, opts...)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", world, chunk, err)
	}
	return m
}

func TestNewRejectsBadSizes(t *testing.T) {
	tests := []struct {
		name        string
		world, size int
		want        error
	}{
		{"world not power of two", 100, 4, ErrNotPowerOfTwo},
		{"chunk not power of two", 64, 12, ErrNotPowerOfTwo},
		{"zero chunk", 64, 0, ErrNotPowerOfTwo},
		{"chunk larger than world", 16, 32, ErrChunkLargerThanWorld},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[int](tt.world, tt.size)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err %T is not a *ConfigError", err)
			}
		})
	}
}

func TestNewLayout(t *testing.T) {
	m := mustMap(t, 64, 16)
	if m.NumChunks() != 16 {
		t.Errorf("NumChunks = %d, want 16", m.NumChunks())
	}
	if m.ChunksPerSide() != 4 {
		t.Errorf("ChunksPerSide = %d, want 4", m.ChunksPerSide())
	}
	want := Rect{Min: C(-32, -31), Max: C(31, 32)}
	if m.Bounds() != want {
		t.Errorf("Bounds = %v, want %v", m.Bounds(), want)
	}
	if r := m.Chunk(0).Region(); r != (Rect{Min: C(-32, 17), Max: C(-17, 32)}) {
		t.Errorf("chunk 0 region = %v", r)
	}
}

func TestChunkIndex(t *testing.T) {
	m := mustMap(t, 64, 16)
	tests := []struct {
		pos    Coord
		want   int
		wantOK bool
	}{
		{C(-32, 32), 0, true},
		{C(0, 0), 10, true},
		{C(-1, 1), 5, true},
		{C(31, -31), 15, true},
		{C(-17, 32), 0, true},
		{C(-16, 32), 1, true},
		{C(-32, 16), 4, true},
		{C(32, 0), 0, false},
		{C(-33, 0), 0, false},
		{C(0, 33), 0, false},
		{C(0, -32), 0, false},
	}
	for _, tt := range tests {
		got, ok := m.ChunkIndex(tt.pos)
		if ok != tt.wantOK {
			t.Errorf("ChunkIndex(%v) ok = %v, want %v", tt.pos, ok, tt.wantOK)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ChunkIndex(%v) = %d, want %d", tt.pos, got, tt.want)
		}
		if ok && m.ChunkIndexUnchecked(tt.pos) != got {
			t.Errorf("ChunkIndexUnchecked(%v) disagrees with ChunkIndex", tt.pos)
		}
		if m.InBounds(tt.pos) != tt.wantOK {
			t.Errorf("InBounds(%v) = %v, want %v", tt.pos, !tt.wantOK, tt.wantOK)
		}
	}
}

func TestChunkRegionsMatchIndex(t *testing.T) {
	m := mustMap(t, 16, 4)
	b := m.Bounds()
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for x := b.Min.X; x <= b.Max.X; x++ {
			pos := C(x, y)
			i, ok := m.ChunkIndex(pos)
			if !ok {
				t.Fatalf("%v inside Bounds but ChunkIndex failed", pos)
			}
			if !m.Chunk(i).Region().Contains(pos) {
				t.Fatalf("%v maps to chunk %d with region %v", pos, i, m.Chunk(i).Region())
			}
		}
	}
}

func TestInsertGetRemove(t *testing.T) {
	m := mustMap(t, 16, 4)
	var removed []int
	m.SetRemoveHook(func(_ Coord, h int) { removed = append(removed, h) })

	pos := C(3, -2)
	if got, ok, err := m.InsertNoOverwrite(pos, 7); err != nil || !ok || got != 7 {
		t.Fatalf("InsertNoOverwrite = (%d, %v, %v)", got, ok, err)
	}
	if got, ok, _ := m.InsertNoOverwrite(pos, 9); ok || got != 7 {
		t.Fatalf("second InsertNoOverwrite = (%d, %v), want existing 7 rejected", got, ok)
	}
	if h, ok := m.Get(pos); !ok || h != 7 {
		t.Fatalf("Get = (%d, %v), want 7", h, ok)
	}

	old, replaced, err := m.InsertOverwrite(pos, 9)
	if err != nil || !replaced || old != 7 {
		t.Fatalf("InsertOverwrite = (%d, %v, %v), want old 7", old, replaced, err)
	}
	if len(removed) != 1 || removed[0] != 7 {
		t.Fatalf("remove hook saw %v, want [7]", removed)
	}

	if h, ok := m.Remove(pos); !ok || h != 9 {
		t.Fatalf("Remove = (%d, %v), want 9", h, ok)
	}
	if _, ok := m.Remove(pos); ok {
		t.Error("Remove of empty cell reported a handle")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
	if len(removed) != 2 {
		t.Errorf("remove hook fired %d times, want 2", len(removed))
	}

	if _, _, err := m.InsertOverwrite(C(100, 0), 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("out-of-bounds insert err = %v", err)
	}
	if _, ok := m.Get(C(100, 0)); ok {
		t.Error("out-of-bounds Get reported a handle")
	}
}

func TestSwap(t *testing.T) {
	tests := []struct {
		name     string
		occupied map[Coord]int
		a, b     Coord
		wantErr  error
		wantKind SwapErrorKind
		want     map[Coord]int
	}{
		{
			name:     "move into empty",
			occupied: map[Coord]int{C(0, 0): 1},
			a:        C(0, 0), b: C(0, -1),
			want: map[Coord]int{C(0, -1): 1},
		},
		{
			name:     "trade cells",
			occupied: map[Coord]int{C(0, 0): 1, C(0, -1): 2},
			a:        C(0, 0), b: C(0, -1),
			want: map[Coord]int{C(0, 0): 2, C(0, -1): 1},
		},
		{
			name:     "cross chunk",
			occupied: map[Coord]int{C(-1, 0): 1, C(0, 0): 2},
			a:        C(-1, 0), b: C(0, 0),
			want: map[Coord]int{C(-1, 0): 2, C(0, 0): 1},
		},
		{
			name:     "self swap",
			occupied: map[Coord]int{C(5, 5): 3},
			a:        C(5, 5), b: C(5, 5),
			want: map[Coord]int{C(5, 5): 3},
		},
		{
			name:     "source empty",
			occupied: map[Coord]int{C(0, -1): 2},
			a:        C(0, 0), b: C(0, -1),
			wantErr: ErrNotFound, wantKind: PositionNotFound,
			want: map[Coord]int{C(0, -1): 2},
		},
		{
			name:     "destination out of bounds",
			occupied: map[Coord]int{C(7, 0): 1},
			a:        C(7, 0), b: C(8, 0),
			wantErr: ErrOutOfBounds, wantKind: PositionOutOfBounds,
			want: map[Coord]int{C(7, 0): 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMap(t, 16, 4)
			for pos, h := range tt.occupied {
				if _, _, err := m.InsertOverwrite(pos, h); err != nil {
					t.Fatal(err)
				}
			}
			err := m.Swap(tt.a, tt.b)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				var swapErr *SwapError
				if !errors.As(err, &swapErr) || swapErr.Kind != tt.wantKind {
					t.Fatalf("err = %#v, want kind %v", err, tt.wantKind)
				}
			} else if err != nil {
				t.Fatalf("Swap: %v", err)
			}
			if m.Len() != len(tt.want) {
				t.Fatalf("Len = %d, want %d", m.Len(), len(tt.want))
			}
			for pos, h := range tt.want {
				if got, ok := m.Get(pos); !ok || got != h {
					t.Errorf("Get(%v) = (%d, %v), want %d", pos, got, ok, h)
				}
			}
		})
	}
}

func TestSwapTouchesDirtyRects(t *testing.T) {
	m := mustMap(t, 16, 4)
	a, b := C(-1, 0), C(0, 0)
	m.InsertOverwrite(a, 1)
	m.ResetActivity()

	if err := m.Swap(a, b); err != nil {
		t.Fatal(err)
	}
	ca, _ := m.ChunkAt(a)
	cb, _ := m.ChunkAt(b)
	if ca == cb {
		t.Fatal("expected a cross-chunk swap")
	}
	if r, ok := ca.DirtyRect(); !ok || !r.Contains(a) {
		t.Errorf("source chunk dirty = %v %v, want to contain %v", r, ok, a)
	}
	if r, ok := cb.DirtyRect(); !ok || !r.Contains(b) {
		t.Errorf("destination chunk dirty = %v %v, want to contain %v", r, ok, b)
	}
}

func TestSelfSwapTouchesDirtyRect(t *testing.T) {
	m := mustMap(t, 16, 4)
	p := C(5, 5)
	m.InsertOverwrite(p, 1)
	m.ResetActivity()
	if err := m.Swap(p, p); err != nil {
		t.Fatalf("Swap(p, p): %v", err)
	}
	c, _ := m.ChunkAt(p)
	if r, ok := c.DirtyRect(); !ok || r != RectAt(p) {
		t.Errorf("dirty = %v %v, want %v", r, ok, RectAt(p))
	}
}

func TestSwapInvolution(t *testing.T) {
	m := mustMap(t, 16, 4)
	a, b := C(2, 2), C(3, 1)
	m.InsertOverwrite(a, 1)
	m.InsertOverwrite(b, 2)
	if err := m.Swap(a, b); err != nil {
		t.Fatal(err)
	}
	if err := m.Swap(b, a); err != nil {
		t.Fatal(err)
	}
	if h, _ := m.Get(a); h != 1 {
		t.Errorf("a holds %d, want 1", h)
	}
	if h, _ := m.Get(b); h != 2 {
		t.Errorf("b holds %d, want 2", h)
	}
}

func TestRandomSwapsKeepInjectivity(t *testing.T) {
	m := mustMap(t, 32, 8)
	rng := rand.New(rand.NewSource(1))
	b := m.Bounds()
	randPos := func() Coord {
		return C(b.Min.X+int32(rng.Intn(32)), b.Min.Y+int32(rng.Intn(32)))
	}

	for h := 0; h < 300; h++ {
		m.InsertNoOverwrite(randPos(), h)
	}
	n := m.Len()

	for i := 0; i < 5000; i++ {
		a := randPos()
		if _, ok := m.Get(a); !ok {
			continue
		}
		dir := []Coord{Up, Down, Left, Right, UpLeft, DownRight}[rng.Intn(6)]
		_ = m.Swap(a, a.Add(dir))
	}

	if m.Len() != n {
		t.Fatalf("Len changed from %d to %d", n, m.Len())
	}
	seen := make(map[int]Coord)
	cells := make(map[Coord]bool)
	for pos, h := range m.All() {
		if prev, dup := seen[h]; dup {
			t.Fatalf("handle %d at both %v and %v", h, prev, pos)
		}
		if cells[pos] {
			t.Fatalf("cell %v yielded twice", pos)
		}
		seen[h] = pos
		cells[pos] = true
	}
	if len(seen) != n {
		t.Errorf("All yielded %d handles, want %d", len(seen), n)
	}
	for i, c := range m.Chunks() {
		if r, ok := c.DirtyRect(); ok && !c.Region().ContainsRect(r) {
			t.Errorf("chunk %d dirty %v escapes region %v", i, r, c.Region())
		}
	}
}

func TestClearWhere(t *testing.T) {
	m := mustMap(t, 16, 4)
	for i := int32(0); i < 8; i++ {
		m.InsertOverwrite(C(i-4, 0), int(i))
	}
	var hooked int
	m.SetRemoveHook(func(Coord, int) { hooked++ })

	n := m.ClearWhere(func(_ Coord, h int) bool { return h%2 == 0 })
	if n != 4 || hooked != 4 {
		t.Fatalf("ClearWhere removed %d (hook %d), want 4", n, hooked)
	}
	if m.Len() != 4 {
		t.Fatalf("Len = %d, want 4", m.Len())
	}

	m.Clear()
	if m.Len() != 0 || hooked != 8 {
		t.Errorf("after Clear Len = %d hook = %d", m.Len(), hooked)
	}
}

func TestParityGroups(t *testing.T) {
	m := mustMap(t, 32, 4)
	groups := m.ParityGroups()
	total := 0
	for g, idx := range groups {
		total += len(idx)
		for _, i := range idx {
			for _, j := range idx {
				if i == j {
					continue
				}
				ci, cj := m.Chunk(i), m.Chunk(j)
				dr, dc := ci.Row()-cj.Row(), ci.Col()-cj.Col()
				if dr >= -1 && dr <= 1 && dc >= -1 && dc <= 1 {
					t.Fatalf("group %d: chunks %d and %d are adjacent", g, i, j)
				}
			}
		}
	}
	if total != m.NumChunks() {
		t.Errorf("groups cover %d chunks, want %d", total, m.NumChunks())
	}
}
