// Package scene generates deterministic starting layouts for a world.
package scene

import (
	"math/rand"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/sandfall/config"
	"github.com/pthm-cable/sandfall/movement"
	"github.com/pthm-cable/sandfall/spatial"
)

// Placement is one particle to spawn.
type Placement struct {
	Pos  spatial.Coord
	Type string
}

const empty = -1

// maxPocketAttempts bounds the rejection sampling for pocket centres.
const maxPocketAttempts = 64

// grid is the scene under construction: particle indices into cfg.Particles, row 0 at the top.
type grid struct {
	size  int
	cells []int
}

func newGrid(size int) *grid {
	g := &grid{size: size, cells: make([]int, size*size)}
	for i := range g.cells {
		g.cells[i] = empty
	}
	return g
}

func (g *grid) at(col, row int) int { return g.cells[row*g.size+col] }
func (g *grid) set(col, row, t int) { g.cells[row*g.size+col] = t }
func (g *grid) inside(col, row int) bool { return col >= 0 && row >= 0 && col < g.size && row < g.size }
func (g *grid) coord(col, row int) spatial.Coord {
	off := g.size / 2
	return spatial.C(int32(col-off), int32(off-row))
}

// Generate builds the starting layout described by cfg.Scene. The same config and seed always
// produce the same placements, ordered top row first.
func Generate(cfg *config.Config, seed int64) []Placement {
	size := cfg.World.Size
	g := newGrid(size)
	noise := opensimplex.New(seed)
	rng := rand.New(rand.NewSource(seed))

	wall := firstWall(cfg)
	terrain := wall
	if idx, ok := cfg.Derived.ParticleIndex[cfg.Scene.TerrainType]; ok {
		terrain = idx
	}

	// 1. Floor: solid wall rows along the bottom edge
	floor := min(cfg.Scene.Floor, size)
	if wall != empty {
		for row := size - floor; row < size; row++ {
			for col := 0; col < size; col++ {
				g.set(col, row, wall)
			}
		}
	}

	// 2. Terrain: 1D noise along x gives a rolling surface above the floor
	tops := make([]int, size)
	for col := range tops {
		tops[col] = size - floor
	}
	if terrain != empty && cfg.Scene.TerrainHeight > 0 {
		amplitude := cfg.Scene.TerrainHeight * float64(size)
		for col := 0; col < size; col++ {
			n := noise.Eval2(float64(col)*cfg.Scene.NoiseScale, 0)
			height := int(amplitude * (n + 1) / 2)
			top := max(size-floor-height, 0)
			tops[col] = top
			for row := top; row < size-floor; row++ {
				g.set(col, row, terrain)
			}
		}
	}

	// 3. Caves: high values of a second noise field carve the terrain back out
	if cfg.Scene.CaveThreshold > 0 {
		scale := cfg.Scene.NoiseScale * 3
		for row := 0; row < size-floor; row++ {
			for col := 0; col < size; col++ {
				if g.at(col, row) != terrain {
					continue
				}
				if noise.Eval2(float64(col)*scale+300, float64(row)*scale+300) > cfg.Scene.CaveThreshold {
					g.set(col, row, empty)
				}
			}
		}
	}

	// 4. Pockets: blobs of loose material dropped into open space above the terrain
	var centres [][2]int
	spacing := cfg.Scene.PocketMinSpacing
	for _, pocket := range cfg.Scene.Pockets {
		idx, ok := cfg.Derived.ParticleIndex[pocket.Type]
		if !ok || pocket.Radius <= 0 {
			continue
		}
		for range pocket.Count {
			col, row, ok := pickCentre(rng, g, tops, pocket.Radius, spacing, centres)
			if !ok {
				continue
			}
			centres = append(centres, [2]int{col, row})
			fillPocket(rng, g, col, row, pocket.Radius, pocket.Fill, idx)
		}
	}

	placements := make([]Placement, 0, size*floor)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			if t := g.at(col, row); t != empty {
				placements = append(placements, Placement{Pos: g.coord(col, row), Type: cfg.Particles[t].Name})
			}
		}
	}
	return placements
}

func firstWall(cfg *config.Config) int {
	for i, m := range cfg.Derived.Materials {
		if m == movement.Wall {
			return i
		}
	}
	return empty
}

// pickCentre draws a pocket centre clear of the top edge and the terrain below it, at least
// spacing away from every earlier centre.
func pickCentre(rng *rand.Rand, g *grid, tops []int, radius, spacing int, centres [][2]int) (int, int, bool) {
	minRow := radius + 2
	for range maxPocketAttempts {
		col := rng.Intn(g.size)
		maxRow := tops[col] - radius - 1
		if maxRow < minRow {
			continue
		}
		row := minRow + rng.Intn(maxRow-minRow+1)

		free := true
		for _, c := range centres {
			dc, dr := c[0]-col, c[1]-row
			if dc*dc+dr*dr < spacing*spacing {
				free = false
				break
			}
		}
		if free {
			return col, row, true
		}
	}
	return 0, 0, false
}

func fillPocket(rng *rand.Rand, g *grid, col, row, radius int, fill float64, t int) {
	r2 := radius * radius
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			c, r := col+dc, row+dr
			if dc*dc+dr*dr > r2 || !g.inside(c, r) || g.at(c, r) != empty {
				continue
			}
			if rng.Float64() < fill {
				g.set(c, r, t)
			}
		}
	}
}
