package engine

import "math/rand/v2"

// Spawner picks a food cell from the free cells of a grid.
type Spawner interface {
	Spawn(free []Cell) (Cell, bool)
}

type RandomSpawner struct {
	rng *rand.Rand
}

func NewRandomSpawner(seed uint64) *RandomSpawner {
	return &RandomSpawner{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *RandomSpawner) Spawn(free []Cell) (Cell, bool) {
	if len(free) == 0 {
		return Cell{}, false
	}
	return free[r.rng.IntN(len(free))], true
}

// SpawnerFunc adapts a plain function, mostly for tests.
type SpawnerFunc func(free []Cell) (Cell, bool)

func (f SpawnerFunc) Spawn(free []Cell) (Cell, bool) { return f(free) }

// FreeCells lists cells holding neither wall nor snake, row-major.
func FreeCells(g Grid, snakes ...*Snake) []Cell {
	taken := make(map[Cell]struct{})
	for _, s := range snakes {
		if s == nil {
			continue
		}
		for _, c := range s.Body {
			taken[c] = struct{}{}
		}
	}
	free := make([]Cell, 0, g.Width()*g.Height())
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			c := Cell{X: x, Y: y}
			if g.IsWall(c) {
				continue
			}
			if _, ok := taken[c]; ok {
				continue
			}
			free = append(free, c)
		}
	}
	return free
}
