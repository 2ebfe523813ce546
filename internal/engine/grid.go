package engine

import "errors"

var ErrGridTooSmall = errors.New("grid too small")

// minGridSide leaves room for a bordered grid with one playable cell.
const minGridSide = 3

type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) Add(d Cell) Cell { return Cell{X: c.X + d.X, Y: c.Y + d.Y} }

// Grid is immutable once built; copies share the wall set read-only.
type Grid struct {
	width  int
	height int
	walls  map[Cell]struct{}
}

func NewGrid(width, height int, walls ...Cell) (Grid, error) {
	if width < minGridSide || height < minGridSide {
		return Grid{}, ErrGridTooSmall
	}
	g := Grid{width: width, height: height, walls: make(map[Cell]struct{}, len(walls))}
	for _, w := range walls {
		if g.IsInBounds(w) {
			g.walls[w] = struct{}{}
		}
	}
	return g, nil
}

// NewBorderedGrid walls off the outer ring of cells.
func NewBorderedGrid(width, height int) (Grid, error) {
	if width < minGridSide || height < minGridSide {
		return Grid{}, ErrGridTooSmall
	}
	walls := make([]Cell, 0, 2*(width+height))
	for x := 0; x < width; x++ {
		walls = append(walls, Cell{X: x, Y: 0}, Cell{X: x, Y: height - 1})
	}
	for y := 1; y < height-1; y++ {
		walls = append(walls, Cell{X: 0, Y: y}, Cell{X: width - 1, Y: y})
	}
	return NewGrid(width, height, walls...)
}

func (g Grid) Width() int  { return g.width }
func (g Grid) Height() int { return g.height }

func (g Grid) IsInBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

func (g Grid) IsWall(c Cell) bool {
	_, ok := g.walls[c]
	return ok
}

// Walls lists wall cells in row-major order.
func (g Grid) Walls() []Cell {
	out := make([]Cell, 0, len(g.walls))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if c := (Cell{X: x, Y: y}); g.IsWall(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// Blocked reports whether c can never hold a snake or food.
func (g Grid) Blocked(c Cell) bool {
	return !g.IsInBounds(c) || g.IsWall(c)
}
