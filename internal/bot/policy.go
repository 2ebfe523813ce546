package bot

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/snake-duel/internal/engine"
	"github.com/DoyleJ11/snake-duel/pkg/types"
)

var ErrNotMatchFound = errors.New("board needs a MatchFound message")

var directions = []engine.Direction{engine.DirUp, engine.DirRight, engine.DirDown, engine.DirLeft}

// Board is a client-side picture of one match, rebuilt from server messages.
type Board struct {
	Grid   engine.Grid
	You    int
	Snakes [engine.Players]*engine.Snake
	Food   *engine.Cell
}

func NewBoard(mf types.ServerMessage) (*Board, error) {
	if mf.Type != types.MsgMatchFound || mf.Grid == nil || mf.You == nil || len(mf.Players) != engine.Players {
		return nil, ErrNotMatchFound
	}
	g, err := engine.NewGrid(mf.Grid.Width, mf.Grid.Height, mf.Grid.Walls...)
	if err != nil {
		return nil, err
	}
	b := &Board{Grid: g, You: *mf.You}
	for _, p := range mf.Players {
		b.Snakes[p.Player] = &engine.Snake{Body: slices.Clone(p.Body), Direction: p.Direction, Alive: true}
	}
	return b, nil
}

// Apply copies a TickSnapshot into the board. Ordering is the caller's job.
func (b *Board) Apply(snap types.ServerMessage) {
	for _, s := range snap.Snakes {
		if s.Player < 0 || s.Player >= engine.Players {
			continue
		}
		b.Snakes[s.Player] = &engine.Snake{
			Body:          s.Body,
			Direction:     s.Direction,
			Alive:         s.Alive,
			PendingGrowth: s.PendingGrowth,
		}
	}
	b.Food = snap.Food
}

type option struct {
	dir   engine.Direction
	safe  bool // next cell is free right now
	roomy bool // enough reachable space to fit the whole snake
	calm  bool // opponent head cannot reach the same cell this tick
	area  int
	food  int // manhattan distance to food, 0 if none
}

// Choose picks the next direction for b.You. Hard danger rules first,
// then space, then food.
func Choose(b *Board) engine.Direction {
	me := b.Snakes[b.You]
	if me == nil || !me.Alive || len(me.Body) == 0 {
		return engine.DirNone
	}
	opp := b.Snakes[1-b.You]

	var best *option
	for _, d := range directions {
		if d == me.Direction.Opposite() {
			continue
		}
		next := me.Head().Add(d.Delta())
		o := option{dir: d, safe: b.free(next)}
		if o.safe {
			o.area = b.reach(next, me.Len()+me.PendingGrowth+1)
			o.roomy = o.area > me.Len()+me.PendingGrowth
			o.calm = opp == nil || !opp.Alive || manhattan(opp.Head(), next) > 1
		}
		if b.Food != nil {
			o.food = manhattan(next, *b.Food)
		}
		if best == nil || better(o, *best, me.Direction) {
			best = &o
		}
	}
	if best == nil {
		return me.Direction
	}
	return best.dir
}

func better(a, b option, current engine.Direction) bool {
	switch {
	case a.safe != b.safe:
		return a.safe
	case a.roomy != b.roomy:
		return a.roomy
	case a.calm != b.calm:
		return a.calm
	case !a.roomy && a.area != b.area:
		return a.area > b.area
	case a.food != b.food:
		return a.food < b.food
	default:
		return a.dir == current
	}
}

// free reports whether c holds no wall and no snake body.
func (b *Board) free(c engine.Cell) bool {
	if b.Grid.Blocked(c) {
		return false
	}
	for _, s := range b.Snakes {
		if s != nil && s.Contains(c) {
			return false
		}
	}
	return true
}

// reach counts free cells connected to start, stopping at limit.
func (b *Board) reach(start engine.Cell, limit int) int {
	seen := map[engine.Cell]bool{start: true}
	queue := []engine.Cell{start}
	for len(queue) > 0 && len(seen) < limit {
		c := queue[0]
		queue = queue[1:]
		for _, d := range directions {
			n := c.Add(d.Delta())
			if !seen[n] && b.free(n) {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return min(len(seen), limit)
}

func manhattan(a, b engine.Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
