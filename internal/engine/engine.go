package engine

import "errors"

var ErrGameAlreadyEnded = errors.New("game already ended")
var ErrInvalidSpawn = errors.New("invalid spawn")
var ErrUnknownPlayer = errors.New("unknown player")

// Players is fixed: a duel.
const Players = 2

// NoWinner marks a draw or a game still in progress.
const NoWinner = -1

type Status string

const (
	StatusRunning Status = "running"
	StatusEnded   Status = "ended"
)

type Result string

const (
	ResultWon                  Result = "Won"
	ResultLost                 Result = "Lost"
	ResultDraw                 Result = "Draw"
	ResultOpponentDisconnected Result = "OpponentDisconnected"
)

type DeathCause string

const (
	CauseWall         DeathCause = "wall"
	CauseOutOfBounds  DeathCause = "out-of-bounds"
	CauseSelf         DeathCause = "self"
	CauseHeadOn       DeathCause = "head-on"
	CauseOpponentBody DeathCause = "opponent-body"
	CauseDisconnect   DeathCause = "disconnect"
)

type EventType string

const (
	EvtSnakeDied   EventType = "SnakeDied"
	EvtFoodEaten   EventType = "FoodEaten"
	EvtFoodSpawned EventType = "FoodSpawned"
	EvtGameOver    EventType = "GameOver"
)

type Event struct {
	Type   EventType
	Player int
	Cell   Cell
	Cause  DeathCause
}

// Inputs holds the latest buffered direction per player; DirNone keeps the
// current heading.
type Inputs [Players]Direction

type State struct {
	Grid   Grid
	Snakes [Players]*Snake
	Food   *Cell
	Tick   uint64
	Status Status
	Winner int
}

// NewState validates the spawns and places the first food. A full grid
// leaves Food nil; Step keeps retrying.
func NewState(g Grid, snakes [Players]*Snake, sp Spawner) ([]Event, State, error) {
	seen := make(map[Cell]bool)
	for _, sn := range snakes {
		if sn == nil || len(sn.Body) == 0 {
			return nil, State{}, ErrInvalidSpawn
		}
		for _, c := range sn.Body {
			if g.Blocked(c) || seen[c] {
				return nil, State{}, ErrInvalidSpawn
			}
			seen[c] = true
		}
	}

	s := State{Grid: g, Status: StatusRunning, Winner: NoWinner}
	for i, sn := range snakes {
		s.Snakes[i] = sn.Clone()
		s.Snakes[i].Alive = true
	}
	return spawnFood(&s, sp), s, nil
}

// Step resolves one tick:
//
//	turns        -> reversals dropped, DirNone keeps heading
//	candidates   -> every alive head's next cell, nothing mutated yet
//	judgement    -> against the pre-move bodies of both snakes
//	commit       -> dead snakes freeze, survivors move and maybe eat
//	food, tick   -> Tick++, terminal check, respawn if missing
func Step(s State, in Inputs, sp Spawner) ([]Event, State, error) {
	if s.Status == StatusEnded {
		return nil, s, ErrGameAlreadyEnded
	}

	next := s.Clone()
	var events []Event

	var moving [Players]bool
	var cand [Players]Cell
	for i, sn := range next.Snakes {
		if sn == nil || !sn.Alive {
			continue
		}
		sn.Turn(in[i])
		moving[i] = true
		cand[i] = sn.Head().Add(sn.Direction.Delta())
	}

	// Nothing has moved yet, so next.Snakes still holds the pre-move bodies.
	var dies [Players]DeathCause
	for i := range next.Snakes {
		if moving[i] {
			dies[i] = judge(next, i, cand, moving)
		}
	}

	for i, sn := range next.Snakes {
		if !moving[i] {
			continue
		}
		if dies[i] != "" {
			sn.Alive = false
			events = append(events, Event{Type: EvtSnakeDied, Player: i, Cell: cand[i], Cause: dies[i]})
			continue
		}

		sn.Body = append([]Cell{cand[i]}, sn.Body...)
		if sn.PendingGrowth > 0 {
			sn.PendingGrowth--
		} else {
			sn.Body = sn.Body[:len(sn.Body)-1]
		}

		if next.Food != nil && *next.Food == cand[i] {
			sn.PendingGrowth++
			next.Food = nil
			events = append(events, Event{Type: EvtFoodEaten, Player: i, Cell: cand[i]})
		}
	}

	next.Tick++
	events = append(events, settle(&next)...)
	if next.Status == StatusRunning {
		events = append(events, spawnFood(&next, sp)...)
	}
	return events, next, nil
}

// Forfeit ends the game for a departed player. If the opponent is still
// alive it wins; otherwise the game ends without a winner.
func Forfeit(s State, player int) ([]Event, State, error) {
	if player < 0 || player >= Players {
		return nil, s, ErrUnknownPlayer
	}
	if s.Status == StatusEnded {
		return nil, s, ErrGameAlreadyEnded
	}

	next := s.Clone()
	var events []Event
	if sn := next.Snakes[player]; sn != nil && sn.Alive {
		sn.Alive = false
		events = append(events, Event{Type: EvtSnakeDied, Player: player, Cell: sn.Head(), Cause: CauseDisconnect})
	}
	return append(events, settle(&next)...), next, nil
}

// ResultFor reports the final outcome from one player's point of view.
func (s State) ResultFor(player int) Result {
	switch {
	case s.Winner == NoWinner:
		return ResultDraw
	case s.Winner == player:
		return ResultWon
	default:
		return ResultLost
	}
}

func (s State) Clone() State {
	c := s
	for i, sn := range s.Snakes {
		if sn != nil {
			c.Snakes[i] = sn.Clone()
		}
	}
	if s.Food != nil {
		f := *s.Food
		c.Food = &f
	}
	return c
}

func (s State) Alive() []int {
	var alive []int
	for i, sn := range s.Snakes {
		if sn != nil && sn.Alive {
			alive = append(alive, i)
		}
	}
	return alive
}

func judge(s State, i int, cand [Players]Cell, moving [Players]bool) DeathCause {
	c := cand[i]
	switch {
	case !s.Grid.IsInBounds(c):
		return CauseOutOfBounds
	case s.Grid.IsWall(c):
		return CauseWall
	case s.Snakes[i].Contains(c):
		return CauseSelf
	}

	for j, other := range s.Snakes {
		if j == i || other == nil || !other.Alive {
			continue
		}
		if moving[j] && cand[j] == c {
			return CauseHeadOn
		}
		if other.Contains(c) {
			return CauseOpponentBody
		}
	}
	return ""
}

func settle(s *State) []Event {
	alive := s.Alive()
	switch len(alive) {
	case 0:
		s.Status = StatusEnded
		s.Winner = NoWinner
	case 1:
		s.Status = StatusEnded
		s.Winner = alive[0]
	default:
		return nil
	}
	return []Event{{Type: EvtGameOver, Player: s.Winner}}
}

func spawnFood(s *State, sp Spawner) []Event {
	if s.Food != nil || sp == nil {
		return nil
	}
	cell, ok := sp.Spawn(FreeCells(s.Grid, s.Snakes[:]...))
	if !ok {
		return nil
	}
	s.Food = &cell
	return []Event{{Type: EvtFoodSpawned, Player: NoWinner, Cell: cell}}
}
