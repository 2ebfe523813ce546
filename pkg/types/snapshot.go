package types

import (
	"slices"

	"github.com/DoyleJ11/snake-duel/internal/engine"
)

type GridInfo struct {
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Walls  []engine.Cell `json:"walls"`
}

type PlayerInfo struct {
	Player    int              `json:"player"`
	Color     string           `json:"color"`
	Body      []engine.Cell    `json:"body"`
	Direction engine.Direction `json:"direction"`
}

type SnakeState struct {
	Player        int              `json:"player"`
	Body          []engine.Cell    `json:"body"`
	Direction     engine.Direction `json:"direction"`
	Alive         bool             `json:"alive"`
	PendingGrowth int              `json:"pending_growth"`
}

func MatchFound(sessionID string, you int, s engine.State, colors [engine.Players]string) ServerMessage {
	players := make([]PlayerInfo, 0, engine.Players)
	for i, sn := range s.Snakes {
		players = append(players, PlayerInfo{
			Player:    i,
			Color:     colors[i],
			Body:      slices.Clone(sn.Body),
			Direction: sn.Direction,
		})
	}
	return ServerMessage{
		Type:      MsgMatchFound,
		SessionID: sessionID,
		You:       &you,
		Grid:      &GridInfo{Width: s.Grid.Width(), Height: s.Grid.Height(), Walls: s.Grid.Walls()},
		Players:   players,
	}
}

// TickSnapshot copies everything it needs; the result is safe to hand to
// another goroutine.
func TickSnapshot(s engine.State) ServerMessage {
	snakes := make([]SnakeState, 0, engine.Players)
	for i, sn := range s.Snakes {
		snakes = append(snakes, SnakeState{
			Player:        i,
			Body:          slices.Clone(sn.Body),
			Direction:     sn.Direction,
			Alive:         sn.Alive,
			PendingGrowth: sn.PendingGrowth,
		})
	}
	var food *engine.Cell
	if s.Food != nil {
		f := *s.Food
		food = &f
	}
	return ServerMessage{Type: MsgTickSnapshot, Tick: s.Tick, Snakes: snakes, Food: food}
}

// TickGate is the client-side ordering rule: a tick-tagged message is applied
// only if its tick is strictly greater than the last one applied.
type TickGate struct {
	last    uint64
	applied bool
}

func (g *TickGate) Accept(tick uint64) bool {
	if g.applied && tick <= g.last {
		return false
	}
	g.last = tick
	g.applied = true
	return true
}

func (g *TickGate) Last() (uint64, bool) { return g.last, g.applied }

// Reset starts a new match.
func (g *TickGate) Reset() { *g = TickGate{} }
