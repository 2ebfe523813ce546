package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/snake-duel/internal/engine"
)

// Client -> Server
// JoinQueue:    {}
// SetDirection: direction: "up" | "down" | "left" | "right"
// Requeue:      {}
// Quit:         {}

// Server -> Client
// MatchFound:   session_id, you, grid, players
// TickSnapshot: tick, snakes, food
// GameOver:     tick, result: "Won" | "Lost" | "Draw" | "OpponentDisconnected"
// Error:        error

type MessageType string

const (
	MsgJoinQueue    MessageType = "JoinQueue"
	MsgSetDirection MessageType = "SetDirection"
	MsgRequeue      MessageType = "Requeue"
	MsgQuit         MessageType = "Quit"

	MsgMatchFound   MessageType = "MatchFound"
	MsgTickSnapshot MessageType = "TickSnapshot"
	MsgGameOver     MessageType = "GameOver"
	MsgError        MessageType = "Error"
)

var ErrMalformed = errors.New("malformed message")
var ErrUnknownType = errors.New("unknown message type")

type ClientMessage struct {
	Type      MessageType      `json:"type"`
	Direction engine.Direction `json:"direction,omitempty"`
}

type ServerMessage struct {
	Type      MessageType   `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	You       *int          `json:"you,omitempty"`
	Grid      *GridInfo     `json:"grid,omitempty"`
	Players   []PlayerInfo  `json:"players,omitempty"`
	Tick      uint64        `json:"tick"`
	Snakes    []SnakeState  `json:"snakes,omitempty"`
	Food      *engine.Cell  `json:"food,omitempty"`
	Result    engine.Result `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// DecodeClient parses and validates one inbound frame.
func DecodeClient(data []byte) (ClientMessage, error) {
	var cm ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch cm.Type {
	case MsgJoinQueue, MsgRequeue, MsgQuit:
		cm.Direction = engine.DirNone
		return cm, nil
	case MsgSetDirection:
		d, err := engine.ParseDirection(string(cm.Direction))
		if err != nil {
			return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		cm.Direction = d
		return cm, nil
	default:
		return ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownType, cm.Type)
	}
}

func EncodeClient(cm ClientMessage) ([]byte, error) { return json.Marshal(cm) }

func DecodeServer(data []byte) (ServerMessage, error) {
	var sm ServerMessage
	if err := json.Unmarshal(data, &sm); err != nil {
		return ServerMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch sm.Type {
	case MsgMatchFound, MsgTickSnapshot, MsgGameOver, MsgError:
		return sm, nil
	default:
		return ServerMessage{}, fmt.Errorf("%w: %q", ErrUnknownType, sm.Type)
	}
}

func EncodeServer(sm ServerMessage) ([]byte, error) { return json.Marshal(sm) }

func ErrorMessage(err error) ServerMessage {
	return ServerMessage{Type: MsgError, Error: err.Error()}
}

func GameOver(tick uint64, result engine.Result) ServerMessage {
	return ServerMessage{Type: MsgGameOver, Tick: tick, Result: result}
}
