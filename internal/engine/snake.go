package engine

import (
	"errors"
	"slices"
)

var ErrUnknownDirection = errors.New("unknown direction")

type Direction string

const (
	DirNone  Direction = ""
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirUp, DirDown, DirLeft, DirRight:
		return d, nil
	default:
		return DirNone, ErrUnknownDirection
	}
}

func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	}
	return DirNone
}

// Delta is the one-cell step for d; y grows downwards.
func (d Direction) Delta() Cell {
	switch d {
	case DirUp:
		return Cell{Y: -1}
	case DirDown:
		return Cell{Y: 1}
	case DirLeft:
		return Cell{X: -1}
	case DirRight:
		return Cell{X: 1}
	}
	return Cell{}
}

type Snake struct {
	Body          []Cell    `json:"body"` // head first
	Direction     Direction `json:"direction"`
	Alive         bool      `json:"alive"`
	PendingGrowth int       `json:"pending_growth"`
}

// NewSnake lays out length cells with the body trailing away from dir.
func NewSnake(head Cell, dir Direction, length int) *Snake {
	if length < 1 {
		length = 1
	}
	body := make([]Cell, length)
	back := dir.Opposite().Delta()
	body[0] = head
	for i := 1; i < length; i++ {
		body[i] = body[i-1].Add(back)
	}
	return &Snake{Body: body, Direction: dir, Alive: true}
}

func (s *Snake) Head() Cell { return s.Body[0] }
func (s *Snake) Len() int   { return len(s.Body) }

func (s *Snake) Contains(c Cell) bool { return slices.Contains(s.Body, c) }

// Turn applies d unless it is empty or reverses the current heading.
func (s *Snake) Turn(d Direction) bool {
	if d == DirNone || d == s.Direction || d == s.Direction.Opposite() {
		return false
	}
	s.Direction = d
	return true
}

func (s *Snake) Clone() *Snake {
	c := *s
	c.Body = slices.Clone(s.Body)
	return &c
}
