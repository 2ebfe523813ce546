package session

import (
	"sync"
	"sync/atomic"

	"github.com/DoyleJ11/snake-duel/internal/engine"
	"github.com/DoyleJ11/snake-duel/pkg/types"
)

// Conn is the session-facing half of a client connection. The transport
// goroutines own it; a Session only holds a reference while bound.
type Conn struct {
	id        string
	outbox    chan types.ServerMessage
	final     chan types.ServerMessage // GameOver and other last words, never dropped
	input     chan engine.Direction // single slot, latest wins
	done      chan struct{}
	closeOnce sync.Once
	session   atomic.Pointer[Session]
}

func NewConn(id string, outboxSize int) *Conn {
	if outboxSize < 1 {
		outboxSize = 1
	}
	return &Conn{
		id:     id,
		outbox: make(chan types.ServerMessage, outboxSize),
		final:  make(chan types.ServerMessage, 1),
		input:  make(chan engine.Direction, 1),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Outbox is drained by the connection's writer. It is never closed; watch
// Done instead.
func (c *Conn) Outbox() <-chan types.ServerMessage { return c.outbox }

// Final carries the message that ends a game. Writers flush Outbox before
// delivering it.
func (c *Conn) Final() <-chan types.ServerMessage { return c.final }

func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Close() { c.closeOnce.Do(func() { close(c.done) }) }

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Send never blocks. It reports false when the connection is closed or its
// outbox is full.
func (c *Conn) Send(msg types.ServerMessage) bool {
	if c.Closed() {
		return false
	}
	select {
	case c.outbox <- msg:
		return true
	default:
		return false
	}
}

// SendFinal never blocks and is not limited by the outbox. An unread final
// message is replaced by the newer one.
func (c *Conn) SendFinal(msg types.ServerMessage) bool {
	if c.Closed() {
		return false
	}
	for {
		select {
		case c.final <- msg:
			return true
		default:
			select {
			case <-c.final:
			default:
			}
		}
	}
}

// PutInput replaces any unconsumed direction. Only the reader goroutine
// calls it.
func (c *Conn) PutInput(d engine.Direction) {
	for {
		select {
		case c.input <- d:
			return
		default:
			select {
			case <-c.input:
			default:
			}
		}
	}
}

// TakeInput returns the pending direction, or DirNone.
func (c *Conn) TakeInput() engine.Direction {
	select {
	case d := <-c.input:
		return d
	default:
		return engine.DirNone
	}
}

// Session returns the session this connection is bound to, if any.
func (c *Conn) Session() *Session { return c.session.Load() }

func (c *Conn) bind(s *Session) bool { return c.session.CompareAndSwap(nil, s) }

func (c *Conn) unbind(s *Session) { c.session.CompareAndSwap(s, nil) }
