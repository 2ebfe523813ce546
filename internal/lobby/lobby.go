package lobby

import (
	"context"
	"errors"
	"slices"

	"github.com/DoyleJ11/snake-duel/internal/hub"
	"github.com/DoyleJ11/snake-duel/internal/session"
	"go.uber.org/zap"
)

var ErrAlreadyQueued = errors.New("already waiting for an opponent")
var ErrAlreadyInSession = errors.New("already in a game")
var ErrConnClosed = errors.New("connection closed")

type Msg interface{ isLobbyMsg() }

// Join queues a connection, or pairs it with the longest-waiting one.
type Join struct {
	Conn  *session.Conn
	Reply chan error // optional; receives nil once queued or paired
}

func (Join) isLobbyMsg() {}

type Leave struct{ Conn *session.Conn }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Queued  []string // connection ids, oldest first
	Matches int      // sessions created since start
}

type Lobby struct {
	inbox   chan Msg
	queue   []*session.Conn
	matches int
	hub     *hub.Hub
	cfg     session.Config
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// NewLobby starts the pairing loop. cfg is the template for every session;
// its OnRequeue and OnClose hooks are owned by the lobby.
func NewLobby(parent context.Context, h *hub.Hub, cfg session.Config, logger *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:  make(chan Msg, 64), // Small buffer
		hub:    h,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	cfg.Logger = logger
	cfg.OnRequeue = func(c *session.Conn) { l.Post(Join{Conn: c}) }
	cfg.OnClose = func(s *session.Session) { h.Post(hub.RemoveSession{ID: s.ID()}) }
	l.cfg = cfg

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				err := l.join(msg.Conn)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case Leave:
				l.remove(msg.Conn)

			case GetState:
				ids := make([]string, 0, len(l.queue))
				for _, c := range l.queue {
					ids = append(ids, c.ID())
				}
				msg.Reply <- View{Queued: ids, Matches: l.matches}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// join runs only on the lobby goroutine, so dequeuing the peer and binding
// both connections into the new session happen as one step.
func (l *Lobby) join(c *session.Conn) error {
	switch {
	case c.Closed():
		return ErrConnClosed
	case c.Session() != nil:
		return ErrAlreadyInSession
	case slices.Contains(l.queue, c):
		return ErrAlreadyQueued
	}

	for len(l.queue) > 0 {
		peer := l.queue[0]
		l.queue = l.queue[1:]
		if peer.Closed() {
			continue
		}

		s, err := session.New(l.ctx, l.cfg, peer, c)
		if errors.Is(err, session.ErrConnBusy) {
			// peer got bound elsewhere in the meantime; try the next one.
			l.logger.Warn("dropping busy connection from queue", zap.String("conn_id", peer.ID()))
			continue
		}
		if err != nil {
			l.queue = slices.Insert(l.queue, 0, peer)
			l.logger.Error("creating session", zap.Error(err))
			return err
		}

		l.matches++
		l.hub.Post(hub.RegisterSession{Session: s})
		l.logger.Info("match found",
			zap.String("session_id", s.ID()),
			zap.String("p0", peer.ID()),
			zap.String("p1", c.ID()))
		return nil
	}

	l.queue = append(l.queue, c)
	l.logger.Debug("queued", zap.String("conn_id", c.ID()), zap.Int("waiting", len(l.queue)))
	return nil
}

func (l *Lobby) remove(c *session.Conn) {
	l.queue = slices.DeleteFunc(l.queue, func(q *session.Conn) bool { return q == c })
}

func (l *Lobby) shutdown() {
	clear(l.queue)
	l.queue = nil
	l.cancel()
}

// Done is closed once the lobby has stopped; unanswered Joins stay unanswered.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Post is used from session goroutines, which must not block on a stopped lobby.
func (l *Lobby) Post(m Msg) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}
