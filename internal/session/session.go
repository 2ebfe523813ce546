package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/DoyleJ11/snake-duel/internal/engine"
	"github.com/DoyleJ11/snake-duel/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrConnBusy = errors.New("connection already in a session")
var ErrGameInProgress = errors.New("game still in progress")
var ErrSessionAborted = errors.New("session aborted")

type State string

const (
	StateWaiting State = "Waiting"
	StateRunning State = "Running"
	StateEnded   State = "Ended"
)

type Msg interface{ isSessionMsg() }

// Disconnect reports a transport failure or close on a bound connection.
type Disconnect struct{ Conn *Conn }

func (Disconnect) isSessionMsg() {}

type ActionKind string

const (
	ActionRequeue ActionKind = "requeue"
	ActionQuit    ActionKind = "quit"
)

type Action struct {
	Conn *Conn
	Kind ActionKind
}

func (Action) isSessionMsg() {}

// GetState is for tests and diagnostics; the reply is a deep copy.
type GetState struct{ Reply chan View }

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type View struct {
	ID        string
	State     State
	Game      engine.State
	Connected [engine.Players]bool
}

type Config struct {
	Width            int
	Height           int
	InitialLength    int
	TickInterval     time.Duration
	StartDelay       time.Duration
	StallTimeout     time.Duration
	EndedIdleTimeout time.Duration
	// NewSpawner is called once per session; nil means a time-seeded random spawner.
	NewSpawner func() engine.Spawner
	Logger     *zap.Logger
	// OnRequeue hands a released connection back to the lobby.
	OnRequeue func(*Conn)
	// OnClose runs once, after the loop has released every connection.
	OnClose func(*Session)
}

type seat struct {
	conn         *Conn
	stalledSince time.Time
}

type Session struct {
	id      string
	cfg     Config
	inbox   chan Msg
	seats   [engine.Players]seat
	colors  [engine.Players]string
	game    engine.State
	spawner engine.Spawner
	state   State
	ticker  *time.Ticker
	idle    *time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	logger  *zap.Logger
}

// New binds both connections and starts the session in Waiting. Binding
// fails if either connection already belongs to a session.
func New(parent context.Context, cfg Config, a, b *Conn) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Session{
		id:    uuid.NewString(),
		cfg:   cfg,
		inbox: make(chan Msg, 16),
		state: StateWaiting,
		done:  make(chan struct{}),
	}
	s.logger = cfg.Logger.With(zap.String("session_id", s.id))

	if a == b || !a.bind(s) {
		return nil, ErrConnBusy
	}
	if !b.bind(s) {
		a.unbind(s)
		return nil, ErrConnBusy
	}

	if cfg.NewSpawner != nil {
		s.spawner = cfg.NewSpawner()
	} else {
		s.spawner = engine.NewRandomSpawner(uint64(time.Now().UnixNano()))
	}
	game, err := engine.NewDuel(cfg.Width, cfg.Height, cfg.InitialLength, s.spawner)
	if err != nil {
		a.unbind(s)
		b.unbind(s)
		return nil, err
	}
	s.game = game

	for i, c := range []*Conn{a, b} {
		// Stale input from a previous game must not steer this one.
		c.TakeInput()
		s.seats[i].conn = c
	}
	perm := rand.Perm(len(engine.Palette))
	s.colors = [engine.Players]string{engine.Palette[perm[0]], engine.Palette[perm[1]]}

	s.ctx, s.cancel = context.WithCancel(parent)
	go s.loop()
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Done is closed once the loop has exited and released all connections.
func (s *Session) Done() <-chan struct{} { return s.done }

// Post delivers m unless the session has already finished.
func (s *Session) Post(m Msg) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- m:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) Stop() { s.cancel() }

func (s *Session) loop() {
	defer s.finish()
	defer s.recoverPanic()

	for i := range s.seats {
		s.send(i, types.MatchFound(s.id, i, s.game, s.colors))
	}
	s.logger.Info("session waiting", zap.String("p0", s.seats[0].conn.ID()), zap.String("p1", s.seats[1].conn.ID()))

	start := time.NewTimer(s.cfg.StartDelay)
	defer start.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("session stopped", zap.String("state", string(s.state)))
			s.releaseAll()
			return

		case <-start.C:
			if s.state == StateWaiting {
				s.run()
			}

		case <-tickC(s.ticker):
			s.tick()

		case <-timerC(s.idle):
			s.logger.Info("releasing idle players")
			s.releaseAll()

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Disconnect:
				if i, ok := s.seatOf(msg.Conn); ok {
					s.disconnect(i, "transport closed")
				}

			case Action:
				s.handleAction(msg)

			case GetState:
				msg.Reply <- s.view()

			case Shutdown:
				s.releaseAll()
				return
			}
		}

		if s.seats[0].conn == nil && s.seats[1].conn == nil {
			return
		}
	}
}

func (s *Session) run() {
	s.state = StateRunning
	s.ticker = time.NewTicker(s.cfg.TickInterval)
	s.logger.Info("session running")
	s.broadcast(types.TickSnapshot(s.game))
}

func (s *Session) tick() {
	var in engine.Inputs
	for i, st := range s.seats {
		if st.conn != nil {
			in[i] = st.conn.TakeInput()
		}
	}

	events, next, err := engine.Step(s.game, in, s.spawner)
	if err != nil {
		s.logger.Warn("step rejected", zap.Error(err))
		return
	}
	s.game = next

	for _, e := range engine.EventsOf(events, engine.EvtSnakeDied) {
		s.logger.Debug("snake died", zap.Int("player", e.Player), zap.String("cause", string(e.Cause)), zap.Uint64("tick", next.Tick))
	}

	s.broadcast(types.TickSnapshot(next))
	if engine.ContainsEvent(events, engine.EvtGameOver) {
		s.end(next.ResultFor)
	}
}

// broadcast sends to every bound seat; seats stalled past the timeout are
// disconnected after the whole round has been delivered.
func (s *Session) broadcast(msg types.ServerMessage) {
	var stalled []int
	for i := range s.seats {
		if !s.send(i, msg) && s.seats[i].conn != nil {
			stalled = append(stalled, i)
		}
	}
	for _, i := range stalled {
		s.disconnect(i, "outbox stalled")
	}
}

// send reports false only when the seat has stalled for longer than
// StallTimeout or its connection is already closed.
func (s *Session) send(i int, msg types.ServerMessage) bool {
	st := &s.seats[i]
	if st.conn == nil {
		return true
	}
	if st.conn.Closed() {
		return false
	}
	if st.conn.Send(msg) {
		st.stalledSince = time.Time{}
		return true
	}
	now := time.Now()
	if st.stalledSince.IsZero() {
		st.stalledSince = now
		return true
	}
	return now.Sub(st.stalledSince) <= s.cfg.StallTimeout
}

func (s *Session) disconnect(i int, reason string) {
	conn := s.seats[i].conn
	if conn == nil {
		return
	}
	s.seats[i].conn = nil
	conn.unbind(s)
	conn.Close()
	s.logger.Info("player disconnected", zap.String("conn_id", conn.ID()), zap.String("reason", reason), zap.String("state", string(s.state)))

	if s.state == StateEnded {
		return
	}
	if _, next, err := engine.Forfeit(s.game, i); err == nil {
		s.game = next
	}
	s.end(func(int) engine.Result { return engine.ResultOpponentDisconnected })
}

func (s *Session) handleAction(a Action) {
	i, ok := s.seatOf(a.Conn)
	if !ok {
		return
	}

	switch a.Kind {
	case ActionQuit:
		s.disconnect(i, "quit")

	case ActionRequeue:
		if s.state != StateEnded {
			a.Conn.Send(types.ErrorMessage(ErrGameInProgress))
			return
		}
		s.release(i)
		if s.cfg.OnRequeue != nil {
			s.cfg.OnRequeue(a.Conn)
		}
	}
}

// end moves to Ended and tells each remaining player its result.
func (s *Session) end(result func(player int) engine.Result) {
	if s.state == StateEnded {
		return
	}
	s.state = StateEnded
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}

	remaining := 0
	for i := range s.seats {
		if s.seats[i].conn == nil {
			continue
		}
		remaining++
		r := result(i)
		s.seats[i].conn.SendFinal(types.GameOver(s.game.Tick, r))
		s.logger.Info("game over", zap.Int("player", i), zap.String("result", string(r)), zap.Uint64("tick", s.game.Tick))
	}
	if remaining == 0 {
		s.logger.Info("game over, no contest", zap.Uint64("tick", s.game.Tick))
		return
	}
	s.idle = time.NewTimer(s.cfg.EndedIdleTimeout)
}

func (s *Session) release(i int) {
	if c := s.seats[i].conn; c != nil {
		s.seats[i].conn = nil
		c.unbind(s)
	}
}

func (s *Session) releaseAll() {
	for i := range s.seats {
		s.release(i)
	}
}

func (s *Session) seatOf(c *Conn) (int, bool) {
	for i, st := range s.seats {
		if c != nil && st.conn == c {
			return i, true
		}
	}
	return 0, false
}

func (s *Session) view() View {
	v := View{ID: s.id, State: s.state, Game: s.game.Clone()}
	for i, st := range s.seats {
		v.Connected[i] = st.conn != nil
	}
	return v
}

func (s *Session) recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	s.logger.Error("session loop panic", zap.Any("panic", r), zap.Stack("stack"))
	for i := range s.seats {
		if c := s.seats[i].conn; c != nil {
			c.SendFinal(types.ErrorMessage(ErrSessionAborted))
		}
	}
	s.releaseAll()
}

func (s *Session) finish() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.idle != nil {
		s.idle.Stop()
	}
	s.cancel()
	close(s.done)
	if s.cfg.OnClose != nil {
		s.cfg.OnClose(s)
	}
	s.logger.Debug("session closed")
}

func tickC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
