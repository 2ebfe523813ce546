package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DoyleJ11/snake-duel/internal/lobby"
	"github.com/DoyleJ11/snake-duel/internal/session"
	"github.com/DoyleJ11/snake-duel/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrTooManyViolations = errors.New("too many protocol violations")
var ErrNotInSession = errors.New("not in a game")

// errConnClosed ends the writer once the session side has closed the Conn.
var errConnClosed = errors.New("connection closed by server")

type Options struct {
	Lobby                 *lobby.Lobby
	OutboxSize            int
	WriteTimeout          time.Duration
	ReadTimeout           time.Duration
	MaxProtocolViolations int
	OriginPatterns        []string
	Logger                *zap.Logger
}

func Handler(opts Options) http.HandlerFunc {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer wsConn.CloseNow()

		c := session.NewConn(uuid.NewString(), opts.OutboxSize)
		h := &handler{opts: opts, ws: wsConn, conn: c, logger: opts.Logger.With(zap.String("conn_id", c.ID()))}
		h.logger.Debug("client connected", zap.String("remote", r.RemoteAddr))

		err = h.serve(r.Context())
		h.cleanup()

		switch {
		case errors.Is(err, ErrTooManyViolations):
			h.logger.Info("closing misbehaving client")
			_ = wsConn.Close(websocket.StatusPolicyViolation, err.Error())
		case errors.Is(err, errConnClosed):
			_ = wsConn.Close(websocket.StatusNormalClosure, "bye")
		default:
			h.logger.Debug("client gone", zap.Error(err))
			_ = wsConn.Close(websocket.StatusNormalClosure, "bye")
		}
	}
}

type handler struct {
	opts       Options
	ws         *websocket.Conn
	conn       *session.Conn
	violations int
	logger     *zap.Logger
}

// serve runs the writer and reader until either side fails.
func (h *handler) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.writeLoop(gctx) })
	g.Go(func() error { return h.readLoop(gctx) })
	return g.Wait()
}

func (h *handler) writeLoop(ctx context.Context) error {
	var ping <-chan time.Time
	if h.opts.ReadTimeout > 0 {
		t := time.NewTicker(h.opts.ReadTimeout / 2)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-h.conn.Done():
			select {
			case msg := <-h.conn.Final():
				_ = h.write(ctx, msg)
			default:
			}
			// Closing here unblocks the reader with a normal close instead of
			// a cancelled read.
			_ = h.ws.Close(websocket.StatusNormalClosure, "bye")
			return errConnClosed

		case <-ping:
			pctx, cancel := context.WithTimeout(ctx, h.opts.ReadTimeout)
			err := h.ws.Ping(pctx)
			cancel()
			if err != nil {
				h.conn.Close()
				return fmt.Errorf("ping: %w", err)
			}

		case msg := <-h.conn.Outbox():
			if err := h.write(ctx, msg); err != nil {
				return err
			}

		case msg := <-h.conn.Final():
			// Everything already queued was produced before the final message.
			if err := h.flush(ctx); err != nil {
				return err
			}
			if err := h.write(ctx, msg); err != nil {
				return err
			}
		}
	}
}

func (h *handler) flush(ctx context.Context) error {
	for {
		select {
		case msg := <-h.conn.Outbox():
			if err := h.write(ctx, msg); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// write sends one message; a failed write closes the Conn.
func (h *handler) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := types.EncodeServer(msg)
	if err != nil {
		h.logger.Error("encoding server message", zap.String("type", string(msg.Type)), zap.Error(err))
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
	err = h.ws.Write(wctx, websocket.MessageText, payload)
	cancel()
	if err != nil {
		h.conn.Close()
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (h *handler) readLoop(ctx context.Context) error {
	for {
		typ, data, err := h.ws.Read(ctx)
		if err != nil {
			h.conn.Close()
			return err
		}
		if typ != websocket.MessageText {
			if err := h.violation(types.ErrMalformed); err != nil {
				return err
			}
			continue
		}

		cm, err := types.DecodeClient(data)
		if err == nil {
			err = h.dispatch(ctx, cm)
		}
		if err != nil {
			if err := h.violation(err); err != nil {
				return err
			}
		}
		if h.conn.Closed() {
			return errConnClosed
		}
	}
}

// dispatch routes one valid frame. Returned errors count as violations.
func (h *handler) dispatch(ctx context.Context, cm types.ClientMessage) error {
	s := h.conn.Session()

	switch cm.Type {
	case types.MsgJoinQueue:
		return h.join(ctx)

	case types.MsgSetDirection:
		if s == nil {
			return ErrNotInSession
		}
		h.conn.PutInput(cm.Direction)

	case types.MsgRequeue:
		if s == nil {
			return h.join(ctx)
		}
		s.Post(session.Action{Conn: h.conn, Kind: session.ActionRequeue})

	case types.MsgQuit:
		if s == nil || !s.Post(session.Action{Conn: h.conn, Kind: session.ActionQuit}) {
			h.conn.Close()
		}
	}
	return nil
}

// join waits for the lobby's answer. A lobby that stops before answering
// closes the Conn, as does a refused Post.
func (h *handler) join(ctx context.Context) error {
	reply := make(chan error, 1)
	if !h.opts.Lobby.Post(lobby.Join{Conn: h.conn, Reply: reply}) {
		h.conn.Close()
		return nil
	}
	select {
	case err := <-reply:
		return err
	case <-h.opts.Lobby.Done():
		h.conn.Close()
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (h *handler) violation(err error) error {
	h.violations++
	h.logger.Debug("protocol violation", zap.Int("count", h.violations), zap.Error(err))
	if h.violations > h.opts.MaxProtocolViolations {
		return fmt.Errorf("%w: %v", ErrTooManyViolations, err)
	}
	h.conn.Send(types.ErrorMessage(err))
	return nil
}

// cleanup turns the end of the transport into a disconnect event.
func (h *handler) cleanup() {
	h.conn.Close()
	if s := h.conn.Session(); s != nil {
		s.Post(session.Disconnect{Conn: h.conn})
	}
	h.opts.Lobby.Post(lobby.Leave{Conn: h.conn})
}
