package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/snake-duel/internal/engine"
	"github.com/DoyleJ11/snake-duel/pkg/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

type Config struct {
	URL          string        // websocket endpoint, e.g. ws://localhost:8080/ws
	Games        int           // stop after this many games; 0 plays until ctx ends
	WriteTimeout time.Duration // per-frame write deadline
	Logger       *zap.Logger
}

// Record tallies finished games by result.
type Record map[engine.Result]int

// Run plays games over one connection until cfg.Games are done or ctx ends.
func Run(ctx context.Context, cfg Config) (Record, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}

	conn, _, err := websocket.Dial(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	defer conn.CloseNow()

	c := &client{cfg: cfg, ws: conn, record: Record{}, logger: cfg.Logger}
	err = c.play(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		_ = conn.Close(websocket.StatusGoingAway, "bot stopping")
		return c.record, nil
	}
	return c.record, err
}

type client struct {
	cfg    Config
	ws     *websocket.Conn
	board  *Board
	gate   types.TickGate
	steer  engine.Direction
	played int
	record Record
	logger *zap.Logger
}

func (c *client) play(ctx context.Context) error {
	if err := c.send(ctx, types.ClientMessage{Type: types.MsgJoinQueue}); err != nil {
		return err
	}

	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		msg, err := types.DecodeServer(data)
		if err != nil {
			c.logger.Warn("ignoring server frame", zap.Error(err))
			continue
		}

		switch msg.Type {
		case types.MsgMatchFound:
			board, err := NewBoard(msg)
			if err != nil {
				return err
			}
			c.board = board
			c.gate.Reset()
			c.steer = board.Snakes[board.You].Direction
			c.logger.Info("match found", zap.String("session_id", msg.SessionID), zap.Int("you", board.You))

		case types.MsgTickSnapshot:
			if c.board == nil {
				continue
			}
			if !c.gate.Accept(msg.Tick) {
				last, _ := c.gate.Last()
				c.logger.Debug("dropping stale snapshot", zap.Uint64("tick", msg.Tick), zap.Uint64("last", last))
				continue
			}
			c.board.Apply(msg)
			if err := c.move(ctx); err != nil {
				return err
			}

		case types.MsgGameOver:
			c.played++
			c.record[msg.Result]++
			c.board = nil
			c.logger.Info("game over", zap.String("result", string(msg.Result)), zap.Uint64("tick", msg.Tick))

			if c.cfg.Games > 0 && c.played >= c.cfg.Games {
				return c.send(ctx, types.ClientMessage{Type: types.MsgQuit})
			}
			if err := c.send(ctx, types.ClientMessage{Type: types.MsgRequeue}); err != nil {
				return err
			}

		case types.MsgError:
			c.logger.Warn("server error", zap.String("error", msg.Error))
		}
	}
}

func (c *client) move(ctx context.Context) error {
	me := c.board.Snakes[c.board.You]
	if me == nil || !me.Alive {
		return nil
	}
	d := Choose(c.board)
	if d == engine.DirNone || d == me.Direction || d == c.steer {
		return nil
	}
	c.steer = d
	return c.send(ctx, types.ClientMessage{Type: types.MsgSetDirection, Direction: d})
}

func (c *client) send(ctx context.Context, cm types.ClientMessage) error {
	data, err := types.EncodeClient(cm)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	if err := c.ws.Write(wctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write %s: %w", cm.Type, err)
	}
	return nil
}
