package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/snake-duel/internal/engine"
	"github.com/DoyleJ11/snake-duel/internal/hub"
	"github.com/DoyleJ11/snake-duel/internal/lobby"
	"github.com/DoyleJ11/snake-duel/internal/session"
	"github.com/DoyleJ11/snake-duel/pkg/types"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newServer(t *testing.T, maxViolations int) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := zaptest.NewLogger(t)

	h := hub.NewHub(ctx, logger)
	l := lobby.NewLobby(ctx, h, session.Config{
		Width: 40, Height: 40, InitialLength: 3,
		TickInterval:     50 * time.Millisecond,
		StallTimeout:     time.Second,
		EndedIdleTimeout: time.Hour,
	}, logger)

	srv := httptest.NewServer(Handler(Options{
		Lobby:                 l,
		OutboxSize:            16,
		WriteTimeout:          time.Second,
		ReadTimeout:           10 * time.Second,
		MaxProtocolViolations: maxViolations,
		Logger:                logger,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func send(t *testing.T, c *websocket.Conn, cm types.ClientMessage) {
	t.Helper()
	data, err := types.EncodeClient(cm)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

func recvType(t *testing.T, c *websocket.Conn, want types.MessageType, within time.Duration) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err, "waiting for %s", want)
		msg, err := types.DecodeServer(data)
		require.NoError(t, err)
		if msg.Type == want {
			return msg
		}
	}
}

func TestHandler_MatchAndPlay(t *testing.T) {
	srv := newServer(t, 5)
	a, b := dial(t, srv), dial(t, srv)

	send(t, a, types.ClientMessage{Type: types.MsgJoinQueue})
	send(t, b, types.ClientMessage{Type: types.MsgJoinQueue})

	mfA := recvType(t, a, types.MsgMatchFound, 2*time.Second)
	mfB := recvType(t, b, types.MsgMatchFound, 2*time.Second)
	assert.Equal(t, mfA.SessionID, mfB.SessionID)
	assert.NotEqual(t, *mfA.You, *mfB.You)
	require.NotNil(t, mfA.Grid)
	assert.Equal(t, 40, mfA.Grid.Width)

	send(t, a, types.ClientMessage{Type: types.MsgSetDirection, Direction: engine.DirUp})

	var gate types.TickGate
	for range 3 {
		snap := recvType(t, a, types.MsgTickSnapshot, 2*time.Second)
		require.True(t, gate.Accept(snap.Tick), "tick %d out of order", snap.Tick)
		require.Len(t, snap.Snakes, 2)
	}
}

func TestHandler_DisconnectEndsOpponentsGame(t *testing.T) {
	srv := newServer(t, 5)
	a, b := dial(t, srv), dial(t, srv)

	send(t, a, types.ClientMessage{Type: types.MsgJoinQueue})
	send(t, b, types.ClientMessage{Type: types.MsgJoinQueue})
	_ = recvType(t, a, types.MsgMatchFound, 2*time.Second)
	_ = recvType(t, b, types.MsgMatchFound, 2*time.Second)

	require.NoError(t, a.Close(websocket.StatusNormalClosure, "leaving"))

	over := recvType(t, b, types.MsgGameOver, 2*time.Second)
	assert.Equal(t, engine.ResultOpponentDisconnected, over.Result)

	// b can go straight back into the queue and meet a new opponent.
	send(t, b, types.ClientMessage{Type: types.MsgRequeue})
	c := dial(t, srv)
	send(t, c, types.ClientMessage{Type: types.MsgJoinQueue})
	mfB := recvType(t, b, types.MsgMatchFound, 2*time.Second)
	mfC := recvType(t, c, types.MsgMatchFound, 2*time.Second)
	assert.Equal(t, mfB.SessionID, mfC.SessionID)
}

func TestHandler_ProtocolErrors(t *testing.T) {
	srv := newServer(t, 5)
	c := dial(t, srv)

	send(t, c, types.ClientMessage{Type: types.MsgSetDirection, Direction: engine.DirUp})
	msg := recvType(t, c, types.MsgError, time.Second)
	assert.Equal(t, ErrNotInSession.Error(), msg.Error)

	send(t, c, types.ClientMessage{Type: types.MsgJoinQueue})
	send(t, c, types.ClientMessage{Type: types.MsgJoinQueue})
	msg = recvType(t, c, types.MsgError, time.Second)
	assert.Equal(t, lobby.ErrAlreadyQueued.Error(), msg.Error)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"type":"Teleport"}`)))
	msg = recvType(t, c, types.MsgError, time.Second)
	assert.Contains(t, msg.Error, types.ErrUnknownType.Error())
}

func TestHandler_ClosesAfterTooManyViolations(t *testing.T) {
	srv := newServer(t, 2)
	c := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for range 3 {
		require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`not json`)))
	}

	for {
		_, _, err := c.Read(ctx)
		if err != nil {
			assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
			return
		}
	}
}

func TestHandler_QuitWhileQueuedClosesConnection(t *testing.T) {
	srv := newServer(t, 5)
	c := dial(t, srv)

	send(t, c, types.ClientMessage{Type: types.MsgJoinQueue})
	send(t, c, types.ClientMessage{Type: types.MsgQuit})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestWriter_FlushesQueueBeforeFinalMessage(t *testing.T) {
	c := session.NewConn("slow", 2)
	require.True(t, c.Send(types.ServerMessage{Type: types.MsgTickSnapshot, Tick: 1}))
	require.True(t, c.Send(types.ServerMessage{Type: types.MsgTickSnapshot, Tick: 2}))
	require.False(t, c.Send(types.ServerMessage{Type: types.MsgTickSnapshot, Tick: 3}), "outbox should be full")
	require.True(t, c.SendFinal(types.GameOver(3, engine.ResultWon)))

	written := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := websocket.Accept(w, r, nil)
		if err != nil {
			written <- err
			return
		}
		defer wsConn.CloseNow()
		h := &handler{opts: Options{WriteTimeout: time.Second}, ws: wsConn, conn: c, logger: zap.NewNop()}
		written <- h.writeLoop(r.Context())
	}))
	t.Cleanup(srv.Close)
	client := dial(t, srv)

	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rcancel()
	var got []types.MessageType
	for range 3 {
		_, data, err := client.Read(rctx)
		require.NoError(t, err)
		msg, err := types.DecodeServer(data)
		require.NoError(t, err)
		got = append(got, msg.Type)
	}
	assert.Equal(t, []types.MessageType{types.MsgTickSnapshot, types.MsgTickSnapshot, types.MsgGameOver}, got)

	c.Close()
	_, _, err := client.Read(rctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
	select {
	case err := <-written:
		assert.ErrorIs(t, err, errConnClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not stop after the Conn closed")
	}
}

func TestJoin_ReturnsWhenLobbyStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := zaptest.NewLogger(t)
	l := lobby.NewLobby(ctx, hub.NewHub(ctx, logger), session.Config{Width: 20, Height: 20, InitialLength: 1}, logger)

	h := &handler{opts: Options{Lobby: l}, conn: session.NewConn("late", 4), logger: logger}
	l.Inbox() <- lobby.Shutdown{}

	done := make(chan error, 1)
	go func() { done <- h.join(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("join blocked on a stopped lobby")
	}
	<-l.Done()
	assert.Nil(t, h.conn.Session())
}
