package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DoyleJ11/snake-duel/internal/hub"
	"github.com/DoyleJ11/snake-duel/internal/lobby"
	"github.com/DoyleJ11/snake-duel/internal/session"
	"github.com/DoyleJ11/snake-duel/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T) (http.Handler, *lobby.Lobby, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := zaptest.NewLogger(t)
	h := hub.NewHub(ctx, logger)
	l := lobby.NewLobby(ctx, h, session.Config{
		Width: 20, Height: 20, InitialLength: 1,
		TickInterval:     time.Hour,
		StartDelay:       time.Hour,
		StallTimeout:     time.Second,
		EndedIdleTimeout: time.Hour,
	}, logger)
	return SetupRoutes(h, l, ws.Options{Lobby: l, OutboxSize: 4, Logger: logger}), l, cancel
}

func getStats(t *testing.T, router http.Handler) Stats {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var s Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	return s
}

func TestHealthz(t *testing.T) {
	router, _, _ := setup(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStats_CountsQueueAndSessions(t *testing.T) {
	router, l, _ := setup(t)
	assert.Equal(t, Stats{}, getStats(t, router))

	for _, id := range []string{"a", "b", "c"} {
		l.Inbox() <- lobby.Join{Conn: session.NewConn(id, 4)}
	}

	// The hub hears about the session after the lobby has paired it.
	require.Eventually(t, func() bool {
		return getStats(t, router) == Stats{ActiveSessions: 1, Queued: 1, MatchesMade: 1}
	}, time.Second, 10*time.Millisecond)
}

func TestSessionInfo(t *testing.T) {
	router, l, _ := setup(t)
	a, b := session.NewConn("a", 4), session.NewConn("b", 4)
	l.Inbox() <- lobby.Join{Conn: a}
	l.Inbox() <- lobby.Join{Conn: b}
	require.Eventually(t, func() bool { return a.Session() != nil }, time.Second, 5*time.Millisecond)
	id := a.Session().ID()

	var rec *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
		return rec.Code == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	var info SessionInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, id, info.ID)
	assert.Equal(t, session.StateWaiting, info.State)
	assert.Equal(t, uint64(0), info.Tick)
	assert.Equal(t, [2]bool{true, true}, info.Connected)
	assert.Equal(t, [2]bool{true, true}, info.Alive)
	assert.Equal(t, [2]int{1, 1}, info.Lengths)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats_UnavailableAfterShutdown(t *testing.T) {
	router, _, cancel := setup(t)
	cancel()

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
		return rec.Code == http.StatusServiceUnavailable
	}, time.Second, 10*time.Millisecond)
}

func TestWS_RejectsPlainHTTP(t *testing.T) {
	router, _, _ := setup(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUpgradeRequired, rec.Code)
}
