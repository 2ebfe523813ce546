package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/snake-duel/internal/engine"
	"github.com/DoyleJ11/snake-duel/internal/hub"
	"github.com/DoyleJ11/snake-duel/internal/lobby"
	"github.com/DoyleJ11/snake-duel/internal/session"
	"github.com/go-chi/chi/v5"
)

const statsTimeout = 2 * time.Second

type Stats struct {
	ActiveSessions int `json:"active_sessions"`
	Queued         int `json:"queued"`
	MatchesMade    int `json:"matches_made"`
}

type SessionInfo struct {
	ID        string               `json:"id"`
	State     session.State        `json:"state"`
	Tick      uint64               `json:"tick"`
	Connected [engine.Players]bool `json:"connected"`
	Alive     [engine.Players]bool `json:"alive"`
	Lengths   [engine.Players]int  `json:"lengths"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetStats asks the hub and lobby loops for their current counts.
func GetStats(h *hub.Hub, l *lobby.Lobby) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		timeout := time.After(statsTimeout)

		sessions := make(chan []string, 1)
		if !h.Post(hub.ListSessions{Reply: sessions}) {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		views := make(chan lobby.View, 1)
		if !l.Post(lobby.GetState{Reply: views}) {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}

		var stats Stats
		for range 2 {
			select {
			case ids := <-sessions:
				stats.ActiveSessions = len(ids)
			case v := <-views:
				stats.Queued = len(v.Queued)
				stats.MatchesMade = v.Matches
			case <-timeout:
				http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
				return
			case <-ctx.Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	}
}

// GetSessionInfo looks a live session up in the hub and asks its loop for a
// summary.
func GetSessionInfo(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		timeout := time.After(statsTimeout)

		found := make(chan *session.Session, 1)
		if !h.Post(hub.GetSession{ID: id, Reply: found}) {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		var s *session.Session
		select {
		case s = <-found:
		case <-timeout:
			http.Error(w, "session lookup timed out", http.StatusServiceUnavailable)
			return
		}

		views := make(chan session.View, 1)
		if s == nil || !s.Post(session.GetState{Reply: views}) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		var v session.View
		select {
		case v = <-views:
		case <-timeout:
			http.Error(w, "session lookup timed out", http.StatusServiceUnavailable)
			return
		}

		info := SessionInfo{ID: v.ID, State: v.State, Tick: v.Game.Tick, Connected: v.Connected}
		for i, sn := range v.Game.Snakes {
			if sn != nil {
				info.Alive[i] = sn.Alive
				info.Lengths[i] = sn.Len()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	}
}
