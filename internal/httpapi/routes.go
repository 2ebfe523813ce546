package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/snake-duel/internal/hub"
	"github.com/DoyleJ11/snake-duel/internal/lobby"
	"github.com/DoyleJ11/snake-duel/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func SetupRoutes(h *hub.Hub, l *lobby.Lobby, wsOpts ws.Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/stats", GetStats(h, l))
	r.Get("/sessions/{id}", GetSessionInfo(h))
	r.Get("/ws", ws.Handler(wsOpts))
	return r
}
