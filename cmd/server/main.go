package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/snake-duel/internal/config"
	"github.com/DoyleJ11/snake-duel/internal/httpapi"
	"github.com/DoyleJ11/snake-duel/internal/hub"
	"github.com/DoyleJ11/snake-duel/internal/lobby"
	"github.com/DoyleJ11/snake-duel/internal/session"
	"github.com/DoyleJ11/snake-duel/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hub and lobby outlive ctx so shutdown can stop them in order.
	root, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	h := hub.NewHub(root, logger)
	l := lobby.NewLobby(root, h, session.Config{
		Width:            cfg.GridWidth,
		Height:           cfg.GridHeight,
		InitialLength:    cfg.InitialLength,
		TickInterval:     cfg.TickInterval,
		StartDelay:       cfg.StartDelay,
		StallTimeout:     cfg.StallTimeout,
		EndedIdleTimeout: cfg.EndedIdleTimeout,
	}, logger)

	// Build the router *with* the hub and lobby injected
	handler := httpapi.SetupRoutes(h, l, ws.Options{
		Lobby:                 l,
		OutboxSize:            cfg.OutboxSize,
		WriteTimeout:          cfg.WriteTimeout,
		ReadTimeout:           cfg.ReadTimeout,
		MaxProtocolViolations: cfg.MaxProtocolViolations,
		Logger:                logger,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked websocket requests are not tracked by Shutdown; they end
		// when root is cancelled.
		BaseContext: func(net.Listener) context.Context { return root },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.Int("grid_width", cfg.GridWidth),
			zap.Int("grid_height", cfg.GridHeight),
			zap.Duration("tick", cfg.TickInterval))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		l.Post(lobby.Shutdown{})
		done := make(chan struct{})
		if h.Post(hub.ShutdownHub{Done: done}) {
			select {
			case <-done:
			case <-time.After(shutdownGrace):
				logger.Warn("hub did not stop in time")
			}
		}

		cancelRoot()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	cancelRoot()
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
