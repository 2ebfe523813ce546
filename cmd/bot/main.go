package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoyleJ11/snake-duel/internal/bot"
	"github.com/DoyleJ11/snake-duel/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadBot()
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

	records := make([]bot.Record, cfg.Count)
	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Count {
		g.Go(func() error {
			rec, err := bot.Run(gctx, bot.Config{
				URL:          cfg.ServerURL,
				Games:        cfg.Games,
				WriteTimeout: cfg.WriteTimeout,
				Logger:       logger.With(zap.Int("bot", i)),
			})
			records[i] = rec
			return err
		})
	}
	err = g.Wait()

	for i, rec := range records {
		logger.Info("bot finished", zap.Int("bot", i), zap.Any("record", rec))
	}
	return err
}
