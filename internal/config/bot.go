package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// BotConfig drives cmd/bot.
type BotConfig struct {
	ServerURL    string        // websocket endpoint of the game server
	Count        int           // bots to run side by side
	Games        int           // games per bot; 0 plays until interrupted
	WriteTimeout time.Duration // per-frame write deadline
	LogLevel     string
	Env          string
}

func DefaultBot() BotConfig {
	return BotConfig{
		ServerURL:    "ws://localhost:8080/ws",
		Count:        2,
		WriteTimeout: 3 * time.Second,
		LogLevel:     "info",
		Env:          "production",
	}
}

func LoadBot() (BotConfig, error) {
	_ = godotenv.Load()

	c := DefaultBot()
	var errs []error
	c.ServerURL = getEnvWithDefault("BOT_SERVER_URL", c.ServerURL)
	c.Count = getEnvAsInt("BOT_COUNT", c.Count, &errs)
	c.Games = getEnvAsInt("BOT_GAMES", c.Games, &errs)
	c.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.WriteTimeout, &errs)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)
	c.Env = getEnvWithDefault("APP_ENV", c.Env)

	if err := errors.Join(errs...); err != nil {
		return BotConfig{}, err
	}
	switch {
	case c.Count < 1:
		return BotConfig{}, fmt.Errorf("%w: BOT_COUNT must be at least 1", ErrInvalidValue)
	case c.Games < 0:
		return BotConfig{}, fmt.Errorf("%w: BOT_GAMES must not be negative", ErrInvalidValue)
	}
	return c, nil
}
